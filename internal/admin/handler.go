package admin

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/authz"
	"github.com/ProConnect-Lab/proconnect-backend/internal/httpx"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user"
)

// Handler serves every /admin route. All routes except Login run behind
// session.Middleware.Admin.
type Handler struct {
	svc      *Service
	users    *user.Service
	sessions *session.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, users *user.Service, sessions *session.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, users: users, sessions: sessions, logger: logger}
}

func actor(r *http.Request) authz.Actor {
	p, ok := session.FromContext(r.Context())
	if !ok {
		return authz.Actor{}
	}
	return p.Actor()
}

func search(r *http.Request) (string, page.Request) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("search")), page.FromQuery(q)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in user.Credentials
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	u, err := h.users.AuthenticateAdmin(r.Context(), in)
	if err != nil {
		h.logger.Debugw("admin login failed", "err", err)
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	token, _, err := h.sessions.Issue(r.Context(), u, sessionentity.LabelAdmin, sessionentity.CapabilityAdmin)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Infow("admin signed in", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"token": token, "admin": u})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	if err := h.sessions.Revoke(r.Context(), p.Token); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Administrator session closed.")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"admin": p.User})
}

func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.ListAdmins(r.Context(), actor(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"data": admins})
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in user.AdminInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := authz.Authorize(actor(r), authz.AdminManage, authz.Target{Kind: authz.KindAdmin}).Err(); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	u, err := h.users.CreateAdmin(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.M{"message": "Administrator created successfully.", "admin": u})
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	term, pr := search(r)
	p, err := h.svc.SearchUsers(r.Context(), actor(r), term, pr)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Paginated(w, p)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), actor(r), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "User deleted successfully.")
}

func (h *Handler) Companies(w http.ResponseWriter, r *http.Request) {
	term, pr := search(r)
	p, err := h.svc.SearchCompanies(r.Context(), actor(r), term, pr)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Paginated(w, p)
}

func (h *Handler) AllCompanies(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.AllCompanies(r.Context(), actor(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"companies": refs})
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteCompany(r.Context(), actor(r), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Company deleted successfully.")
}

func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	term, pr := search(r)
	p, err := h.svc.SearchPosts(r.Context(), actor(r), term, pr)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Paginated(w, p)
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in post.Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	l, err := h.svc.CreatePost(r.Context(), actor(r), in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.M{"message": "Post created successfully.", "post": l})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var in post.Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	l, err := h.svc.UpdatePost(r.Context(), actor(r), id, in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"message": "Post updated successfully.", "post": l})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), actor(r), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Post deleted successfully.")
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), actor(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
