package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/httpx"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
	sessionentity "github.com/ProConnect-Lab/proconnect-backend/internal/session/entity"
)

// Handler exposes HTTP endpoints for registration, login and profile.
type Handler struct {
	svc      *Service
	sessions *session.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *session.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	acc, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.logger.Debugw("register failed", "err", err)
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	token, _, err := h.sessions.Issue(r.Context(), acc.User, sessionentity.LabelMember)
	if err != nil {
		// the account is committed; the client can still sign in through /login
		h.logger.Errorw("token issue failed after registration", "user_id", acc.ID, "email", acc.Email, "err", err)
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.M{"token": token, "user": acc})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in Credentials
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	u, err := h.svc.Authenticate(r.Context(), in)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	acc, err := h.svc.Account(r.Context(), u)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	token, _, err := h.sessions.Issue(r.Context(), u, sessionentity.LabelMember)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"token": token, "user": acc})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	if err := h.sessions.Revoke(r.Context(), p.Token); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Logged out successfully.")
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	prof, err := h.svc.Profile(r.Context(), p.User)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"user": prof})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	var in ProfileInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	prof, err := h.svc.UpdateProfile(r.Context(), p.User, in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"user": prof})
}
