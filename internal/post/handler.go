package post

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/httpx"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List serves GET /posts?search=&mine=true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	q := r.URL.Query()
	posts, err := h.svc.List(r.Context(), p.Actor(), q.Get("search"), truthy(q.Get("mine")))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"posts": posts})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	v, err := h.svc.Create(r.Context(), p.Actor(), in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.M{"post": v})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	v, err := h.svc.Update(r.Context(), p.Actor(), id, in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"post": v})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), p.Actor(), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Post deleted successfully.")
}

// truthy accepts the usual boolean spellings of a query flag.
func truthy(v string) bool {
	if v == "on" || v == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
