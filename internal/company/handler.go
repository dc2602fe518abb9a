package company

import (
	"net/http"

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	companies, err := h.svc.List(r.Context(), p.Actor())
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"companies": companies})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := session.FromContext(r.Context())
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), p.Actor(), in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.M{"company": c})
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
	c, err := h.svc.Update(r.Context(), p.Actor(), id, in)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.M{"company": c})
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
	httpx.Message(w, http.StatusOK, "Company deleted successfully.")
}
