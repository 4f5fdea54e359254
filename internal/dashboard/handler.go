package dashboard

import (
	"net/http"

	"client-registry/internal/httpx"
	"client-registry/internal/observability"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Statistics(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load dashboard statistics")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, stats)
}
