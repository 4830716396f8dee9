package handlers

import (
	"net/http"

	"github.com/kabarecoop/backend/internal/services"
)

type AdminHandler struct {
	stats *services.StatsService
}

func NewAdminHandler(stats *services.StatsService) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// Stats returns the cooperative-wide counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
