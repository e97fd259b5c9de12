package handlers

import (
	"net/http"

	"github.com/axisfin/conductor/internal/api/middleware"
	"github.com/axisfin/conductor/internal/service"
)

type StatsHandler struct {
	svc *service.LifecycleService
}

func NewStatsHandler(svc *service.LifecycleService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) Tenant(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.TenantStats(tenant.ID.String()))
}

// Global reports process-wide aggregates. The route is unauthenticated, so
// the response carries no per-tenant detail.
func (h *StatsHandler) Global(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GlobalStats())
}
