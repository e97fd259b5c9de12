package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/axisfin/conductor/internal/api/middleware"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/service"
)

type AgentHandler struct {
	svc *service.LifecycleService
}

func NewAgentHandler(svc *service.LifecycleService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// Initialize verifies the tenant's provider credentials and starts every
// agent whose provider key checks out.
func (h *AgentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := h.svc.InitializeTenant(r.Context(), tenant.ID.String())
	if err != nil {
		writeServiceError(w, err, "failed to initialize agents")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.AllAgentStatuses(tenant.ID.String()))
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agent := domain.AgentType(chi.URLParam(r, "agentType"))
	record, err := h.svc.AgentStatus(tenant.ID.String(), agent)
	if err != nil {
		writeServiceError(w, err, "failed to get agent")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *AgentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.runLifecycleAction(w, r, h.svc.StartAgent, "failed to start agent")
}

func (h *AgentHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.runLifecycleAction(w, r, h.svc.StopAgent, "failed to stop agent")
}

func (h *AgentHandler) Test(w http.ResponseWriter, r *http.Request) {
	h.runLifecycleAction(w, r, h.svc.TestAgent, "failed to test agent")
}

// runLifecycleAction handles the shared shape of start, stop and test:
// run the action, then respond with the agent's fresh record.
func (h *AgentHandler) runLifecycleAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, tenantID string, agent domain.AgentType) error,
	fallback string,
) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agent := domain.AgentType(chi.URLParam(r, "agentType"))
	if err := action(r.Context(), tenant.ID.String(), agent); err != nil {
		writeServiceError(w, err, fallback)
		return
	}

	record, err := h.svc.AgentStatus(tenant.ID.String(), agent)
	if err != nil {
		writeServiceError(w, err, fallback)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
