package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/metrics"
	"github.com/axisfin/conductor/internal/state"
	"go.uber.org/zap"
)

// LifecycleService drives each agent through its status state machine:
// inactive -> loading -> active on start, any -> loading -> inactive on
// stop, error on a failed credential gate, and a loading round-trip that
// restores the prior status for health tests.
type LifecycleService struct {
	store       *state.Store
	credentials domain.CredentialSource
	runtime     domain.AgentRuntime
	logger      *zap.Logger
}

func NewLifecycleService(store *state.Store, credentials domain.CredentialSource, runtime domain.AgentRuntime, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		store:       store,
		credentials: credentials,
		runtime:     runtime,
		logger:      logger,
	}
}

var (
	ErrUnknownAgentType = errors.New("unknown agent type")
	ErrAgentBusy        = errors.New("agent is busy")
)

// InitializeTenant verifies all provider keys once, then brings up every
// agent whose provider key is valid. Agents on an invalid or missing key go
// straight to error with a warning log. Initialization never fails part-way:
// the report carries the per-agent outcome.
func (s *LifecycleService) InitializeTenant(ctx context.Context, tenantID string) (*domain.InitReport, error) {
	statuses, err := s.credentials.VerifyKeys(ctx, tenantID)
	if err != nil {
		s.logger.Error("provider key verification failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, fmt.Errorf("verify provider keys: %w", err)
	}
	for provider, status := range statuses {
		metrics.RecordCredentialCheck(string(provider), status.Valid)
	}

	report := &domain.InitReport{
		TenantID: tenantID,
		Total:    len(domain.AllAgents()),
	}
	for _, d := range domain.AllAgents() {
		if !statuses[d.Provider].Valid {
			s.transition(tenantID, d.Type, nil, domain.StatusError)
			s.store.AppendLog(tenantID, d.Type, domain.LogWarning,
				fmt.Sprintf("Cannot start: %s API key missing or invalid", d.Provider))
			report.Failed = append(report.Failed, d.Type)
			continue
		}
		if err := s.start(ctx, tenantID, d); err != nil {
			report.Failed = append(report.Failed, d.Type)
			continue
		}
		report.Active++
	}

	s.logger.Info("tenant agents initialized",
		zap.String("tenant_id", tenantID),
		zap.Int("active", report.Active),
		zap.Int("total", report.Total),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// StartAgent brings one agent to active. Starting an already-active agent
// is a logged no-op; starting a loading agent returns ErrAgentBusy.
func (s *LifecycleService) StartAgent(ctx context.Context, tenantID string, agent domain.AgentType) error {
	d, ok := domain.LookupAgent(agent)
	if !ok {
		s.logger.Error("start refused for unknown agent type",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)))
		return ErrUnknownAgentType
	}
	return s.start(ctx, tenantID, d)
}

func (s *LifecycleService) start(ctx context.Context, tenantID string, d domain.AgentDescriptor) error {
	switch status, _ := s.store.Status(tenantID, d.Type); status {
	case domain.StatusLoading:
		return ErrAgentBusy
	case domain.StatusActive:
		s.store.AppendLog(tenantID, d.Type, domain.LogInfo, "Agent already active")
		return nil
	}

	apiKey, err := s.credentials.APIKey(ctx, tenantID, d.Provider)
	if err != nil {
		s.transition(tenantID, d.Type, nil, domain.StatusError)
		s.store.AppendLog(tenantID, d.Type, domain.LogError,
			fmt.Sprintf("Failed to start: %v", err))
		s.logger.Warn("agent start failed on credential fetch",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(d.Type)),
			zap.Error(err))
		return fmt.Errorf("fetch %s api key: %w", d.Provider, err)
	}

	if _, ok := s.transition(tenantID, d.Type, []domain.AgentStatus{domain.StatusInactive, domain.StatusError}, domain.StatusLoading); !ok {
		// Lost a race with a concurrent start for the same agent.
		return ErrAgentBusy
	}
	s.store.AppendLog(tenantID, d.Type, domain.LogInfo, "Starting agent...")

	if err := s.runtime.Start(ctx, tenantID, d.Type, apiKey); err != nil {
		s.transition(tenantID, d.Type, nil, domain.StatusError)
		s.store.AppendLog(tenantID, d.Type, domain.LogError,
			fmt.Sprintf("Startup failed: %v", err))
		s.logger.Error("agent startup failed",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(d.Type)),
			zap.Error(err))
		return fmt.Errorf("start agent %s: %w", d.Type, err)
	}

	s.transition(tenantID, d.Type, []domain.AgentStatus{domain.StatusLoading}, domain.StatusActive)
	s.store.AppendLog(tenantID, d.Type, domain.LogInfo,
		fmt.Sprintf("%s started successfully", d.Name))
	s.logger.Info("agent started",
		zap.String("tenant_id", tenantID),
		zap.String("agent", string(d.Type)))
	return nil
}

// StopAgent drives one agent to inactive through a loading transition.
// Stop always lands on inactive for a known type, even when the runtime
// reports a shutdown error.
func (s *LifecycleService) StopAgent(ctx context.Context, tenantID string, agent domain.AgentType) error {
	if _, ok := domain.LookupAgent(agent); !ok {
		s.logger.Error("stop refused for unknown agent type",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)))
		return ErrUnknownAgentType
	}

	s.transition(tenantID, agent, nil, domain.StatusLoading)
	s.store.AppendLog(tenantID, agent, domain.LogInfo, "Stopping agent...")

	if err := s.runtime.Stop(ctx, tenantID, agent); err != nil {
		s.logger.Warn("agent runtime stop failed",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)),
			zap.Error(err))
	}

	s.transition(tenantID, agent, nil, domain.StatusInactive)
	s.store.AppendLog(tenantID, agent, domain.LogInfo, "Agent stopped")
	s.logger.Info("agent stopped",
		zap.String("tenant_id", tenantID),
		zap.String("agent", string(agent)))
	return nil
}

// TestAgent runs a non-destructive health check: the agent passes through
// loading and returns to whatever status it had before, never forced to
// active. A loading agent cannot be tested concurrently.
func (s *LifecycleService) TestAgent(ctx context.Context, tenantID string, agent domain.AgentType) error {
	d, ok := domain.LookupAgent(agent)
	if !ok {
		s.logger.Error("test refused for unknown agent type",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)))
		return ErrUnknownAgentType
	}

	apiKey, err := s.credentials.APIKey(ctx, tenantID, d.Provider)
	if err != nil {
		s.store.AppendLog(tenantID, agent, domain.LogError,
			fmt.Sprintf("Test failed: %v", err))
		s.logger.Warn("agent test failed on credential fetch",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)),
			zap.Error(err))
		return fmt.Errorf("fetch %s api key: %w", d.Provider, err)
	}

	prev, ok := s.transition(tenantID, agent,
		[]domain.AgentStatus{domain.StatusInactive, domain.StatusActive, domain.StatusError}, domain.StatusLoading)
	if !ok {
		return ErrAgentBusy
	}
	s.store.AppendLog(tenantID, agent, domain.LogInfo, "Testing agent...")

	if err := s.runtime.HealthCheck(ctx, tenantID, agent, apiKey); err != nil {
		s.transition(tenantID, agent, nil, domain.StatusError)
		s.store.AppendLog(tenantID, agent, domain.LogError,
			fmt.Sprintf("Test failed: %v", err))
		s.logger.Error("agent health check failed",
			zap.String("tenant_id", tenantID),
			zap.String("agent", string(agent)),
			zap.Error(err))
		return fmt.Errorf("test agent %s: %w", agent, err)
	}

	s.transition(tenantID, agent, []domain.AgentStatus{domain.StatusLoading}, prev)
	s.store.AppendLog(tenantID, agent, domain.LogInfo, "Agent test completed successfully")
	s.logger.Info("agent tested",
		zap.String("tenant_id", tenantID),
		zap.String("agent", string(agent)),
		zap.String("status", string(prev)))
	return nil
}

// AgentStatus returns a snapshot of one agent's record.
func (s *LifecycleService) AgentStatus(tenantID string, agent domain.AgentType) (domain.AgentRecord, error) {
	rec, ok := s.store.AgentSnapshot(tenantID, agent)
	if !ok {
		return domain.AgentRecord{}, ErrUnknownAgentType
	}
	return rec, nil
}

// AllAgentStatuses returns a snapshot of the tenant's full status block.
func (s *LifecycleService) AllAgentStatuses(tenantID string) domain.TenantAgentStatus {
	return s.store.Snapshot(tenantID)
}

// TenantStats returns the tenant's aggregate counters.
func (s *LifecycleService) TenantStats(tenantID string) domain.TenantStats {
	return s.store.TenantStats(tenantID)
}

// GlobalStats aggregates counters across all tenants.
func (s *LifecycleService) GlobalStats() domain.GlobalStats {
	return s.store.GlobalStats()
}

// transition applies a guarded status change and keeps the prometheus
// gauges in step with the store's recomputed active-agent count.
func (s *LifecycleService) transition(tenantID string, agent domain.AgentType, from []domain.AgentStatus, to domain.AgentStatus) (domain.AgentStatus, bool) {
	prev, ok := s.store.Transition(tenantID, agent, from, to)
	if ok {
		metrics.RecordTransition(string(agent), string(to))
		metrics.SetActiveAgents(tenantID, s.store.TenantStats(tenantID).ActiveAgents)
	}
	return prev, ok
}
