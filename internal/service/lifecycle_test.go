package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/axisfin/conductor/internal/credentials"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/state"
	"go.uber.org/zap"
)

// stubCredentials implements domain.CredentialSource for testing.
type stubCredentials struct {
	valid     map[domain.Provider]bool
	verifyErr error
	keyErr    map[domain.Provider]error
}

func allValidCredentials() *stubCredentials {
	return &stubCredentials{
		valid: map[domain.Provider]bool{
			domain.ProviderGoogle:     true,
			domain.ProviderOpenRouter: true,
		},
	}
}

func (c *stubCredentials) VerifyKeys(ctx context.Context, tenantID string) (map[domain.Provider]domain.KeyStatus, error) {
	if c.verifyErr != nil {
		return nil, c.verifyErr
	}
	out := make(map[domain.Provider]domain.KeyStatus)
	for _, p := range domain.AllProviders() {
		out[p] = domain.KeyStatus{Valid: c.valid[p]}
	}
	return out, nil
}

func (c *stubCredentials) APIKey(ctx context.Context, tenantID string, provider domain.Provider) (string, error) {
	if err := c.keyErr[provider]; err != nil {
		return "", err
	}
	if !c.valid[provider] {
		return "", credentials.ErrKeyInvalid
	}
	return "key-" + string(provider), nil
}

// stubRuntime implements domain.AgentRuntime with no delays, failing
// whichever operations the test configures.
type stubRuntime struct {
	startErr   error
	stopErr    error
	healthErr  error
	stageErrs  map[domain.AgentType]error
	answerErr  error
	stageCalls []domain.AgentType
}

func (r *stubRuntime) Start(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	return r.startErr
}

func (r *stubRuntime) Stop(ctx context.Context, tenantID string, agent domain.AgentType) error {
	return r.stopErr
}

func (r *stubRuntime) HealthCheck(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	return r.healthErr
}

func (r *stubRuntime) RunStage(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string, doc domain.Document) (domain.StageOutput, error) {
	r.stageCalls = append(r.stageCalls, agent)
	if err := r.stageErrs[agent]; err != nil {
		return domain.StageOutput{}, err
	}
	return domain.StageOutput{Summary: "processed " + doc.Name}, nil
}

func (r *stubRuntime) Answer(ctx context.Context, tenantID, apiKey, documentID, question string) (string, error) {
	if r.answerErr != nil {
		return "", r.answerErr
	}
	return fmt.Sprintf("Answer for %q on %s", question, documentID), nil
}

func newTestLifecycle(creds *stubCredentials, rt *stubRuntime) (*LifecycleService, *state.Store) {
	store := state.NewStore()
	return NewLifecycleService(store, creds, rt, zap.NewNop()), store
}

func TestLifecycleService_InitializeTenantAllValid(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})

	report, err := s.InitializeTenant(context.Background(), "t1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Active != 7 || report.Total != 7 {
		t.Fatalf("expected 7/7 active, got %d/%d", report.Active, report.Total)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("expected no failed agents, got %v", report.Failed)
	}

	snap := store.Snapshot("t1")
	for _, d := range domain.AllAgents() {
		if got := snap.Agents[d.Type].Status; got != domain.StatusActive {
			t.Errorf("agent %s status = %s, want active", d.Type, got)
		}
	}
	if snap.Stats.ActiveAgents != 7 {
		t.Errorf("ActiveAgents = %d, want 7", snap.Stats.ActiveAgents)
	}
}

func TestLifecycleService_InitializeTenantInvalidOpenRouter(t *testing.T) {
	creds := &stubCredentials{valid: map[domain.Provider]bool{
		domain.ProviderGoogle:     true,
		domain.ProviderOpenRouter: false,
	}}
	s, store := newTestLifecycle(creds, &stubRuntime{})

	report, err := s.InitializeTenant(context.Background(), "t2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Active != 3 {
		t.Fatalf("expected 3 active, got %d", report.Active)
	}

	wantFailed := map[domain.AgentType]bool{
		domain.AgentSecuritiesExtractor:  true,
		domain.AgentFinancialReasoner:    true,
		domain.AgentPortfolioPerformance: true,
		domain.AgentBloomberg:            true,
	}
	if len(report.Failed) != len(wantFailed) {
		t.Fatalf("expected %d failed agents, got %v", len(wantFailed), report.Failed)
	}
	for _, agent := range report.Failed {
		if !wantFailed[agent] {
			t.Errorf("unexpected failed agent %s", agent)
		}
	}

	snap := store.Snapshot("t2")
	for _, d := range domain.AllAgents() {
		want := domain.StatusActive
		if wantFailed[d.Type] {
			want = domain.StatusError
		}
		if got := snap.Agents[d.Type].Status; got != want {
			t.Errorf("agent %s status = %s, want %s", d.Type, got, want)
		}
	}
	if snap.Stats.ActiveAgents != 3 {
		t.Errorf("ActiveAgents = %d, want 3", snap.Stats.ActiveAgents)
	}

	// Failed agents carry the key warning.
	logs := snap.Agents[domain.AgentBloomberg].Logs
	if len(logs) != 1 || logs[0].Level != domain.LogWarning {
		t.Errorf("expected a single warning log on bloomberg, got %v", logs)
	}
}

func TestLifecycleService_InitializeTenantVerifyFailure(t *testing.T) {
	creds := allValidCredentials()
	creds.verifyErr = errors.New("credential service unavailable")
	s, store := newTestLifecycle(creds, &stubRuntime{})

	if _, err := s.InitializeTenant(context.Background(), "t1"); err == nil {
		t.Fatal("expected error from failed verification")
	}
	for _, d := range domain.AllAgents() {
		if got, _ := store.Status("t1", d.Type); got != domain.StatusInactive {
			t.Errorf("agent %s status = %s, want inactive after failed verification", d.Type, got)
		}
	}
}

func TestLifecycleService_StartAgentUnknownType(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})

	err := s.StartAgent(context.Background(), "t1", domain.AgentType("bogus-type"))
	if err != ErrUnknownAgentType {
		t.Fatalf("expected ErrUnknownAgentType, got %v", err)
	}
	if got := store.TenantStats("t1").ActiveAgents; got != 0 {
		t.Errorf("ActiveAgents = %d after unknown-type start, want 0", got)
	}
}

func TestLifecycleService_StartAgent(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})

	if err := s.StartAgent(context.Background(), "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rec, _ := store.AgentSnapshot("t1", domain.AgentDocumentAnalyzer)
	if rec.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", rec.Status)
	}
	if len(rec.Logs) != 2 {
		t.Errorf("expected 2 log entries (starting + started), got %d", len(rec.Logs))
	}
	if got := store.TenantStats("t1").ActiveAgents; got != 1 {
		t.Errorf("ActiveAgents = %d, want 1", got)
	}
}

func TestLifecycleService_StartAgentCredentialFailure(t *testing.T) {
	creds := allValidCredentials()
	creds.keyErr = map[domain.Provider]error{domain.ProviderGoogle: credentials.ErrKeyNotFound}
	s, store := newTestLifecycle(creds, &stubRuntime{})

	err := s.StartAgent(context.Background(), "t1", domain.AgentCoordinator)
	if !errors.Is(err, credentials.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	rec, _ := store.AgentSnapshot("t1", domain.AgentCoordinator)
	if rec.Status != domain.StatusError {
		t.Errorf("status = %s, want error", rec.Status)
	}
	if len(rec.Logs) != 1 || rec.Logs[0].Level != domain.LogError {
		t.Errorf("expected one error log, got %v", rec.Logs)
	}
}

func TestLifecycleService_StartAgentAlreadyActive(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if err := s.StartAgent(ctx, "t1", domain.AgentCoordinator); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.StartAgent(ctx, "t1", domain.AgentCoordinator); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	if got, _ := store.Status("t1", domain.AgentCoordinator); got != domain.StatusActive {
		t.Errorf("status = %s, want active", got)
	}
	if got := store.TenantStats("t1").ActiveAgents; got != 1 {
		t.Errorf("ActiveAgents = %d, want 1", got)
	}
}

func TestLifecycleService_StartAgentBusy(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	store.Transition("t1", domain.AgentCoordinator, nil, domain.StatusLoading)

	if err := s.StartAgent(context.Background(), "t1", domain.AgentCoordinator); err != ErrAgentBusy {
		t.Fatalf("expected ErrAgentBusy, got %v", err)
	}
}

func TestLifecycleService_StartAgentRuntimeFailure(t *testing.T) {
	rt := &stubRuntime{startErr: errors.New("container failed to boot")}
	s, store := newTestLifecycle(allValidCredentials(), rt)

	if err := s.StartAgent(context.Background(), "t1", domain.AgentBloomberg); err == nil {
		t.Fatal("expected startup error")
	}
	if got, _ := store.Status("t1", domain.AgentBloomberg); got != domain.StatusError {
		t.Errorf("status = %s, want error after failed startup", got)
	}
}

func TestLifecycleService_StopAgent(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if err := s.StartAgent(ctx, "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.StopAgent(ctx, "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got, _ := store.Status("t1", domain.AgentDocumentAnalyzer); got != domain.StatusInactive {
		t.Errorf("status = %s, want inactive", got)
	}
	if got := store.TenantStats("t1").ActiveAgents; got != 0 {
		t.Errorf("ActiveAgents = %d, want 0", got)
	}
}

func TestLifecycleService_StopAgentAlwaysLandsInactive(t *testing.T) {
	rt := &stubRuntime{stopErr: errors.New("runtime unreachable")}
	s, store := newTestLifecycle(allValidCredentials(), rt)

	// Stop on a never-started agent, with a failing runtime, still succeeds.
	if err := s.StopAgent(context.Background(), "t1", domain.AgentBloomberg); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if got, _ := store.Status("t1", domain.AgentBloomberg); got != domain.StatusInactive {
		t.Errorf("status = %s, want inactive", got)
	}
}

func TestLifecycleService_StopAgentUnknownType(t *testing.T) {
	s, _ := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	if err := s.StopAgent(context.Background(), "t1", domain.AgentType("bogus-type")); err != ErrUnknownAgentType {
		t.Fatalf("expected ErrUnknownAgentType, got %v", err)
	}
}

func TestLifecycleService_TestAgentRoundTrip(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if err := s.StartAgent(ctx, "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("start: %v", err)
	}
	before, _ := store.AgentSnapshot("t1", domain.AgentDocumentAnalyzer)

	if err := s.TestAgent(ctx, "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("test: %v", err)
	}

	after, _ := store.AgentSnapshot("t1", domain.AgentDocumentAnalyzer)
	if after.Status != domain.StatusActive {
		t.Errorf("status = %s, want active restored after test", after.Status)
	}
	if got := len(after.Logs) - len(before.Logs); got != 2 {
		t.Errorf("test appended %d log entries, want 2", got)
	}
}

func TestLifecycleService_TestAgentRestoresInactive(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})

	if err := s.TestAgent(context.Background(), "t1", domain.AgentCoordinator); err != nil {
		t.Fatalf("test: %v", err)
	}
	if got, _ := store.Status("t1", domain.AgentCoordinator); got != domain.StatusInactive {
		t.Errorf("status = %s, want inactive restored (test never forces active)", got)
	}
}

func TestLifecycleService_TestAgentBusy(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	store.Transition("t1", domain.AgentCoordinator, nil, domain.StatusLoading)

	if err := s.TestAgent(context.Background(), "t1", domain.AgentCoordinator); err != ErrAgentBusy {
		t.Fatalf("expected ErrAgentBusy, got %v", err)
	}
}

func TestLifecycleService_TestAgentCredentialFailure(t *testing.T) {
	creds := allValidCredentials()
	creds.keyErr = map[domain.Provider]error{domain.ProviderOpenRouter: credentials.ErrKeyInvalid}
	s, store := newTestLifecycle(creds, &stubRuntime{})

	err := s.TestAgent(context.Background(), "t1", domain.AgentBloomberg)
	if !errors.Is(err, credentials.ErrKeyInvalid) {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}
	// Status is untouched by a refused test.
	if got, _ := store.Status("t1", domain.AgentBloomberg); got != domain.StatusInactive {
		t.Errorf("status = %s, want inactive", got)
	}
}

func TestLifecycleService_TestAgentHealthFailure(t *testing.T) {
	rt := &stubRuntime{healthErr: errors.New("health endpoint timed out")}
	s, store := newTestLifecycle(allValidCredentials(), rt)

	if err := s.TestAgent(context.Background(), "t1", domain.AgentCoordinator); err == nil {
		t.Fatal("expected health check error")
	}
	if got, _ := store.Status("t1", domain.AgentCoordinator); got != domain.StatusError {
		t.Errorf("status = %s, want error after failed health check", got)
	}
}

func TestLifecycleService_ActiveAgentsInvariant(t *testing.T) {
	s, store := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	ops := []func() error{
		func() error { return s.StartAgent(ctx, "t1", domain.AgentDocumentAnalyzer) },
		func() error { return s.StartAgent(ctx, "t1", domain.AgentCoordinator) },
		func() error { return s.TestAgent(ctx, "t1", domain.AgentCoordinator) },
		func() error { return s.StopAgent(ctx, "t1", domain.AgentDocumentAnalyzer) },
		func() error { return s.StartAgent(ctx, "t1", domain.AgentFinancialReasoner) },
		func() error { return s.StopAgent(ctx, "t1", domain.AgentCoordinator) },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		snap := store.Snapshot("t1")
		active := 0
		for _, rec := range snap.Agents {
			if rec.Status == domain.StatusActive {
				active++
			}
		}
		if snap.Stats.ActiveAgents != active {
			t.Fatalf("after op %d: ActiveAgents = %d, actual active = %d", i, snap.Stats.ActiveAgents, active)
		}
	}
}

func TestLifecycleService_AgentStatusUnknownType(t *testing.T) {
	s, _ := newTestLifecycle(allValidCredentials(), &stubRuntime{})
	if _, err := s.AgentStatus("t1", domain.AgentType("bogus-type")); err != ErrUnknownAgentType {
		t.Fatalf("expected ErrUnknownAgentType, got %v", err)
	}
}
