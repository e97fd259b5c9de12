package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/axisfin/conductor/internal/credentials"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/state"
	"go.uber.org/zap"
)

func newTestOrchestrator(creds *stubCredentials, rt *stubRuntime) (*Orchestrator, *LifecycleService, *state.Store) {
	store := state.NewStore()
	logger := zap.NewNop()
	return NewOrchestrator(store, creds, rt, logger),
		NewLifecycleService(store, creds, rt, logger),
		store
}

func testDocument() domain.Document {
	return domain.Document{ID: "doc-1", Name: "portfolio-2026-q2.pdf", Content: "holdings"}
}

func TestOrchestrator_ProcessDocumentNoActiveAgents(t *testing.T) {
	rt := &stubRuntime{}
	o, _, store := newTestOrchestrator(allValidCredentials(), rt)

	_, err := o.ProcessDocument(context.Background(), "t1", testDocument())
	if err != ErrNoActiveAgents {
		t.Fatalf("expected ErrNoActiveAgents, got %v", err)
	}

	if len(rt.stageCalls) != 0 {
		t.Errorf("expected zero stage work, got %v", rt.stageCalls)
	}
	snap := store.Snapshot("t1")
	if snap.Stats.DocumentsProcessed != 0 {
		t.Errorf("DocumentsProcessed = %d, want 0", snap.Stats.DocumentsProcessed)
	}
	for _, rec := range snap.Agents {
		if len(rec.Stats) != 0 {
			t.Errorf("agent %s has counters %v after rejected run", rec.Type, rec.Stats)
		}
		if len(rec.Logs) != 0 {
			t.Errorf("agent %s has %d log entries after rejected run", rec.Type, len(rec.Logs))
		}
	}
}

func TestOrchestrator_ProcessDocumentFullPipeline(t *testing.T) {
	o, lc, store := newTestOrchestrator(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if _, err := lc.InitializeTenant(ctx, "t1"); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	result, err := o.ProcessDocument(ctx, "t1", testDocument())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Stages) != 4 {
		t.Fatalf("expected 4 stage records, got %d", len(result.Stages))
	}
	for _, run := range result.Stages {
		if run.Skipped {
			t.Errorf("stage %s skipped with all agents active", run.Agent)
		}
		if run.Summary == "" {
			t.Errorf("stage %s has no summary", run.Agent)
		}
	}

	snap := store.Snapshot("t1")
	wantCounters := map[domain.AgentType]struct {
		key string
		val int64
	}{
		domain.AgentDocumentAnalyzer:    {"documents_analyzed", 1},
		domain.AgentTableUnderstanding:  {"tables_extracted", 3},
		domain.AgentSecuritiesExtractor: {"securities_extracted", 8},
		domain.AgentFinancialReasoner:   {"analyses_completed", 1},
		domain.AgentCoordinator:         {"jobs_coordinated", 1},
	}
	for agent, want := range wantCounters {
		if got := snap.Agents[agent].Stats[want.key]; got != want.val {
			t.Errorf("%s %s = %d, want %d", agent, want.key, got, want.val)
		}
	}
	if snap.Stats.DocumentsProcessed != 1 {
		t.Errorf("DocumentsProcessed = %d, want 1", snap.Stats.DocumentsProcessed)
	}
	if result.ProcessingSeconds < 0 {
		t.Errorf("ProcessingSeconds = %v, want >= 0", result.ProcessingSeconds)
	}
}

func TestOrchestrator_ProcessDocumentSkipsInactiveStages(t *testing.T) {
	o, lc, store := newTestOrchestrator(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if err := lc.StartAgent(ctx, "t1", domain.AgentDocumentAnalyzer); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := o.ProcessDocument(ctx, "t1", testDocument())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, run := range result.Stages {
		wantSkipped := run.Agent != domain.AgentDocumentAnalyzer
		if run.Skipped != wantSkipped {
			t.Errorf("stage %s skipped = %v, want %v", run.Agent, run.Skipped, wantSkipped)
		}
	}

	snap := store.Snapshot("t1")
	if got := snap.Agents[domain.AgentDocumentAnalyzer].Stats["documents_analyzed"]; got != 1 {
		t.Errorf("documents_analyzed = %d, want 1", got)
	}
	if got := snap.Agents[domain.AgentTableUnderstanding].Stats["tables_extracted"]; got != 0 {
		t.Errorf("tables_extracted = %d for skipped stage, want 0", got)
	}
	if snap.Stats.DocumentsProcessed != 1 {
		t.Errorf("DocumentsProcessed = %d, want 1", snap.Stats.DocumentsProcessed)
	}
}

func TestOrchestrator_ProcessDocumentAbortKeepsCompletedCounters(t *testing.T) {
	rt := &stubRuntime{stageErrs: map[domain.AgentType]error{
		domain.AgentSecuritiesExtractor: errors.New("extraction model overloaded"),
	}}
	o, lc, store := newTestOrchestrator(allValidCredentials(), rt)
	ctx := context.Background()

	if _, err := lc.InitializeTenant(ctx, "t1"); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := o.ProcessDocument(ctx, "t1", testDocument()); err == nil {
		t.Fatal("expected mid-pipeline error")
	}

	snap := store.Snapshot("t1")
	if got := snap.Agents[domain.AgentDocumentAnalyzer].Stats["documents_analyzed"]; got != 1 {
		t.Errorf("documents_analyzed = %d, want 1 (completed stage counters remain)", got)
	}
	if got := snap.Agents[domain.AgentTableUnderstanding].Stats["tables_extracted"]; got != 3 {
		t.Errorf("tables_extracted = %d, want 3 (completed stage counters remain)", got)
	}
	if got := snap.Agents[domain.AgentSecuritiesExtractor].Stats["securities_extracted"]; got != 0 {
		t.Errorf("securities_extracted = %d, want 0 for failed stage", got)
	}
	if got := snap.Agents[domain.AgentFinancialReasoner].Stats["analyses_completed"]; got != 0 {
		t.Errorf("analyses_completed = %d, want 0 for unreached stage", got)
	}
	if got := snap.Agents[domain.AgentCoordinator].Stats["jobs_coordinated"]; got != 0 {
		t.Errorf("jobs_coordinated = %d, want 0 for failed run", got)
	}
	if snap.Stats.DocumentsProcessed != 0 {
		t.Errorf("DocumentsProcessed = %d, want 0 for failed run", snap.Stats.DocumentsProcessed)
	}

	coordLogs := snap.Agents[domain.AgentCoordinator].Logs
	if len(coordLogs) == 0 || coordLogs[len(coordLogs)-1].Level != domain.LogError {
		t.Errorf("expected coordinator error log, got %v", coordLogs)
	}
}

func TestOrchestrator_ProcessDocumentCredentialAbort(t *testing.T) {
	creds := allValidCredentials()
	o, lc, store := newTestOrchestrator(creds, &stubRuntime{})
	ctx := context.Background()

	if _, err := lc.InitializeTenant(ctx, "t1"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// Key revoked between startup and processing.
	creds.keyErr = map[domain.Provider]error{domain.ProviderOpenRouter: credentials.ErrKeyInvalid}

	_, err := o.ProcessDocument(ctx, "t1", testDocument())
	if !errors.Is(err, credentials.ErrKeyInvalid) {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}

	snap := store.Snapshot("t1")
	if got := snap.Agents[domain.AgentDocumentAnalyzer].Stats["documents_analyzed"]; got != 1 {
		t.Errorf("documents_analyzed = %d, want 1", got)
	}
	if got := snap.Agents[domain.AgentSecuritiesExtractor].Stats["securities_extracted"]; got != 0 {
		t.Errorf("securities_extracted = %d, want 0 after credential abort", got)
	}
}

func TestOrchestrator_AverageTracksMean(t *testing.T) {
	o, lc, store := newTestOrchestrator(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if _, err := lc.InitializeTenant(ctx, "t1"); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	var sum float64
	const n = 5
	for i := 0; i < n; i++ {
		result, err := o.ProcessDocument(ctx, "t1", testDocument())
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		sum += result.ProcessingSeconds
	}

	stats := store.TenantStats("t1")
	if stats.DocumentsProcessed != n {
		t.Fatalf("DocumentsProcessed = %d, want %d", stats.DocumentsProcessed, n)
	}
	if diff := math.Abs(stats.AvgProcessingSeconds - sum/n); diff > 1e-9 {
		t.Errorf("AvgProcessingSeconds = %v, want mean %v (diff %v)", stats.AvgProcessingSeconds, sum/n, diff)
	}
}

func TestOrchestrator_AskQuestionReasonerInactive(t *testing.T) {
	o, _, _ := newTestOrchestrator(allValidCredentials(), &stubRuntime{})

	_, err := o.AskQuestion(context.Background(), "t1", "doc-1", "What is the exposure to tech?")
	if err != ErrReasonerNotActive {
		t.Fatalf("expected ErrReasonerNotActive, got %v", err)
	}
}

func TestOrchestrator_AskQuestion(t *testing.T) {
	o, lc, store := newTestOrchestrator(allValidCredentials(), &stubRuntime{})
	ctx := context.Background()

	if err := lc.StartAgent(ctx, "t1", domain.AgentFinancialReasoner); err != nil {
		t.Fatalf("start: %v", err)
	}
	before, _ := store.AgentSnapshot("t1", domain.AgentFinancialReasoner)

	question := "What is the total bond allocation?"
	answer, err := o.AskQuestion(ctx, "t1", "doc-1", question)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(answer.Answer, question) {
		t.Errorf("answer %q does not embed the question", answer.Answer)
	}
	if answer.DocumentID != "doc-1" || answer.TenantID != "t1" {
		t.Errorf("answer routing = %s/%s, want t1/doc-1", answer.TenantID, answer.DocumentID)
	}

	after, _ := store.AgentSnapshot("t1", domain.AgentFinancialReasoner)
	if got := after.Stats["questions_answered"]; got != 1 {
		t.Errorf("questions_answered = %d, want 1", got)
	}
	if got := len(after.Logs) - len(before.Logs); got != 2 {
		t.Errorf("question appended %d log entries, want 2", got)
	}
	if got := store.TenantStats("t1").APICallsToday; got != 1 {
		t.Errorf("tenant APICallsToday = %d, want 1", got)
	}
	if got := store.GlobalStats().APICallsToday; got != 1 {
		t.Errorf("global APICallsToday = %d, want 1", got)
	}
}

func TestOrchestrator_AskQuestionCredentialFailure(t *testing.T) {
	creds := allValidCredentials()
	o, lc, store := newTestOrchestrator(creds, &stubRuntime{})
	ctx := context.Background()

	if err := lc.StartAgent(ctx, "t1", domain.AgentFinancialReasoner); err != nil {
		t.Fatalf("start: %v", err)
	}
	creds.keyErr = map[domain.Provider]error{domain.ProviderOpenRouter: credentials.ErrKeyNotFound}

	_, err := o.AskQuestion(ctx, "t1", "doc-1", "any question")
	if !errors.Is(err, credentials.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if got := store.TenantStats("t1").APICallsToday; got != 0 {
		t.Errorf("APICallsToday = %d after failed question, want 0", got)
	}
}

func TestOrchestrator_AskQuestionRuntimeFailure(t *testing.T) {
	rt := &stubRuntime{answerErr: errors.New("model timeout")}
	o, lc, store := newTestOrchestrator(allValidCredentials(), rt)
	ctx := context.Background()

	if err := lc.StartAgent(ctx, "t1", domain.AgentFinancialReasoner); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := o.AskQuestion(ctx, "t1", "doc-1", "any question"); err == nil {
		t.Fatal("expected runtime error")
	}
	if got := store.TenantStats("t1").APICallsToday; got != 0 {
		t.Errorf("APICallsToday = %d after failed question, want 0", got)
	}
	rec, _ := store.AgentSnapshot("t1", domain.AgentFinancialReasoner)
	if got := rec.Stats["questions_answered"]; got != 0 {
		t.Errorf("questions_answered = %d after failed question, want 0", got)
	}
}
