package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/axisfin/conductor/internal/domain"
)

// Simulated durations mirror the observed latencies of the real document and
// LLM services.
const (
	startDelay  = 1000 * time.Millisecond
	stopDelay   = 1000 * time.Millisecond
	healthDelay = 1500 * time.Millisecond
	answerDelay = 2000 * time.Millisecond
)

var stageDelays = map[domain.AgentType]time.Duration{
	domain.AgentDocumentAnalyzer:    1000 * time.Millisecond,
	domain.AgentTableUnderstanding:  1500 * time.Millisecond,
	domain.AgentSecuritiesExtractor: 1200 * time.Millisecond,
	domain.AgentFinancialReasoner:   800 * time.Millisecond,
}

// Simulated is the default agent runtime. It waits the fixed per-operation
// durations and returns canned results, doubling as the test stub when
// constructed with a zero delay scale.
type Simulated struct {
	scale float64
}

func NewSimulated() *Simulated {
	return &Simulated{scale: 1}
}

// NewSimulatedScaled multiplies every wait by scale. Zero disables waiting
// entirely while still honoring an already-cancelled context.
func NewSimulatedScaled(scale float64) *Simulated {
	if scale < 0 {
		scale = 0
	}
	return &Simulated{scale: scale}
}

func (r *Simulated) wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * r.scale)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Simulated) Start(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	return r.wait(ctx, startDelay)
}

func (r *Simulated) Stop(ctx context.Context, tenantID string, agent domain.AgentType) error {
	return r.wait(ctx, stopDelay)
}

func (r *Simulated) HealthCheck(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	return r.wait(ctx, healthDelay)
}

func (r *Simulated) RunStage(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string, doc domain.Document) (domain.StageOutput, error) {
	if err := r.wait(ctx, stageDelays[agent]); err != nil {
		return domain.StageOutput{}, err
	}

	var summary string
	switch agent {
	case domain.AgentDocumentAnalyzer:
		summary = fmt.Sprintf("classified %q as a financial portfolio statement", doc.Name)
	case domain.AgentTableUnderstanding:
		summary = fmt.Sprintf("extracted 3 tables from %q", doc.Name)
	case domain.AgentSecuritiesExtractor:
		summary = "extracted 8 securities holdings with ISIN, quantity and valuation"
	case domain.AgentFinancialReasoner:
		summary = "completed financial analysis of extracted holdings"
	default:
		return domain.StageOutput{}, fmt.Errorf("agent %s is not a pipeline stage", agent)
	}
	return domain.StageOutput{Summary: summary}, nil
}

func (r *Simulated) Answer(ctx context.Context, tenantID, apiKey, documentID, question string) (string, error) {
	if err := r.wait(ctx, answerDelay); err != nil {
		return "", err
	}
	return fmt.Sprintf("Analysis of document %s for %q: the portfolio holds 8 securities positions with stable valuations over the statement period.", documentID, question), nil
}
