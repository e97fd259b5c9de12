package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/metrics"
	"github.com/axisfin/conductor/internal/state"
	"go.uber.org/zap"
)

// Orchestrator runs the fixed document-processing pipeline and the
// question-answering entry point for one tenant at a time. Stages execute
// sequentially, never in parallel.
type Orchestrator struct {
	store       *state.Store
	credentials domain.CredentialSource
	runtime     domain.AgentRuntime
	logger      *zap.Logger
}

func NewOrchestrator(store *state.Store, credentials domain.CredentialSource, runtime domain.AgentRuntime, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:       store,
		credentials: credentials,
		runtime:     runtime,
		logger:      logger,
	}
}

var (
	ErrNoActiveAgents    = errors.New("no active agents found")
	ErrReasonerNotActive = errors.New("financial reasoner agent is not active")
)

// ProcessDocument runs the pipeline document-analyzer -> table-understanding
// -> securities-extractor -> financial-reasoner over one document. At least
// one pipeline-stage agent must be active; stages whose agent is not active
// are skipped and reported as skipped. Any stage error aborts the remaining
// stages; counters from completed stages remain, recording work actually
// performed.
func (o *Orchestrator) ProcessDocument(ctx context.Context, tenantID string, doc domain.Document) (*domain.ProcessResult, error) {
	stages := domain.PipelineStages()

	anyActive := false
	for _, d := range stages {
		if status, _ := o.store.Status(tenantID, d.Type); status == domain.StatusActive {
			anyActive = true
			break
		}
	}
	if !anyActive {
		o.logger.Warn("document rejected: no active pipeline agents",
			zap.String("tenant_id", tenantID),
			zap.String("document_id", doc.ID))
		return nil, ErrNoActiveAgents
	}

	o.logger.Info("document processing started",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.String("document", doc.Name))

	started := time.Now()
	runs := make([]domain.StageRun, 0, len(stages))

	for _, d := range stages {
		if status, _ := o.store.Status(tenantID, d.Type); status != domain.StatusActive {
			runs = append(runs, domain.StageRun{Agent: d.Type, Skipped: true})
			continue
		}

		run, err := o.runStage(ctx, tenantID, d, doc)
		if err != nil {
			o.store.AppendLog(tenantID, domain.AgentCoordinator, domain.LogError,
				fmt.Sprintf("Pipeline failed at %s: %v", d.Type, err))
			o.logger.Error("document processing aborted",
				zap.String("tenant_id", tenantID),
				zap.String("document_id", doc.ID),
				zap.String("stage", string(d.Type)),
				zap.Error(err))
			metrics.RecordDocument(tenantID, time.Since(started), err)
			return nil, err
		}
		runs = append(runs, run)
	}

	elapsed := time.Since(started)
	o.store.RecordDocumentProcessed(tenantID, elapsed.Seconds())

	coord, _ := domain.LookupAgent(domain.AgentCoordinator)
	o.store.AddAgentStat(tenantID, coord.Type, coord.StatKey, coord.StatIncrement)
	o.store.AppendLog(tenantID, coord.Type, domain.LogInfo,
		fmt.Sprintf("Document %q processed in %.2fs", doc.Name, elapsed.Seconds()))
	metrics.RecordDocument(tenantID, elapsed, nil)

	o.logger.Info("document processing completed",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.Duration("elapsed", elapsed))

	return &domain.ProcessResult{
		TenantID:          tenantID,
		DocumentID:        doc.ID,
		Stages:            runs,
		ProcessingSeconds: elapsed.Seconds(),
		CompletedAt:       time.Now().UTC(),
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, tenantID string, d domain.AgentDescriptor, doc domain.Document) (domain.StageRun, error) {
	apiKey, err := o.credentials.APIKey(ctx, tenantID, d.Provider)
	if err != nil {
		return domain.StageRun{}, fmt.Errorf("fetch %s api key: %w", d.Provider, err)
	}

	o.store.AppendLog(tenantID, d.Type, domain.LogInfo,
		fmt.Sprintf("Processing document %q", doc.Name))

	stageStart := time.Now()
	out, err := o.runtime.RunStage(ctx, tenantID, d.Type, apiKey, doc)
	if err != nil {
		return domain.StageRun{}, fmt.Errorf("stage %s: %w", d.Type, err)
	}
	stageElapsed := time.Since(stageStart)

	o.store.AddAgentStat(tenantID, d.Type, d.StatKey, d.StatIncrement)
	o.store.AppendLog(tenantID, d.Type, domain.LogInfo,
		fmt.Sprintf("Completed in %.2fs", stageElapsed.Seconds()))
	metrics.RecordStage(string(d.Type), stageElapsed)

	return domain.StageRun{
		Agent:           d.Type,
		DurationSeconds: stageElapsed.Seconds(),
		Summary:         out.Summary,
	}, nil
}

// AskQuestion answers one question about a processed document through the
// financial-reasoner agent, which must be active.
func (o *Orchestrator) AskQuestion(ctx context.Context, tenantID, documentID, question string) (*domain.Answer, error) {
	reasoner, _ := domain.LookupAgent(domain.AgentFinancialReasoner)

	if status, _ := o.store.Status(tenantID, reasoner.Type); status != domain.StatusActive {
		o.logger.Warn("question rejected: financial reasoner not active",
			zap.String("tenant_id", tenantID),
			zap.String("document_id", documentID))
		return nil, ErrReasonerNotActive
	}

	apiKey, err := o.credentials.APIKey(ctx, tenantID, reasoner.Provider)
	if err != nil {
		o.store.AppendLog(tenantID, reasoner.Type, domain.LogError,
			fmt.Sprintf("Question failed: %v", err))
		metrics.RecordQuestion(tenantID, err)
		return nil, fmt.Errorf("fetch %s api key: %w", reasoner.Provider, err)
	}

	o.store.AppendLog(tenantID, reasoner.Type, domain.LogInfo, "Answering question...")

	started := time.Now()
	answer, err := o.runtime.Answer(ctx, tenantID, apiKey, documentID, question)
	if err != nil {
		o.store.AppendLog(tenantID, reasoner.Type, domain.LogError,
			fmt.Sprintf("Question failed: %v", err))
		o.logger.Error("question answering failed",
			zap.String("tenant_id", tenantID),
			zap.String("document_id", documentID),
			zap.Error(err))
		metrics.RecordQuestion(tenantID, err)
		return nil, fmt.Errorf("answer question: %w", err)
	}
	elapsed := time.Since(started)

	o.store.RecordAPICall(tenantID)
	o.store.AddAgentStat(tenantID, reasoner.Type, "questions_answered", 1)
	o.store.AppendLog(tenantID, reasoner.Type, domain.LogInfo,
		fmt.Sprintf("Question answered in %.2fs", elapsed.Seconds()))
	metrics.RecordQuestion(tenantID, nil)

	o.logger.Info("question answered",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", documentID),
		zap.Duration("elapsed", elapsed))

	return &domain.Answer{
		TenantID:          tenantID,
		DocumentID:        documentID,
		Question:          question,
		Answer:            answer,
		ProcessingSeconds: elapsed.Seconds(),
	}, nil
}
