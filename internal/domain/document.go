package domain

import "time"

// Document is one financial document submitted for processing. Content is
// whatever the upstream ingestion layer produced (raw text, OCR output);
// the coordination layer treats it as opaque.
type Document struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StageOutput is what a runtime returns for one executed pipeline stage.
type StageOutput struct {
	Summary string `json:"summary,omitempty"`
}

// StageRun reports one pipeline stage of a processing run. Stages whose
// agent was not active are recorded as skipped rather than silently omitted.
type StageRun struct {
	Agent           AgentType `json:"agent"`
	Skipped         bool      `json:"skipped"`
	DurationSeconds float64   `json:"duration_seconds"`
	Summary         string    `json:"summary,omitempty"`
}

// ProcessResult is the outcome of a successful document-processing run.
type ProcessResult struct {
	TenantID          string     `json:"tenant_id"`
	DocumentID        string     `json:"document_id"`
	Stages            []StageRun `json:"stages"`
	ProcessingSeconds float64    `json:"processing_seconds"`
	CompletedAt       time.Time  `json:"completed_at"`
}

// Answer is the outcome of a question-answering call.
type Answer struct {
	TenantID          string  `json:"tenant_id"`
	DocumentID        string  `json:"document_id"`
	Question          string  `json:"question"`
	Answer            string  `json:"answer"`
	ProcessingSeconds float64 `json:"processing_seconds"`
}
