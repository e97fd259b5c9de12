package domain

import (
	"context"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
	UpsertProviderKey(ctx context.Context, tenantID uuid.UUID, provider Provider, apiKey string, valid bool) error
}

// KeyStatus reports whether one provider key verified successfully.
type KeyStatus struct {
	Valid bool `json:"valid"`
}

// CredentialSource is the external tenant-credential service the lifecycle
// controller and orchestrator depend on. Implementations live in
// internal/credentials.
type CredentialSource interface {
	// VerifyKeys reports validity for every provider in the registry.
	// A provider with no configured key reports invalid.
	VerifyKeys(ctx context.Context, tenantID string) (map[Provider]KeyStatus, error)

	// APIKey returns the tenant's key for one provider. Missing or invalid
	// keys are errors.
	APIKey(ctx context.Context, tenantID string, provider Provider) (string, error)
}

// AgentRuntime performs the actual agent work: startup, shutdown, health
// checks, pipeline stages, question answering. The default implementation in
// internal/runtime simulates the external collaborators (OCR, extraction,
// LLM services) with fixed delays and doubles as the test stub.
type AgentRuntime interface {
	Start(ctx context.Context, tenantID string, agent AgentType, apiKey string) error
	Stop(ctx context.Context, tenantID string, agent AgentType) error
	HealthCheck(ctx context.Context, tenantID string, agent AgentType, apiKey string) error
	RunStage(ctx context.Context, tenantID string, agent AgentType, apiKey string, doc Document) (StageOutput, error)
	Answer(ctx context.Context, tenantID, apiKey, documentID, question string) (string, error)
}
