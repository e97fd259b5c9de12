package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a service customer as known to the HTTP auth layer. Agent
// status is keyed by the tenant ID string; the coordination layer itself
// never reads this struct.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TenantStats aggregates one tenant's processing counters. ActiveAgents is
// recomputed after every status transition and always equals the number of
// agents currently in StatusActive.
type TenantStats struct {
	DocumentsProcessed   int64   `json:"documents_processed"`
	ActiveAgents         int     `json:"active_agents"`
	AvgProcessingSeconds float64 `json:"avg_processing_seconds"`
	APICallsToday        int64   `json:"api_calls_today"`
}

// TenantAgentStatus is a point-in-time snapshot of one tenant's agent block.
type TenantAgentStatus struct {
	TenantID string                    `json:"tenant_id"`
	Agents   map[AgentType]AgentRecord `json:"agents"`
	Stats    TenantStats               `json:"stats"`
}

// GlobalStats aggregates across every tenant seen by this process.
type GlobalStats struct {
	Tenants              int     `json:"tenants"`
	DocumentsProcessed   int64   `json:"documents_processed"`
	ActiveAgents         int     `json:"active_agents"`
	AvgProcessingSeconds float64 `json:"avg_processing_seconds"`
	APICallsToday        int64   `json:"api_calls_today"`
}

// InitReport summarizes an InitializeTenant run.
type InitReport struct {
	TenantID string      `json:"tenant_id"`
	Active   int         `json:"active"`
	Total    int         `json:"total"`
	Failed   []AgentType `json:"failed,omitempty"`
}
