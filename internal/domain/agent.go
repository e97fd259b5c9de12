package domain

import "time"

// AgentType identifies one of the fixed set of seven agents every tenant gets.
type AgentType string

const (
	AgentDocumentAnalyzer     AgentType = "document-analyzer"
	AgentTableUnderstanding   AgentType = "table-understanding"
	AgentSecuritiesExtractor  AgentType = "securities-extractor"
	AgentFinancialReasoner    AgentType = "financial-reasoner"
	AgentCoordinator          AgentType = "coordinator"
	AgentPortfolioPerformance AgentType = "portfolio-performance"
	AgentBloomberg            AgentType = "bloomberg"
)

// AgentStatus is the lifecycle state of a single agent.
// Transitions: inactive/error -> loading -> active (start),
// any -> loading -> inactive (stop), loading round-trip back to the
// prior status (test).
type AgentStatus string

const (
	StatusInactive AgentStatus = "inactive"
	StatusLoading  AgentStatus = "loading"
	StatusActive   AgentStatus = "active"
	StatusError    AgentStatus = "error"
)

// Provider is the external credential namespace an agent's API key lives in.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderOpenRouter Provider = "openrouter"
)

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// MaxAgentLogEntries bounds each agent's log; oldest entries are evicted first.
const MaxAgentLogEntries = 100

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

type AgentRecord struct {
	Type        AgentType        `json:"type"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      AgentStatus      `json:"status"`
	Provider    Provider         `json:"provider"`
	Logs        []LogEntry       `json:"logs"`
	Stats       map[string]int64 `json:"stats"`
}
