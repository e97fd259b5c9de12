package domain

// AgentDescriptor is the static definition of one agent type: display
// metadata, the credential provider it depends on, and — for pipeline
// stages — the counter it accumulates per processed document.
type AgentDescriptor struct {
	Type        AgentType
	Name        string
	Description string
	Provider    Provider

	// StatKey and StatIncrement apply to agents that accumulate a counter
	// during document processing; zero values for the rest.
	StatKey       string
	StatIncrement int64
}

// agentRegistry fixes the supported agent set. Every tenant gets exactly
// these seven; there is no dynamic registration.
var agentRegistry = []AgentDescriptor{
	{
		Type:          AgentDocumentAnalyzer,
		Name:          "Document Analyzer",
		Description:   "Analyzes document structure and classifies financial document types",
		Provider:      ProviderGoogle,
		StatKey:       "documents_analyzed",
		StatIncrement: 1,
	},
	{
		Type:          AgentTableUnderstanding,
		Name:          "Table Understanding",
		Description:   "Detects and extracts tables from financial documents",
		Provider:      ProviderGoogle,
		StatKey:       "tables_extracted",
		StatIncrement: 3,
	},
	{
		Type:          AgentSecuritiesExtractor,
		Name:          "Securities Extractor",
		Description:   "Extracts securities holdings (ISIN, quantity, valuation) from extracted tables",
		Provider:      ProviderOpenRouter,
		StatKey:       "securities_extracted",
		StatIncrement: 8,
	},
	{
		Type:          AgentFinancialReasoner,
		Name:          "Financial Reasoner",
		Description:   "Performs financial reasoning over extracted data and answers questions",
		Provider:      ProviderOpenRouter,
		StatKey:       "analyses_completed",
		StatIncrement: 1,
	},
	{
		Type:          AgentCoordinator,
		Name:          "Coordinator",
		Description:   "Coordinates the multi-agent document processing workflow",
		Provider:      ProviderGoogle,
		StatKey:       "jobs_coordinated",
		StatIncrement: 1,
	},
	{
		Type:        AgentPortfolioPerformance,
		Name:        "Portfolio Performance",
		Description: "Analyzes portfolio performance and valuation changes over time",
		Provider:    ProviderOpenRouter,
	},
	{
		Type:        AgentBloomberg,
		Name:        "Bloomberg Agent",
		Description: "Fetches market data and reference prices for extracted securities",
		Provider:    ProviderOpenRouter,
	},
}

// pipelineOrder is the fixed document-processing sequence. Not configurable.
var pipelineOrder = []AgentType{
	AgentDocumentAnalyzer,
	AgentTableUnderstanding,
	AgentSecuritiesExtractor,
	AgentFinancialReasoner,
}

var registryByType = func() map[AgentType]AgentDescriptor {
	m := make(map[AgentType]AgentDescriptor, len(agentRegistry))
	for _, d := range agentRegistry {
		m[d.Type] = d
	}
	return m
}()

// AllAgents returns the seven agent descriptors in registry order.
func AllAgents() []AgentDescriptor {
	out := make([]AgentDescriptor, len(agentRegistry))
	copy(out, agentRegistry)
	return out
}

// LookupAgent returns the descriptor for an agent type.
func LookupAgent(t AgentType) (AgentDescriptor, bool) {
	d, ok := registryByType[t]
	return d, ok
}

// PipelineStages returns the descriptors of the four pipeline stages in
// processing order.
func PipelineStages() []AgentDescriptor {
	out := make([]AgentDescriptor, 0, len(pipelineOrder))
	for _, t := range pipelineOrder {
		out = append(out, registryByType[t])
	}
	return out
}

// AllProviders returns the distinct credential providers the registry
// depends on, in first-appearance order.
func AllProviders() []Provider {
	seen := make(map[Provider]bool, 2)
	out := make([]Provider, 0, 2)
	for _, d := range agentRegistry {
		if !seen[d.Provider] {
			seen[d.Provider] = true
			out = append(out, d.Provider)
		}
	}
	return out
}
