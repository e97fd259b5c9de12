// Package runtime implements the agent runtimes behind domain.AgentRuntime.
// The simulated runtime stands in for the external document and LLM services
// with fixed delays; the HTTP runtime talks to a real agent-runtime service.
package runtime

import (
	"fmt"

	"github.com/axisfin/conductor/internal/domain"
)

// Runtime kind constants
const (
	KindSimulated = "simulated"
	KindHTTP      = "http"
)

// New creates an agent runtime based on the kind name.
// Returns an error if the kind is unknown or the base URL is missing.
func New(kind, baseURL string) (domain.AgentRuntime, error) {
	switch kind {
	case KindSimulated:
		return NewSimulated(), nil

	case KindHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("AGENT_RUNTIME_URL is required for http agent runtime")
		}
		return NewHTTPRuntime(baseURL), nil

	default:
		return nil, fmt.Errorf("unknown agent runtime: %s (valid options: simulated, http)", kind)
	}
}
