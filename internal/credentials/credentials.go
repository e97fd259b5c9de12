// Package credentials resolves per-tenant provider API keys. Agent startup
// is gated on these keys: an agent may only become active when its
// provider's key exists and is marked valid.
package credentials

import (
	"errors"
	"fmt"

	"github.com/axisfin/conductor/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrKeyNotFound means the tenant has no key configured for the provider.
	ErrKeyNotFound = errors.New("credentials: api key not found")
	// ErrKeyInvalid means a key exists but has been marked invalid.
	ErrKeyInvalid = errors.New("credentials: api key invalid")
)

// Backend constants
const (
	BackendPostgres = "postgres"
	BackendStatic   = "static"
)

// NewSource creates a credential source based on the backend name.
// Returns an error if the backend is unknown or misconfigured.
func NewSource(backend string, db *pgxpool.Pool, staticKeys map[domain.Provider]string) (domain.CredentialSource, error) {
	switch backend {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres credentials backend")
		}
		return NewPostgresSource(db), nil

	case BackendStatic:
		return NewStaticSource(staticKeys), nil

	default:
		return nil, fmt.Errorf("unknown credentials backend: %s (valid options: postgres, static)", backend)
	}
}
