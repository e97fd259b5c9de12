package credentials

import (
	"context"
	"errors"

	"github.com/axisfin/conductor/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads provider keys from the tenant_provider_keys table.
// Key validity is a stored flag maintained out of band (billing, key
// rotation); this source never calls the providers themselves.
type PostgresSource struct {
	db *pgxpool.Pool
}

func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) VerifyKeys(ctx context.Context, tenantID string) (map[domain.Provider]domain.KeyStatus, error) {
	out := make(map[domain.Provider]domain.KeyStatus, 2)
	for _, p := range domain.AllProviders() {
		out[p] = domain.KeyStatus{Valid: false}
	}

	rows, err := s.db.Query(ctx,
		`SELECT provider, valid FROM tenant_provider_keys WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var valid bool
		if err := rows.Scan(&provider, &valid); err != nil {
			return nil, err
		}
		out[domain.Provider(provider)] = domain.KeyStatus{Valid: valid}
	}
	return out, rows.Err()
}

func (s *PostgresSource) APIKey(ctx context.Context, tenantID string, provider domain.Provider) (string, error) {
	var key string
	var valid bool
	err := s.db.QueryRow(ctx,
		`SELECT api_key, valid FROM tenant_provider_keys
		 WHERE tenant_id = $1 AND provider = $2`,
		tenantID, string(provider),
	).Scan(&key, &valid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	if !valid {
		return "", ErrKeyInvalid
	}
	return key, nil
}
