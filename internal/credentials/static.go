package credentials

import (
	"context"

	"github.com/axisfin/conductor/internal/domain"
)

// StaticSource serves the same fixed key set to every tenant. Intended for
// development and the simulated runtime, where keys are read once from the
// environment. A key is valid when it is present and non-empty.
type StaticSource struct {
	keys map[domain.Provider]string
}

func NewStaticSource(keys map[domain.Provider]string) *StaticSource {
	if keys == nil {
		keys = make(map[domain.Provider]string)
	}
	return &StaticSource{keys: keys}
}

func (s *StaticSource) VerifyKeys(_ context.Context, _ string) (map[domain.Provider]domain.KeyStatus, error) {
	out := make(map[domain.Provider]domain.KeyStatus, len(s.keys))
	for _, p := range domain.AllProviders() {
		out[p] = domain.KeyStatus{Valid: s.keys[p] != ""}
	}
	return out, nil
}

func (s *StaticSource) APIKey(_ context.Context, _ string, provider domain.Provider) (string, error) {
	key, ok := s.keys[provider]
	if !ok || key == "" {
		return "", ErrKeyNotFound
	}
	return key, nil
}
