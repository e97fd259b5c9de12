package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/axisfin/conductor/internal/api/middleware"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/store"
)

type TenantHandler struct {
	store domain.TenantStore
}

func NewTenantHandler(store domain.TenantStore) *TenantHandler {
	return &TenantHandler{store: store}
}

type createTenantRequest struct {
	Name         string            `json:"name"`
	ProviderKeys map[string]string `json:"provider_keys"`
}

type createTenantResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// Create provisions a tenant along with its provider API keys. The service
// API key is returned exactly once; only its hash is stored.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	for provider := range req.ProviderKeys {
		if !knownProvider(domain.Provider(provider)) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider: %s", provider))
			return
		}
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	tenant := &domain.Tenant{
		Name:       req.Name,
		APIKeyHash: middleware.HashAPIKey(apiKey),
	}

	if err := h.store.Create(r.Context(), tenant); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "tenant already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	for provider, key := range req.ProviderKeys {
		if err := h.store.UpsertProviderKey(r.Context(), tenant.ID, domain.Provider(provider), key, true); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store provider key")
			return
		}
	}

	writeJSON(w, http.StatusCreated, createTenantResponse{
		ID:     tenant.ID.String(),
		Name:   tenant.Name,
		APIKey: apiKey,
	})
}

func knownProvider(p domain.Provider) bool {
	for _, known := range domain.AllProviders() {
		if p == known {
			return true
		}
	}
	return false
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ck_" + hex.EncodeToString(b), nil
}
