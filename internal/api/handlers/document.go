package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/axisfin/conductor/internal/api/middleware"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/service"
)

type DocumentHandler struct {
	svc *service.Orchestrator
}

func NewDocumentHandler(svc *service.Orchestrator) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type processDocumentRequest struct {
	Document domain.Document `json:"document"`
}

// Process runs a document through the extraction pipeline.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req processDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Document.ID == "" {
		writeError(w, http.StatusBadRequest, "document.id is required")
		return
	}

	result, err := h.svc.ProcessDocument(r.Context(), tenant.ID.String(), req.Document)
	if err != nil {
		writeServiceError(w, err, "failed to process document")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type askQuestionRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

// Ask answers a question about a previously processed document.
func (h *DocumentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req askQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.svc.AskQuestion(r.Context(), tenant.ID.String(), req.DocumentID, req.Question)
	if err != nil {
		writeServiceError(w, err, "failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
