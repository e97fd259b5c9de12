package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/axisfin/conductor/internal/domain"
)

// HTTPRuntime drives agents hosted by a remote agent-runtime service.
// Provider API keys are forwarded per call; nothing is stored here.
type HTTPRuntime struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPRuntime(baseURL string) *HTTPRuntime {
	return &HTTPRuntime{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type stageRequest struct {
	Document domain.Document `json:"document"`
}

type stageResponse struct {
	Summary string `json:"summary"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type answerRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type ackResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *HTTPRuntime) post(ctx context.Context, apiKey, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal runtime request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create runtime request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("runtime request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read runtime response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent runtime returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal runtime response: %w", err)
		}
	}
	return nil
}

func (r *HTTPRuntime) agentPath(tenantID string, agent domain.AgentType, op string) string {
	return fmt.Sprintf("/v1/tenants/%s/agents/%s/%s", tenantID, agent, op)
}

func (r *HTTPRuntime) Start(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	var ack ackResponse
	if err := r.post(ctx, apiKey, r.agentPath(tenantID, agent, "start"), nil, &ack); err != nil {
		return err
	}
	if ack.Error != nil {
		return fmt.Errorf("agent runtime error: %s", ack.Error.Message)
	}
	return nil
}

func (r *HTTPRuntime) Stop(ctx context.Context, tenantID string, agent domain.AgentType) error {
	var ack ackResponse
	if err := r.post(ctx, "", r.agentPath(tenantID, agent, "stop"), nil, &ack); err != nil {
		return err
	}
	if ack.Error != nil {
		return fmt.Errorf("agent runtime error: %s", ack.Error.Message)
	}
	return nil
}

func (r *HTTPRuntime) HealthCheck(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string) error {
	var ack ackResponse
	if err := r.post(ctx, apiKey, r.agentPath(tenantID, agent, "health"), nil, &ack); err != nil {
		return err
	}
	if ack.Error != nil {
		return fmt.Errorf("agent runtime error: %s", ack.Error.Message)
	}
	return nil
}

func (r *HTTPRuntime) RunStage(ctx context.Context, tenantID string, agent domain.AgentType, apiKey string, doc domain.Document) (domain.StageOutput, error) {
	var result stageResponse
	if err := r.post(ctx, apiKey, r.agentPath(tenantID, agent, "run"), stageRequest{Document: doc}, &result); err != nil {
		return domain.StageOutput{}, err
	}
	if result.Error != nil {
		return domain.StageOutput{}, fmt.Errorf("agent runtime error: %s", result.Error.Message)
	}
	return domain.StageOutput{Summary: result.Summary}, nil
}

func (r *HTTPRuntime) Answer(ctx context.Context, tenantID, apiKey, documentID, question string) (string, error) {
	var result answerResponse
	path := fmt.Sprintf("/v1/tenants/%s/answers", tenantID)
	if err := r.post(ctx, apiKey, path, answerRequest{DocumentID: documentID, Question: question}, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("agent runtime error: %s", result.Error.Message)
	}
	return strings.TrimSpace(result.Answer), nil
}
