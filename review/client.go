package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"coderoast-backend/apperr"
	"coderoast-backend/config"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged turn sent to the generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator sends messages to an external text-generation service and returns its raw text.
// Failures are reported as *apperr.Error of KindTransport.
type Generator interface {
	Generate(ctx context.Context, messages []Message, maxTokens int) (string, error)
	Name() string
}

// NewGenerator builds the client selected by cfg.Provider.
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderModelsLab:
		return NewModelsLabClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ModelsLabClient talks to the ModelsLab chat endpoint. One attempt, no retries;
// the http.Client timeout bounds the call.
type ModelsLabClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewModelsLabClient(cfg config.LLMConfig) *ModelsLabClient {
	return &ModelsLabClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *ModelsLabClient) Name() string { return config.ProviderModelsLab }

func (m *ModelsLabClient) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	payload, err := json.Marshal(modelsLabRequest{
		Key:       m.apiKey,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", apperr.Transport(0, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Transport(resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Transport(resp.StatusCode, fmt.Errorf("ModelsLab API error: %d", resp.StatusCode))
	}

	var out modelsLabResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperr.Transport(resp.StatusCode, fmt.Errorf("parsing response: %w", err))
	}
	// A 2xx error reply is still model output; salvage degrades it to a fallback review.
	if out.Status == "error" {
		return out.errorText(), nil
	}
	return out.Message, nil
}

type modelsLabRequest struct {
	Key       string    `json:"key"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type modelsLabResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error,omitempty"`
}

func (r modelsLabResponse) errorText() string {
	if len(r.Error) > 0 {
		return string(r.Error)
	}
	return r.Message
}
