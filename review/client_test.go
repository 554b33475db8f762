package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coderoast-backend/apperr"
	"coderoast-backend/config"
)

func modelsLabServer(t *testing.T, status int, body string, check func(req modelsLabRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req modelsLabRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelsLabGenerate(t *testing.T) {
	srv := modelsLabServer(t, http.StatusOK, `{"status":"success","message":"hello"}`, func(req modelsLabRequest) {
		assert.Equal(t, "secret", req.Key)
		assert.Equal(t, 2000, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
	})
	c := NewModelsLabClient(config.LLMConfig{APIKey: "secret", Endpoint: srv.URL, Timeout: time.Second})

	out, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestModelsLabTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, `oops`, http.StatusInternalServerError},
		{"rate limited", http.StatusTooManyRequests, `{}`, http.StatusTooManyRequests},
		{"unparseable body", http.StatusOK, `<html>`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := modelsLabServer(t, tt.status, tt.body, nil)
			c := NewModelsLabClient(config.LLMConfig{Endpoint: srv.URL, Timeout: time.Second})

			_, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
			require.Error(t, err)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindTransport, e.Kind)
			assert.Equal(t, tt.wantStatus, e.StatusCode)
		})
	}
}

func TestModelsLabErrorReplyIsReturnedAsOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"status":"error","message":"Server is busy"}`, "Server is busy"},
		{"error field", `{"status":"error","error":"quota"}`, `"quota"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := modelsLabServer(t, http.StatusOK, tt.body, nil)
			c := NewModelsLabClient(config.LLMConfig{Endpoint: srv.URL, Timeout: time.Second})

			out, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestModelsLabTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := NewModelsLabClient(config.LLMConfig{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})

	_, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindTransport, e.Kind)
	assert.Equal(t, 0, e.StatusCode)
}

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	srv := openAIServer(t, http.StatusOK,
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\":1}"}}]}`)
	c := NewOpenAIClient(config.LLMConfig{APIKey: "sk-test", Endpoint: srv.URL + "/v1", Model: "gpt-4o-mini", Timeout: time.Second})

	out, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
	require.NoError(t, err)
	assert.Equal(t, `{"score":1}`, out)
}

func TestOpenAIErrorCarriesStatus(t *testing.T) {
	srv := openAIServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	c := NewOpenAIClient(config.LLMConfig{APIKey: "sk-test", Endpoint: srv.URL + "/v1", Model: "gpt-4o-mini", Timeout: time.Second})

	_, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindTransport, e.Kind)
	assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
}

func TestOpenAINoChoicesIsEmptyOutput(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"id":"1","object":"chat.completion","choices":[]}`)
	c := NewOpenAIClient(config.LLMConfig{APIKey: "sk-test", Endpoint: srv.URL + "/v1", Model: "gpt-4o-mini", Timeout: time.Second})

	out, err := c.Generate(context.Background(), BuildMessages("x", "go"), MaxOutputTokens)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(config.LLMConfig{Provider: config.ProviderModelsLab})
	require.NoError(t, err)
	assert.Equal(t, config.ProviderModelsLab, g.Name())

	g, err = NewGenerator(config.LLMConfig{Provider: config.ProviderOpenAI})
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, g.Name())

	_, err = NewGenerator(config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
