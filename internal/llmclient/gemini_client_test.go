package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/codesmith/internal/config"
)

// setupGeminiClient rigs up a GeminiClient pointed at a mock HTTP server.
func setupGeminiClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, logs := setupTestLogger(t)
	cfg := getValidLLMConfig(config.ProviderGemini)
	cfg.Model = "gemini-test"
	cfg.Endpoint = server.URL + "/"

	client, err := NewGeminiClient(context.Background(), cfg, logger)
	require.NoError(t, err)
	return client, logs
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	logger, _ := setupTestLogger(t)
	cfg := getValidLLMConfig(config.ProviderGemini)
	cfg.APIKey = ""

	_, err := NewGeminiClient(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini API Key is required")
}

func TestGeminiClient_Generate_Success(t *testing.T) {
	var captured map[string]interface{}
	client, logs := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"language\": \"python\"}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`))
	})

	req := createTestRequest()
	req.Options.ForceJSONFormat = true
	resp, err := client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"language": "python"}`, resp)

	genCfg, ok := captured["generationConfig"].(map[string]interface{})
	require.True(t, ok, "generationConfig must be sent")
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.EqualValues(t, 1024, genCfg["maxOutputTokens"])
	assert.Contains(t, captured, "systemInstruction")

	entries := logs.FilterMessage("LLM generation complete (Gemini)").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 15, entries[0].ContextMap()["total_tokens"])
}

func TestGeminiClient_Generate_EmptyCandidates(t *testing.T) {
	client, _ := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"finishReason": "SAFETY"}]}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiClient_Generate_ServerError(t *testing.T) {
	client, _ := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
