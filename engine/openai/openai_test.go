package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
)

type completionRequest struct {
	Prompt []string `json:"prompt"`
	N      int      `json:"n"`
}

type choice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

type completionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Choices []choice `json:"choices"`
}

// newCompletionServer fakes an OpenAI-compatible completion endpoint that
// echoes each prompt back with a marker suffix.
func newCompletionServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/completions", r.URL.Path)
		*requests++

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		n := req.N
		if n == 0 {
			n = 1
		}

		resp := completionResponse{ID: "cmpl-test", Object: "text_completion"}
		for i, p := range req.Prompt {
			for k := 0; k < n; k++ {
				resp.Choices = append(resp.Choices, choice{
					Text:         fmt.Sprintf(" generated-%d for %s", k, p),
					Index:        i*n + k,
					FinishReason: "stop",
				})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testConfig(baseURL string, batchSize, n int) *config.ModelConfig {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendOpenAI
	cfg.ModelPath = "code-davinci-002"
	cfg.BaseURL = baseURL + "/v1"
	cfg.BatchSize = batchSize
	cfg.NumReturnSequences = n
	return cfg
}

func TestEngine_GenerateAndBatch(t *testing.T) {
	requests := 0
	srv := newCompletionServer(t, &requests)
	defer srv.Close()

	eng, err := New(testConfig(srv.URL, 4, 1), "test-key", nil, nil)
	require.NoError(t, err)

	prompts := []string{"p0", "p1", "p2", "p3", "p4", "p5"}
	set, err := eng.Generate(context.Background(), prompts)
	require.NoError(t, err)

	// 6 prompts with batch size 4 means two API calls
	assert.Equal(t, 2, requests)
	assert.Equal(t, prompts, set.Prompts())
	assert.Equal(t, " generated-0 for p3", set.Get("p3")[0].Text)
}

func TestEngine_NumReturnSequences(t *testing.T) {
	requests := 0
	srv := newCompletionServer(t, &requests)
	defer srv.Close()

	eng, err := New(testConfig(srv.URL, 4, 2), "test-key", nil, nil)
	require.NoError(t, err)

	set, err := eng.Generate(context.Background(), []string{"seed"})
	require.NoError(t, err)

	gens := set.Get("seed")
	require.Len(t, gens, 2)
	assert.Equal(t, " generated-0 for seed", gens[0].Text)
	assert.Equal(t, " generated-1 for seed", gens[1].Text)
}

func TestEngine_CacheSkipsRepeatCalls(t *testing.T) {
	requests := 0
	srv := newCompletionServer(t, &requests)
	defer srv.Close()

	cfg := testConfig(srv.URL, 4, 1)
	cfg.CacheSize = 16
	eng, err := New(cfg, "test-key", nil, nil)
	require.NoError(t, err)

	_, err = eng.Generate(context.Background(), []string{"p"})
	require.NoError(t, err)
	set, err := eng.Generate(context.Background(), []string{"p"})
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Len(t, set.Get("p"), 1)
}

func TestEngine_DuplicatePromptsSingleRequest(t *testing.T) {
	requests := 0
	srv := newCompletionServer(t, &requests)
	defer srv.Close()

	eng, err := New(testConfig(srv.URL, 4, 1), "test-key", nil, nil)
	require.NoError(t, err)

	set, err := eng.Generate(context.Background(), []string{"dup", "dup"})
	require.NoError(t, err)

	// duplicates merge under one key and are only sent once
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, requests)
}

func TestNew_ConfigErrors(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendOpenAI
	cfg.ModelPath = ""
	_, err := New(cfg, "k", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	cfg = config.DefaultModelConfig()
	cfg.ModelType = config.BackendOpenAI
	cfg.ModelPath = "m"
	cfg.LogitsOnly = true
	_, err = New(cfg, "k", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
