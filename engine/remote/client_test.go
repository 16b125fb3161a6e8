package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/mutagen/config"
)

func writeTokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("secret-token\n"), 0600))
	return path
}

func testConfig(t *testing.T, baseURL string) *config.ModelConfig {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendRemote
	cfg.Strategy = config.StrategyRemote
	cfg.ModelUsed = "luminous-base"
	cfg.BaseURL = baseURL
	cfg.APITokenFile = writeTokenFile(t)
	cfg.Retry = config.RetryConfig{
		MaxRetries:    5,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return cfg
}

func TestNewClient_MissingTokenFile(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.ModelType = config.BackendRemote
	cfg.Strategy = config.StrategyRemote
	cfg.ModelUsed = "luminous-base"
	cfg.APITokenFile = "/nonexistent/token"

	_, err := NewClient(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api token file")
}

func TestComplete_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		require.Equal(t, "/complete", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		if attempts < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "luminous-base", req.Model)
		assert.True(t, req.RepetitionPenaltiesIncludePrompt)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"completions": []map[string]string{{"completion": "def walk(): return 1"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(t, srv.URL), nil, nil)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "def walk():")
	require.NoError(t, err)
	// exactly three attempts: two failures, then the returned completion
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "def walk(): return 1", text)
}

func TestComplete_RetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permanently broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Retry.MaxRetries = 2
	client, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestComplete_CancellationPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "failing", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Retry.MaxRetries = 0 // unbounded, only cancellation exits
	client, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := client.Complete(ctx, "prompt")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not exit the retry loop")
	}
}

func TestComplete_EmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"completions": []interface{}{}})
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Retry.MaxRetries = 1
	client, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}
