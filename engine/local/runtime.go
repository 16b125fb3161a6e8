// Package local implements the batched inference engine for a locally hosted
// generative model. The model itself lives behind a Runtime boundary; this
// package owns chunking, padding, prefix slicing, and result accumulation.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenerateRequest carries one padded chunk plus decode parameters. Decode
// parameters come from the shared configuration and apply uniformly to every
// chunk.
type GenerateRequest struct {
	InputIDs           [][]int `json:"input_ids"`
	AttentionMask      [][]int `json:"attention_mask"`
	DoSample           bool    `json:"do_sample"`
	NumReturnSequences int     `json:"num_return_sequences"`
	Temperature        float32 `json:"temperature"`
	TopP               float32 `json:"top_p"`
	MaxNewTokens       int     `json:"max_new_tokens"`
	PadTokenID         int     `json:"pad_token_id"`
}

// GenerateResponse returns full sequences (prompt plus continuation), with
// num_return_sequences consecutive entries per input position.
type GenerateResponse struct {
	Sequences [][]int `json:"sequences"`
}

// ScoreRequest carries one padded chunk for a logits-only forward pass.
type ScoreRequest struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
}

// ScoreResponse returns one row of per-position score vectors per input.
type ScoreResponse struct {
	Logits [][][]float32 `json:"logits"`
}

// Runtime is the boundary to the hosted model process. Calls block for the
// duration of the forward or generate pass.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Score(ctx context.Context, req ScoreRequest) (ScoreResponse, error)
}

// HTTPRuntime talks to a local inference server over JSON/HTTP.
type HTTPRuntime struct {
	client  *http.Client
	baseURL string
}

// NewHTTPRuntime creates a runtime client for the given server base URL.
func NewHTTPRuntime(baseURL string) *HTTPRuntime {
	return &HTTPRuntime{
		client: &http.Client{
			Timeout: 10 * time.Minute, // generation of a full chunk can be slow
		},
		baseURL: baseURL,
	}
}

// Generate runs autoregressive sampling for one chunk.
func (r *HTTPRuntime) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var resp GenerateResponse
	if err := r.post(ctx, "/v1/generate", req, &resp); err != nil {
		return GenerateResponse{}, err
	}
	if len(resp.Sequences) != len(req.InputIDs)*req.NumReturnSequences {
		return GenerateResponse{}, fmt.Errorf("runtime returned %d sequences for %d inputs",
			len(resp.Sequences), len(req.InputIDs))
	}
	return resp, nil
}

// Score runs a forward pass for one chunk and returns output scores.
func (r *HTTPRuntime) Score(ctx context.Context, req ScoreRequest) (ScoreResponse, error) {
	var resp ScoreResponse
	if err := r.post(ctx, "/v1/scores", req, &resp); err != nil {
		return ScoreResponse{}, err
	}
	if len(resp.Logits) != len(req.InputIDs) {
		return ScoreResponse{}, fmt.Errorf("runtime returned %d score rows for %d inputs",
			len(resp.Logits), len(req.InputIDs))
	}
	return resp, nil
}

// post sends a JSON request and decodes the JSON response.
func (r *HTTPRuntime) post(ctx context.Context, path string, in, out interface{}) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal runtime request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("runtime request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("runtime returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode runtime response: %w", err)
	}
	return nil
}
