package autorag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Passage is one ranked retrieval hit. SourceID identifies the originating
// document and is only used internally for context tagging.
type Passage struct {
	Content  string
	SourceID string
	Score    float64
}

// SearchOptions caps and filters a retrieval call.
type SearchOptions struct {
	MaxResults        int
	ScoreThreshold    float64
	SystemInstruction string
}

// Searcher is the retrieval capability consumed by the bridge.
type Searcher interface {
	// AISearch returns a directly generated answer, or "" when the
	// backend produced nothing usable.
	AISearch(ctx context.Context, query, scopeFilter string, opts SearchOptions) (string, error)

	// Search returns ranked passages scoped to the given filter.
	Search(ctx context.Context, query, scopeFilter string, opts SearchOptions) ([]Passage, error)
}

// Client talks to an AutoRAG-style retrieval service over HTTP.
type Client struct {
	BaseURL   string
	Namespace string
	APIToken  string
	Client    *http.Client
}

var _ Searcher = &Client{}

func NewClient(baseURL, namespace, apiToken string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Namespace: namespace,
		APIToken:  apiToken,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- Request/Response structs (internal to this package) ---

type searchRequest struct {
	Query          string          `json:"query"`
	SystemPrompt   string          `json:"system_prompt,omitempty"`
	MaxNumResults  int             `json:"max_num_results,omitempty"`
	RankingOptions *rankingOptions `json:"ranking_options,omitempty"`
	Filters        *scopeFilter    `json:"filters,omitempty"`
}

type rankingOptions struct {
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
}

type scopeFilter struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Response string         `json:"response"`
		Data     []searchResult `json:"data"`
	} `json:"result"`
}

type searchResult struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Content  []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// --- Interface implementation ---

func (c *Client) AISearch(ctx context.Context, query, scopeFilter string, opts SearchOptions) (string, error) {
	res, err := c.post(ctx, "ai-search", query, scopeFilter, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Result.Response), nil
}

func (c *Client) Search(ctx context.Context, query, scope string, opts SearchOptions) ([]Passage, error) {
	res, err := c.post(ctx, "search", query, scope, opts)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(res.Result.Data))
	for _, hit := range res.Result.Data {
		var parts []string
		for _, chunk := range hit.Content {
			if chunk.Text != "" {
				parts = append(parts, chunk.Text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		source := hit.Filename
		if source == "" {
			source = hit.FileID
		}
		passages = append(passages, Passage{
			Content:  strings.Join(parts, "\n"),
			SourceID: source,
			Score:    hit.Score,
		})
	}

	return passages, nil
}

func (c *Client) post(ctx context.Context, endpoint, query, scope string, opts SearchOptions) (*searchResponse, error) {
	reqPayload := searchRequest{
		Query:         query,
		SystemPrompt:  opts.SystemInstruction,
		MaxNumResults: opts.MaxResults,
	}
	if opts.ScoreThreshold > 0 {
		reqPayload.RankingOptions = &rankingOptions{ScoreThreshold: opts.ScoreThreshold}
	}
	if scope != "" {
		reqPayload.Filters = &scopeFilter{Type: "eq", Key: "folder", Value: scope}
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/autorag/rags/%s/%s", c.BaseURL, c.Namespace, endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("autorag request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autorag returned status %d: %s", resp.StatusCode, string(body))
	}

	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !res.Success {
		return nil, fmt.Errorf("autorag %s reported failure", endpoint)
	}

	return &res, nil
}
