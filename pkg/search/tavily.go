// Package search implements the retrieval backend on the Tavily API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikeboe/company-researcher/pkg/state"
)

const defaultBaseURL = "https://api.tavily.com"

// TavilyClient talks to the Tavily search and extract endpoints. It
// implements both nodes.Searcher and nodes.Extractor.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewTavilyClient creates a client with the given API key.
func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		maxResults: 5,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at a different endpoint, used in tests.
func (t *TavilyClient) WithBaseURL(url string) *TavilyClient {
	t.baseURL = url
	return t
}

type tavilySearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content"`
	Score      float64 `json:"score"`
}

type tavilySearchResponse struct {
	Results []tavilySearchResult `json:"results"`
}

// Search runs one query and returns documents keyed by URL. No results is an
// empty map, not an error.
func (t *TavilyClient) Search(ctx context.Context, query string) (map[string]state.Document, error) {
	reqBody := map[string]interface{}{
		"api_key":             t.apiKey,
		"query":               query,
		"search_depth":        "basic",
		"max_results":         t.maxResults,
		"include_raw_content": true,
	}

	var resp tavilySearchResponse
	if err := t.post(ctx, "/search", reqBody, &resp); err != nil {
		return nil, err
	}

	docs := make(map[string]state.Document, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		docs[r.URL] = state.Document{
			Title:      r.Title,
			RawContent: content,
			Score:      r.Score,
		}
	}
	return docs, nil
}

type tavilyExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Extract fetches the raw content of one page.
func (t *TavilyClient) Extract(ctx context.Context, url string) (string, error) {
	reqBody := map[string]interface{}{
		"api_key": t.apiKey,
		"urls":    []string{url},
	}

	var resp tavilyExtractResponse
	if err := t.post(ctx, "/extract", reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no content extracted for %s", url)
	}
	return resp.Results[0].RawContent, nil
}

func (t *TavilyClient) post(ctx context.Context, path string, reqBody interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status: %s, body: %s", resp.Status, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
