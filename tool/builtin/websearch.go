package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

const duckDuckGoURL = "https://api.duckduckgo.com/"

// WebSearchOptions configure the web search tool.
type WebSearchOptions struct {
	HTTPClient *http.Client
	BaseURL    string
}

type webSearchTool struct {
	client  *http.Client
	baseURL string
}

// NewWebSearchTool constructs a search tool backed by the DuckDuckGo
// instant answer API. No API key is required.
func NewWebSearchTool(optFns ...func(o *WebSearchOptions)) tool.Tool {
	opts := WebSearchOptions{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    duckDuckGoURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &webSearchTool{client: opts.HTTPClient, baseURL: opts.BaseURL}
}

func (t *webSearchTool) Name() string { return "web_search" }

func (t *webSearchTool) Description() string {
	return "Perform a web search using DuckDuckGo. Returns titles, URLs, and snippets."
}

func (t *webSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (default: 10)",
			},
		},
		"required": []string{"query"},
	}
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
		Topics   []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"Topics"`
	} `json:"RelatedTopics"`
}

func (t *webSearchTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	maxResults := intArg(args, "max_results", 10)

	if query == "" {
		return core.ErrorResult(core.CodeInvalidParams, "Empty search query").
			WithSuggestion("Provide a non-empty search query."), nil
	}

	endpoint := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		t.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.ToolResult{}, ctx.Err()
		}
		return core.ErrorResult(core.CodeNetworkError, fmt.Sprintf("Search failed: %v", err)).
			WithSuggestion("Check network connection and try again."), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ErrorResult(core.CodeNetworkError, fmt.Sprintf("Search failed: HTTP %d", resp.StatusCode)).
			WithSuggestion("Try again later."), nil
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.ErrorResult(core.CodeNetworkError, fmt.Sprintf("Search failed: %v", err)).
			WithSuggestion("Try again later."), nil
	}

	results := make([]map[string]any, 0, maxResults)
	if parsed.AbstractText != "" {
		results = append(results, map[string]any{
			"title":   parsed.Heading,
			"url":     parsed.AbstractURL,
			"snippet": parsed.AbstractText,
		})
	}
	for _, topic := range parsed.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text != "" {
			results = append(results, topicResult(topic.Text, topic.FirstURL))
			continue
		}
		for _, sub := range topic.Topics {
			if len(results) >= maxResults {
				break
			}
			if sub.Text != "" {
				results = append(results, topicResult(sub.Text, sub.FirstURL))
			}
		}
	}

	return core.SuccessResult(map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	}), nil
}

// topicResult splits the "Title - snippet" shape the instant answer API
// uses for related topics.
func topicResult(text, firstURL string) map[string]any {
	title := text
	snippet := text
	if idx := strings.Index(text, " - "); idx > 0 {
		title = text[:idx]
		snippet = text[idx+3:]
	}
	return map[string]any{
		"title":   title,
		"url":     firstURL,
		"snippet": snippet,
	}
}
