package tools

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
)

const serperEndpoint = "https://google.serper.dev/search"

// WebSearchTool queries the Serper search API.
type WebSearchTool struct {
	client *resty.Client
	apiKey string
}

// NewWebSearchTool creates a web search tool using the given Serper API key.
func NewWebSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{
		client: resty.New().SetTimeout(executeTimeout),
		apiKey: apiKey,
	}
}

func (t *WebSearchTool) Metadata() Metadata {
	return Metadata{
		Name:        "webSearch",
		Description: "Search the web for current information. Returns titles, URLs and snippets of matching pages.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "The search query", Required: true},
		},
	}
}

type serperOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type serperResponse struct {
	Organic   []serperOrganic `json:"organic"`
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]json.RawMessage, _ Context) Result {
	query, err := stringArg(args, "query")
	if err != nil {
		return Failure(err)
	}
	if t.apiKey == "" {
		return Failuref("web search is not configured: missing Serper API key")
	}

	var parsed serperResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", t.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"q": query}).
		SetResult(&parsed).
		Post(serperEndpoint)
	if err != nil {
		return Failuref("search request failed: %v", err)
	}
	if resp.IsError() {
		return Failuref("search API returned status %d", resp.StatusCode())
	}

	results := make([]searchResult, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		results = append(results, searchResult{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}

	payload := map[string]any{"query": query, "results": results}
	if parsed.AnswerBox != nil {
		answer := parsed.AnswerBox.Answer
		if answer == "" {
			answer = parsed.AnswerBox.Snippet
		}
		if answer != "" {
			payload["answer"] = answer
		}
	}
	return Success(payload)
}
