package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

const (
	// maxScrapeChars caps extracted page text before it enters the
	// step history.
	maxScrapeChars   = 50000
	truncationMarker = "\n[... truncated]"

	scrapeUserAgent = "Mozilla/5.0 (compatible; LibraAgent/1.0; +https://github.com/libra-agent/libra)"
)

// WebScrapeTool fetches a page and reduces it to readable text.
type WebScrapeTool struct {
	client *resty.Client
}

// NewWebScrapeTool creates a web scraping tool.
func NewWebScrapeTool() *WebScrapeTool {
	return &WebScrapeTool{
		client: resty.New().SetTimeout(executeTimeout),
	}
}

func (t *WebScrapeTool) Metadata() Metadata {
	return Metadata{
		Name:        "webScrape",
		Description: "Fetch a web page and return its visible text content. Use after webSearch to read a promising result.",
		Parameters: []Parameter{
			{Name: "url", Type: "string", Description: "The http or https URL to fetch", Required: true},
		},
	}
}

func (t *WebScrapeTool) Execute(ctx context.Context, args map[string]json.RawMessage, _ Context) Result {
	rawURL, err := stringArg(args, "url")
	if err != nil {
		return Failure(err)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Failuref("invalid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Failuref("unsupported URL scheme %q, only http and https are allowed", parsed.Scheme)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", scrapeUserAgent).
		Get(rawURL)
	if err != nil {
		return Failuref("fetching %s: %v", rawURL, err)
	}
	if resp.IsError() {
		return Failuref("fetching %s: status %d", rawURL, resp.StatusCode())
	}

	text := extractText(string(resp.Body()))
	truncated := false
	if len(text) > maxScrapeChars {
		text = text[:maxScrapeChars] + truncationMarker
		truncated = true
	}
	return Success(map[string]any{
		"url":       rawURL,
		"text":      text,
		"truncated": truncated,
	})
}

// skippedElements are subtrees that carry no readable content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"iframe":   true,
}

// extractText walks the HTML tree collecting text nodes, skipping chrome
// and code elements, and collapses runs of whitespace.
func extractText(page string) string {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		// Fall back to the raw body, whitespace-collapsed.
		return collapseWhitespace(page)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "li", "br", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				b.WriteByte('\n')
			}
		}
	}
	walk(root)
	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
