// Package tools defines the mcp-pocket tool catalog, the argument and
// result shapes, and the registry that dispatches tool calls to the
// Pocket client.
package tools

import (
	"strings"

	"github.com/kazuph/mcp-pocket/internal/pocket"
)

const (
	// ToolFetchArticles is the name of the fetch_articles MCP tool
	ToolFetchArticles = "fetch_articles"

	// ToolMarkAsRead is the name of the mark_as_read MCP tool
	ToolMarkAsRead = "mark_as_read"
)

// Descriptor is the listing entry for one tool.
type Descriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// FetchArticlesArgs defines the input schema for fetch_articles.
type FetchArticlesArgs struct {
	// Count is the number of articles to fetch. Nil means DefaultCount.
	Count *int `json:"count,omitempty" description:"Number of articles to fetch (1-20, default 20)"`
}

// MarkAsReadArgs defines the input schema for mark_as_read.
type MarkAsReadArgs struct {
	// ItemID is the Pocket item id reported by fetch_articles.
	ItemID string `json:"itemId" required:"true" description:"ID of the article to mark as read"`
}

// Invocation is a named tool call with untyped arguments.
type Invocation struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is a single content block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the outcome of every tool call, success or failure.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text joins the text of all content blocks.
func (r Result) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// Map renders the result in the wire shape of an MCP tools/call response.
func (r Result) Map() map[string]interface{} {
	content := make([]interface{}, 0, len(r.Content))
	for _, c := range r.Content {
		content = append(content, map[string]interface{}{
			"type": c.Type,
			"text": c.Text,
		})
	}
	m := map[string]interface{}{"content": content}
	if r.IsError {
		m["isError"] = true
	}
	return m
}

func textResult(text string) Result {
	return Result{Content: []Content{{Type: "text", Text: text}}}
}

func errorResult(text string) Result {
	r := textResult(text)
	r.IsError = true
	return r
}

func fetchArticlesDescriptor(mode pocket.Mode) Descriptor {
	desc := "Fetches the latest articles from Pocket API. "
	fields := "title, URL, and excerpt"
	if mode.TracksItems() {
		desc = "Fetches the latest unread articles from Pocket API. "
		fields = "ID, title, URL, and excerpt"
	}
	desc += "Returns up to 20 articles by default. " +
		"You can specify the number of articles to fetch (1-20) using the count parameter. " +
		"Returns the " + fields + " for each article."

	return Descriptor{
		Name:        ToolFetchArticles,
		Description: desc,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of articles to fetch (1-20)",
					"default":     pocket.DefaultCount,
				},
			},
			"additionalProperties": false,
		},
	}
}

func markAsReadDescriptor() Descriptor {
	return Descriptor{
		Name: ToolMarkAsRead,
		Description: "Marks the specified article as read (archives it) in Pocket. " +
			"Use the ID returned by " + ToolFetchArticles + ".",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"itemId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the article to mark as read",
				},
			},
			"required":             []string{"itemId"},
			"additionalProperties": false,
		},
	}
}

// Catalog returns the tool descriptors available in mode, in listing order.
func Catalog(mode pocket.Mode) []Descriptor {
	descriptors := []Descriptor{fetchArticlesDescriptor(mode)}
	if mode.TracksItems() {
		descriptors = append(descriptors, markAsReadDescriptor())
	}
	return descriptors
}
