// Package provider implements the HTTP client for chat-completions style
// review providers. Both upstream providers Argus ships with (z.ai and
// OpenRouter) speak the OpenAI-compatible wire shape, so one client covers
// the whole model table.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/argus-ai/argus/pkg/models"
	"github.com/argus-ai/argus/pkg/registry"
)

const reviewTemperature = 0.3

// Error is a non-2xx provider response. The status code drives the
// transient/permanent classification in the dispatch layer.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, body)
}

// Client calls chat-completions endpoints. Call deadlines come from the
// caller's context; the underlying http.Client carries no timeout of its own.
type Client struct {
	http *http.Client
}

// NewClient creates a provider client.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt to the given model's endpoint and returns the
// verdict text. A non-2xx response is returned as *Error.
func (c *Client) Complete(ctx context.Context, m registry.Model, p models.Prompt) (string, error) {
	body := chatRequest{
		Model: m.ModelID,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: reviewTemperature,
		MaxTokens:   m.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	if m.Provider == "openrouter" {
		req.Header.Set("HTTP-Referer", "https://github.com/argus-ai/argus")
		req.Header.Set("X-Title", "Argus Code Review")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("provider response contained no completion")
	}
	return result.Choices[0].Message.Content, nil
}
