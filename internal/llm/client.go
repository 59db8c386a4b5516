// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Message is a single prompt turn sent to or received from the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the subset of the client that the chat orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Message, error)
}

// Client calls any OpenAI-compatible /v1/chat/completions endpoint. Works
// with the real OpenAI API as well as vLLM, LiteLLM and other self-hosted
// gateways.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient builds a completion client. baseURL should include the /v1
// prefix, e.g. "https://api.openai.com/v1". apiKey can be empty for local
// models that do not require authentication.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:      strings.TrimSpace(apiKey),
		model:       strings.TrimSpace(model),
		maxTokens:   500,
		temperature: 0.7,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete sends the prompt context and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (Message, error) {
	if c.model == "" {
		return Message{}, fmt.Errorf("completion model required")
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Message{}, err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return Message{}, fmt.Errorf("completion api error: %s", errResp.Error.Message)
		}
		return Message{}, fmt.Errorf("completion api error: %s", resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Message{}, fmt.Errorf("completion decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Message{}, fmt.Errorf("empty response from completion api")
	}

	reply := chatResp.Choices[0].Message
	if strings.TrimSpace(reply.Content) == "" {
		return Message{}, fmt.Errorf("empty response from completion api")
	}
	return reply, nil
}

// OpenAI-compatible request/response types.

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
