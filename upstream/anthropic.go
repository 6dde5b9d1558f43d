package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	DefaultAnthropicModel   = "claude-3-haiku-20240307"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient chama a Messages API com um único turno de usuário.
type AnthropicClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type AnthropicOption func(*AnthropicClient)

func WithAnthropicBaseURL(u string) AnthropicOption {
	return func(c *AnthropicClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithAnthropicModel(m string) AnthropicOption {
	return func(c *AnthropicClient) { c.model = m }
}

func WithHTTPClient(hc *http.Client) AnthropicOption {
	return func(c *AnthropicClient) { c.httpClient = hc }
}

func NewAnthropicClient(opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		baseURL:    DefaultAnthropicBaseURL,
		model:      DefaultAnthropicModel,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == "" {
		c.model = DefaultAnthropicModel
	}
	return c
}

func (c *AnthropicClient) Model() string { return c.model }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: req.Prompt.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt.Text}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	// só o primeiro bloco interessa
	if len(out.Content) == 0 {
		return "", nil
	}
	return out.Content[0].Text, nil
}
