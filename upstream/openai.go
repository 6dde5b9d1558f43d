package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIClient implementa Client sobre o SDK go-openai.
//
// O SDK é montado por chamada porque a chave vem do ambiente a cada
// requisição (ver proxy.Options.Credential).
type OpenAIClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient aceita baseURL e hc vazios para usar os padrões do SDK.
func NewOpenAIClient(model, baseURL string, hc *http.Client) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{model: model, baseURL: baseURL, httpClient: hc}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	cfg := openai.DefaultConfig(req.APIKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: req.Prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt.Text},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return "", &StatusError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return "", &StatusError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
		}
		return "", fmt.Errorf("openai request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
