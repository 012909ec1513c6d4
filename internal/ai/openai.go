package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint
// (Groq, OpenAI, a self-hosted proxy).
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient builds a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, temperature float64, maxTokens int) *OpenAIClient {
	return &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat sends the conversation and returns the completion text and token
// usage. A 429 from upstream maps to ErrRateLimited.
func (c *OpenAIClient) Chat(ctx context.Context, req Request) (Completion, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return Completion{}, errors.New("ai api key is missing")
	}

	payload, err := json.Marshal(openAIChatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.temperature(c.temperature),
		MaxTokens:   req.maxTokens(c.maxTokens),
	})
	if err != nil {
		return Completion{}, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Completion{}, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return Completion{}, err
	}

	if response.StatusCode == http.StatusTooManyRequests {
		return Completion{}, ErrRateLimited
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var apiErr openAIChatResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			return Completion{}, fmt.Errorf("ai api error: %s", apiErr.Error.Message)
		}
		return Completion{}, fmt.Errorf("ai api error: %s", strings.TrimSpace(string(body)))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Completion{}, err
	}

	if len(parsed.Choices) == 0 {
		return Completion{}, errors.New("ai response missing choices")
	}

	return Completion{
		Content:    parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}
