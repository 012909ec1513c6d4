package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/ai"
	"example.com/finance-tracker/backend/internal/auth"
)

// maxCompletionMessages bounds the conversation a single proxy call may carry.
const maxCompletionMessages = 50

// CompletionHandler is a thin authenticated proxy to the model provider for
// clients that assemble their own prompts.
type CompletionHandler struct {
	Client ai.Client
}

// NewCompletionHandler builds the completion proxy handler.
func NewCompletionHandler(client ai.Client) *CompletionHandler {
	return &CompletionHandler{Client: client}
}

type CompletionMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

type CompletionRequest struct {
	Messages    []CompletionMessage `json:"messages" validate:"required,min=1,dive"`
	Temperature *float64            `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int                `json:"max_tokens" validate:"omitempty,gt=0"`
}

type CompletionResponse struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Complete forwards one chat completion request upstream.
func (h *CompletionHandler) Complete(c echo.Context) error {
	if _, ok := auth.UserIDFromContext(c); !ok {
		return unauthorized(c)
	}

	var req CompletionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}
	if len(req.Messages) > maxCompletionMessages {
		return badRequest(c, "too many messages")
	}

	messages := make([]ai.Message, 0, len(req.Messages))
	for _, message := range req.Messages {
		messages = append(messages, ai.Message{Role: message.Role, Content: message.Content})
	}

	aiReq := ai.Request{Messages: messages}
	if req.Temperature != nil {
		aiReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		aiReq.MaxTokens = *req.MaxTokens
	}

	completion, err := h.Client.Chat(c.Request().Context(), aiReq)
	if err != nil {
		if errors.Is(err, ai.ErrRateLimited) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, CompletionResponse{
		Content:    completion.Content,
		TokensUsed: completion.TokensUsed,
	})
}
