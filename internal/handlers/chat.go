package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/agent"
	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/notifications"
	"example.com/finance-tracker/backend/internal/repository"
)

// ChatHandler fronts the conversational agent: inbound messages, history,
// and the confirm/cancel protocol for proposed actions.
type ChatHandler struct {
	Agent    *agent.Agent
	Chat     *repository.ChatRepository
	Notifier *notifications.Hub
}

// NewChatHandler builds the chat handler.
func NewChatHandler(agentSvc *agent.Agent, chat *repository.ChatRepository, notifier *notifications.Hub) *ChatHandler {
	return &ChatHandler{Agent: agentSvc, Chat: chat, Notifier: notifier}
}

type ChatMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type ActionResultResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SendMessage runs one message through the agent pipeline.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ChatMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	reply, err := h.Agent.HandleMessage(c.Request().Context(), userID, req.Message)
	if err != nil {
		return serverError(c)
	}

	h.Notifier.Publish(userID, notifications.Event{
		Type: notifications.EventChatReply,
		Data: map[string]any{"actions": len(reply.Actions)},
	})

	return c.JSON(http.StatusOK, reply)
}

// History returns the full conversation, oldest first.
func (h *ChatHandler) History(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	messages, err := h.Chat.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, map[string][]models.ChatMessage{"messages": messages})
}

// ClearHistory deletes the conversation.
func (h *ChatHandler) ClearHistory(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.Chat.DeleteByUser(c.Request().Context(), userID); err != nil {
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

// PendingActions lists the caller's actions awaiting confirmation.
func (h *ChatHandler) PendingActions(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	return c.JSON(http.StatusOK, map[string][]models.Action{"actions": h.Agent.PendingActions(userID)})
}

// ConfirmAction executes a pending action.
func (h *ChatHandler) ConfirmAction(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	actionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid action id")
	}

	result, err := h.Agent.ConfirmAction(c.Request().Context(), userID, actionID)
	if err != nil {
		return serverError(c)
	}

	if result.Success {
		h.Notifier.Publish(userID, notifications.Event{
			Type: notifications.EventActionExecuted,
			Data: map[string]any{"action_id": actionID},
		})
	}

	return c.JSON(http.StatusOK, ActionResultResponse{
		Success: result.Success,
		Message: result.Message,
		Data:    result.Data,
	})
}

// CancelAction discards one of the caller's pending actions. Unknown ids are
// a no-op.
func (h *ChatHandler) CancelAction(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	actionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid action id")
	}

	h.Agent.CancelAction(userID, actionID)

	return c.NoContent(http.StatusNoContent)
}
