package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/ai"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/store"
)

type fakeModelClient struct {
	calls       int
	lastRequest ai.Request
	completion  ai.Completion
	err         error
}

func (f *fakeModelClient) Chat(_ context.Context, req ai.Request) (ai.Completion, error) {
	f.calls++
	f.lastRequest = req
	if f.err != nil {
		return ai.Completion{}, f.err
	}
	return f.completion, nil
}

type fakeChatStore struct {
	messages []models.ChatMessage
}

func (f *fakeChatStore) Append(_ context.Context, message models.ChatMessage) (models.ChatMessage, error) {
	message.ID = uuid.New()
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeChatStore) ListRecent(_ context.Context, _ uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if len(f.messages) > limit {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

type countingBudgetSource struct {
	store *fakeBudgetStore
}

func (c *countingBudgetSource) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Budget, error) {
	return c.store.ListByUser(ctx, userID)
}

type fakeRecordSource struct {
	expenses []models.Record
	incomes  []models.Record
}

func (f *fakeRecordSource) ListByUser(_ context.Context, _ uuid.UUID, kind models.RecordKind) ([]models.Record, error) {
	if kind == models.RecordKindIncome {
		return f.incomes, nil
	}
	return f.expenses, nil
}

type testHarness struct {
	agent   *Agent
	client  *fakeModelClient
	chat    *fakeChatStore
	budgets *fakeBudgetStore
	records *fakeRecordStore
}

func newHarness(client *fakeModelClient) *testHarness {
	budgets := &fakeBudgetStore{}
	records := &fakeRecordStore{}
	chat := &fakeChatStore{}
	ledger := store.NewLedger(&countingBudgetSource{store: budgets}, &fakeRecordSource{})

	agent := New(client, ledger, chat, budgets, records, Options{
		Pick: func(int) int { return 0 },
	})
	return &testHarness{agent: agent, client: client, chat: chat, budgets: budgets, records: records}
}

// TestFastPathSkipsModelAndContext checks the cost boundary: a pure greeting
// never reaches the snapshot loader or the model client.
func TestFastPathSkipsModelAndContext(t *testing.T) {
	h := newHarness(&fakeModelClient{})

	reply, err := h.agent.HandleMessage(context.Background(), uuid.New(), "Bonjour !")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.client.calls != 0 {
		t.Fatalf("expected no model calls, got %d", h.client.calls)
	}
	if h.budgets.listCalls != 0 {
		t.Fatalf("expected no snapshot loads, got %d", h.budgets.listCalls)
	}
	if !reply.Metadata.FastPath {
		t.Fatal("expected fast-path metadata")
	}
	if reply.Message != greetingReplies[0] {
		t.Fatalf("expected pinned canned reply, got %q", reply.Message)
	}
}

// TestOffTopicFastPath checks that low-confidence general chat gets a canned
// reply without a model call.
func TestOffTopicFastPath(t *testing.T) {
	h := newHarness(&fakeModelClient{})

	reply, err := h.agent.HandleMessage(context.Background(), uuid.New(), "qu'en penses-tu du match d'hier")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.client.calls != 0 {
		t.Fatalf("expected no model calls, got %d", h.client.calls)
	}
	if reply.Message != offTopicReplies[0] {
		t.Fatalf("expected pinned off-topic reply, got %q", reply.Message)
	}
}

// TestFinancialPathFallbackOnModelError checks the orchestrator boundary:
// a model failure resolves to the safe fallback reply, not an error.
func TestFinancialPathFallbackOnModelError(t *testing.T) {
	h := newHarness(&fakeModelClient{err: errors.New("upstream down")})

	reply, err := h.agent.HandleMessage(context.Background(), uuid.New(), "Combien ai-je dépensé au total ce mois ?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.client.calls != 1 {
		t.Fatalf("expected one model call, got %d", h.client.calls)
	}
	if reply.Message != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply.Message)
	}
}

// TestHandleMessageExtractsPendingAction checks the full financial path with
// a directive in the completion.
func TestHandleMessageExtractsPendingAction(t *testing.T) {
	h := newHarness(&fakeModelClient{completion: ai.Completion{
		Content:    "Très bien. [ACTION:create_budget:name=Loisirs,amount=100,type=capped] Je vous écoute.",
		TokensUsed: 42,
	}})
	userID := uuid.New()

	reply, err := h.agent.HandleMessage(context.Background(), userID, "Crée un budget loisirs de 100€")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reply.Actions) != 1 {
		t.Fatalf("expected 1 pending action, got %d", len(reply.Actions))
	}
	if reply.Message != "Très bien. Je vous écoute." {
		t.Fatalf("expected stripped text, got %q", reply.Message)
	}
	if reply.Metadata.TokensUsed != 42 {
		t.Fatalf("expected token usage forwarded, got %d", reply.Metadata.TokensUsed)
	}

	pending := h.agent.PendingActions(userID)
	if len(pending) != 1 || pending[0].ID != reply.Actions[0].ID {
		t.Fatalf("expected action registered as pending, got %v", pending)
	}

	// Confirmation executes the action and clears the pending set.
	result, err := h.agent.ConfirmAction(context.Background(), userID, reply.Actions[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected execution success, got %q (%s)", result.Message, result.Error)
	}
	if len(h.budgets.budgets) != 1 {
		t.Fatalf("expected budget created, got %d", len(h.budgets.budgets))
	}
	if len(h.agent.PendingActions(userID)) != 0 {
		t.Fatal("expected pending set cleared after confirmation")
	}
}

// TestConfirmUnknownAction checks that confirming a resolved or unknown id
// reports a failure message without executing anything.
func TestConfirmUnknownAction(t *testing.T) {
	h := newHarness(&fakeModelClient{})

	result, err := h.agent.ConfirmAction(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for unknown action id")
	}
	if len(h.budgets.budgets) != 0 || len(h.records.created) != 0 {
		t.Fatal("expected no mutation")
	}
}

// TestPendingActionsScopedToOwner checks that a proposed action is only
// visible and confirmable by the user it was proposed to: another user sees
// an empty pending list, cannot confirm or cancel the id, and the owner can
// still confirm afterwards.
func TestPendingActionsScopedToOwner(t *testing.T) {
	h := newHarness(&fakeModelClient{completion: ai.Completion{
		Content: "Très bien. [ACTION:create_budget:name=Secret,amount=100,type=capped]",
	}})
	owner := uuid.New()
	other := uuid.New()

	reply, err := h.agent.HandleMessage(context.Background(), owner, "Crée un budget secret de 100€")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(reply.Actions))
	}
	actionID := reply.Actions[0].ID

	if leaked := h.agent.PendingActions(other); len(leaked) != 0 {
		t.Fatalf("expected no pending actions for another user, got %v", leaked)
	}

	result, err := h.agent.ConfirmAction(context.Background(), other, actionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected confirmation of a foreign action id to fail")
	}
	if len(h.budgets.budgets) != 0 {
		t.Fatal("expected no mutation from foreign confirmation")
	}

	// A foreign cancel must not consume the owner's action either.
	h.agent.CancelAction(other, actionID)

	result, err = h.agent.ConfirmAction(context.Background(), owner, actionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected owner confirmation to succeed, got %q (%s)", result.Message, result.Error)
	}
	if len(h.budgets.budgets) != 1 || h.budgets.budgets[0].UserID != owner {
		t.Fatalf("expected budget created for owner, got %+v", h.budgets.budgets)
	}
}

// TestPromptHistoryExcludesCurrentQuestion checks that the inbound question
// appears exactly once in the prompt, under its own section, and is not
// repeated inside the recent-conversation block.
func TestPromptHistoryExcludesCurrentQuestion(t *testing.T) {
	h := newHarness(&fakeModelClient{completion: ai.Completion{Content: "Réponse."}})
	userID := uuid.New()

	h.chat.messages = append(h.chat.messages,
		models.ChatMessage{ID: uuid.New(), UserID: userID, Role: models.ChatRoleUser, Content: "Combien me reste-t-il ?"},
		models.ChatMessage{ID: uuid.New(), UserID: userID, Role: models.ChatRoleAssistant, Content: "Il vous reste 50€."},
	)

	question := "Et combien ai-je dépensé ce mois ?"
	if _, err := h.agent.HandleMessage(context.Background(), userID, question); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.client.calls != 1 {
		t.Fatalf("expected one model call, got %d", h.client.calls)
	}

	prompt := h.client.lastRequest.Messages[1].Content
	if got := strings.Count(prompt, question); got != 1 {
		t.Fatalf("expected question once in prompt, found it %d times", got)
	}
	if !strings.Contains(prompt, "Il vous reste 50€.") {
		t.Fatal("expected earlier conversation to stay in prompt")
	}
}

// TestCancelActionIdempotent checks that cancelling twice, or cancelling an
// unknown id, never fails and leaves the pending set unchanged.
func TestCancelActionIdempotent(t *testing.T) {
	h := newHarness(&fakeModelClient{completion: ai.Completion{
		Content: "[ACTION:create_budget:name=Loisirs] OK.",
	}})
	userID := uuid.New()

	reply, err := h.agent.HandleMessage(context.Background(), userID, "crée un budget loisirs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(reply.Actions))
	}
	actionID := reply.Actions[0].ID

	h.agent.CancelAction(userID, actionID)
	if len(h.agent.PendingActions(userID)) != 0 {
		t.Fatal("expected pending set empty after cancel")
	}

	h.agent.CancelAction(userID, actionID)
	h.agent.CancelAction(userID, uuid.New())
	if len(h.agent.PendingActions(userID)) != 0 {
		t.Fatal("expected pending set unchanged after repeated cancels")
	}
}

// TestHandleMessageAppendsConversation checks the append-only chat log order.
func TestHandleMessageAppendsConversation(t *testing.T) {
	h := newHarness(&fakeModelClient{})

	if _, err := h.agent.HandleMessage(context.Background(), uuid.New(), "Bonjour"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.chat.messages) != 2 {
		t.Fatalf("expected 2 chat messages, got %d", len(h.chat.messages))
	}
	if h.chat.messages[0].Role != models.ChatRoleUser || h.chat.messages[1].Role != models.ChatRoleAssistant {
		t.Fatal("expected user message then assistant reply")
	}
}

// TestHandleMessageRejectsEmpty checks local input validation.
func TestHandleMessageRejectsEmpty(t *testing.T) {
	h := newHarness(&fakeModelClient{})

	if _, err := h.agent.HandleMessage(context.Background(), uuid.New(), "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
	if h.client.calls != 0 {
		t.Fatal("expected no model call for empty message")
	}
}
