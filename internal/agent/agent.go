package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/ai"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/store"
)

// fastPathThreshold: general_chat below this confidence never reaches the
// model. Greetings and obvious small talk get a canned reply instead of a
// paid completion call.
const fastPathThreshold = 0.3

// fallbackReply is the only text shown when the financial path fails for any
// reason. Raw upstream errors are logged, never surfaced.
const fallbackReply = "Je ne peux traiter que des questions sur vos finances personnelles. Pouvez-vous reformuler votre demande ?"

var greetingReplies = []string{
	"Bonjour ! Comment puis-je vous aider avec vos finances aujourd'hui ?",
	"Salut ! Une question sur vos budgets ou vos dépenses ?",
	"Bonjour ! Je peux analyser vos dépenses, vos budgets ou vos revenus.",
}

var offTopicReplies = []string{
	"Je suis spécialisé dans les finances personnelles. Posez-moi une question sur vos budgets, dépenses ou revenus.",
	"Parlons plutôt de vos finances : budgets, dépenses, revenus, épargne… Que souhaitez-vous savoir ?",
	"Je ne suis pas sûr de comprendre. Je peux vous aider à suivre vos budgets et vos dépenses.",
}

// ChatStore persists the append-only conversation log.
type ChatStore interface {
	Append(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// AuditLog records every model round-trip for later inspection.
type AuditLog interface {
	LogRequest(ctx context.Context, entry AuditEntry) error
}

// AuditEntry is one logged model call.
type AuditEntry struct {
	UserID     uuid.UUID
	Intent     string
	Prompt     string
	Response   string
	TokensUsed int
	Success    bool
	Error      string
}

// ReplyMetadata describes how a reply was produced.
type ReplyMetadata struct {
	Intent         IntentType    `json:"intent"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	TokensUsed     int           `json:"tokens_used,omitempty"`
	FastPath       bool          `json:"fast_path"`
}

// Reply is the structured answer to one inbound message.
type Reply struct {
	Message  string          `json:"message"`
	HTML     string          `json:"formatted"`
	Actions  []models.Action `json:"actions,omitempty"`
	Metadata ReplyMetadata   `json:"metadata"`
}

// Agent sequences the pipeline for each inbound message: classify, fast-path
// or build context, prompt, model call, response processing. It owns the
// pending-action set and the confirm/cancel protocol.
type Agent struct {
	detector  *Detector
	contexts  *ContextBuilder
	processor *ResponseProcessor
	executor  *Executor
	client    ai.Client
	ledger    *store.Ledger
	chat      ChatStore
	audit     AuditLog
	logger    *slog.Logger

	// pick selects a canned reply index; injectable so tests can pin it.
	pick func(n int) int

	historySize int

	// pending holds proposed actions per user. Actions are only ever listed,
	// confirmed or cancelled by the user they were proposed to.
	mu      sync.Mutex
	pending map[uuid.UUID]map[uuid.UUID]models.Action
}

// Options tunes optional agent collaborators.
type Options struct {
	HistorySize int
	Audit       AuditLog
	Logger      *slog.Logger
	Pick        func(n int) int
	Now         func() time.Time
}

// New assembles the agent pipeline. All data sources arrive explicitly; the
// agent performs no hidden global lookups.
func New(client ai.Client, ledger *store.Ledger, chat ChatStore, budgets BudgetStore, records RecordStore, opts Options) *Agent {
	agent := &Agent{
		detector:    NewDetector(),
		contexts:    NewContextBuilder(),
		processor:   NewResponseProcessor(),
		executor:    NewExecutor(budgets, records),
		client:      client,
		ledger:      ledger,
		chat:        chat,
		audit:       opts.Audit,
		logger:      opts.Logger,
		pick:        opts.Pick,
		historySize: opts.HistorySize,
		pending:     make(map[uuid.UUID]map[uuid.UUID]models.Action),
	}

	if agent.logger == nil {
		agent.logger = slog.Default()
	}
	if agent.pick == nil {
		agent.pick = rand.Intn
	}
	if agent.historySize <= 0 {
		agent.historySize = 6
	}
	if opts.Now != nil {
		agent.contexts.Now = opts.Now
		agent.executor.now = opts.Now
	}

	return agent
}

// HandleMessage processes one user message and returns a structured reply.
// Failures inside the financial path resolve to the safe fallback reply; the
// returned error is non-nil only when the conversation log cannot be written.
func (a *Agent) HandleMessage(ctx context.Context, userID uuid.UUID, text string) (Reply, error) {
	started := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("empty message")
	}

	// History is captured before the append so the prompt does not repeat
	// the current question inside the conversation section.
	historyText, err := a.historyText(ctx, userID)
	if err != nil {
		a.logger.Warn("agent history load failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		historyText = ""
	}

	if _, err := a.chat.Append(ctx, models.ChatMessage{
		UserID:  userID,
		Role:    models.ChatRoleUser,
		Content: text,
	}); err != nil {
		return Reply{}, fmt.Errorf("append user message: %w", err)
	}

	intent := a.detector.Detect(text)

	var reply Reply
	switch {
	case intent.Type == IntentGreeting:
		reply = a.cannedReply(greetingReplies, intent, true)
	case intent.Type == IntentGeneralChat && intent.Confidence < fastPathThreshold:
		reply = a.cannedReply(offTopicReplies, intent, true)
	default:
		reply = a.financialReply(ctx, userID, text, historyText, intent)
	}

	reply.Metadata.ProcessingTime = time.Since(started)

	a.registerPending(userID, reply.Actions)

	if _, err := a.chat.Append(ctx, models.ChatMessage{
		UserID:    userID,
		Role:      models.ChatRoleAssistant,
		Content:   reply.Message,
		Formatted: reply.HTML,
		Actions:   reply.Actions,
	}); err != nil {
		return Reply{}, fmt.Errorf("append assistant message: %w", err)
	}

	return reply, nil
}

func (a *Agent) cannedReply(pool []string, intent Intent, fastPath bool) Reply {
	message := pool[a.pick(len(pool))]
	return Reply{
		Message: message,
		HTML:    renderHTML(message),
		Metadata: ReplyMetadata{
			Intent:     intent.Type,
			Confidence: intent.Confidence,
			FastPath:   fastPath,
		},
	}
}

// financialReply runs the grounded path. Any failure is logged and converted
// to the fixed fallback message at this boundary.
func (a *Agent) financialReply(ctx context.Context, userID uuid.UUID, text, historyText string, intent Intent) Reply {
	snapshot, err := a.ledger.Snapshot(ctx, userID)
	if err != nil {
		a.logger.Warn("agent snapshot failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		return a.fallback(intent)
	}

	financial := a.contexts.Build(snapshot)
	prompt := BuildPrompt(financial, text, historyText)
	completion, err := a.client.Chat(ctx, ai.Request{
		Messages: []ai.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})

	a.logModelCall(ctx, userID, intent, prompt, completion, err)

	if err != nil {
		a.logger.Warn("agent model call failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		return a.fallback(intent)
	}

	processed := a.processor.Process(completion.Content)
	for _, directive := range processed.Unrecognized {
		a.logger.Warn("agent dropped directive", slog.String("type", string(directive.Type)), slog.String("raw", directive.Raw))
	}

	if processed.Text == "" {
		return a.fallback(intent)
	}

	a.logger.Info("agent reply",
		slog.String("user_id", userID.String()),
		slog.String("intent", string(intent.Type)),
		slog.Int("tokens_used", completion.TokensUsed),
		slog.Int("actions", len(processed.Actions)))

	return Reply{
		Message: processed.Text,
		HTML:    processed.HTML,
		Actions: processed.Actions,
		Metadata: ReplyMetadata{
			Intent:     intent.Type,
			Confidence: intent.Confidence,
			TokensUsed: completion.TokensUsed,
		},
	}
}

func (a *Agent) fallback(intent Intent) Reply {
	return Reply{
		Message: fallbackReply,
		HTML:    renderHTML(fallbackReply),
		Metadata: ReplyMetadata{
			Intent:     intent.Type,
			Confidence: intent.Confidence,
		},
	}
}

func (a *Agent) historyText(ctx context.Context, userID uuid.UUID) (string, error) {
	messages, err := a.chat.ListRecent(ctx, userID, a.historySize)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, message := range messages {
		speaker := "Utilisateur"
		if message.Role == models.ChatRoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s : %s\n", speaker, message.Content)
	}
	return strings.TrimSpace(b.String()), nil
}

func (a *Agent) logModelCall(ctx context.Context, userID uuid.UUID, intent Intent, prompt string, completion ai.Completion, err error) {
	if a.audit == nil {
		return
	}

	entry := AuditEntry{
		UserID:     userID,
		Intent:     string(intent.Type),
		Prompt:     prompt,
		Response:   completion.Content,
		TokensUsed: completion.TokensUsed,
		Success:    err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if logErr := a.audit.LogRequest(ctx, entry); logErr != nil {
		a.logger.Warn("agent audit log failed", slog.String("error", logErr.Error()))
	}
}

func (a *Agent) registerPending(userID uuid.UUID, actions []models.Action) {
	if len(actions) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	userPending, ok := a.pending[userID]
	if !ok {
		userPending = make(map[uuid.UUID]models.Action)
		a.pending[userID] = userPending
	}
	for _, action := range actions {
		userPending[action.ID] = action
	}
}

// PendingActions lists the user's own actions still awaiting confirmation.
func (a *Agent) PendingActions(userID uuid.UUID) []models.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	userPending := a.pending[userID]
	out := make([]models.Action, 0, len(userPending))
	for _, action := range userPending {
		out = append(out, action)
	}
	return out
}

// ConfirmAction executes one pending action, removes it from the pending set
// and refreshes the user's snapshot so the next prompt reflects the change.
// The result is also appended to the conversation as an assistant message.
// An id proposed to another user is treated as unknown.
func (a *Agent) ConfirmAction(ctx context.Context, userID, actionID uuid.UUID) (ActionResult, error) {
	a.mu.Lock()
	action, ok := a.pending[userID][actionID]
	if ok {
		delete(a.pending[userID], actionID)
	}
	a.mu.Unlock()

	if !ok {
		return ActionResult{Success: false, Message: "Cette action n'est plus disponible."}, nil
	}

	action.Status = models.ActionStatusConfirmed
	result := a.executor.Execute(ctx, action, userID)

	if result.Success {
		// Read-after-write: re-snapshot strictly after the mutation so the
		// next context build observes it.
		if _, err := a.ledger.Refresh(ctx, userID); err != nil {
			a.logger.Warn("agent snapshot refresh failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		}
	} else if result.Error != "" {
		a.logger.Warn("agent action failed",
			slog.String("user_id", userID.String()),
			slog.String("action_type", string(action.Type)),
			slog.String("error", result.Error))
	}

	if _, err := a.chat.Append(ctx, models.ChatMessage{
		UserID:  userID,
		Role:    models.ChatRoleAssistant,
		Content: result.Message,
	}); err != nil {
		return result, fmt.Errorf("append action result: %w", err)
	}

	return result, nil
}

// CancelAction removes one of the user's pending actions. Cancelling an
// unknown, already resolved or foreign id is a no-op.
func (a *Agent) CancelAction(userID, actionID uuid.UUID) {
	a.mu.Lock()
	delete(a.pending[userID], actionID)
	a.mu.Unlock()
}
