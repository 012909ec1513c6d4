package models

import (
	"time"

	"github.com/google/uuid"
)

type BudgetType string

type RecordKind string

type ActionType string

type ActionStatus string

type ChatRole string

const (
	BudgetTypeCapped   BudgetType = "capped"
	BudgetTypeTracking BudgetType = "tracking"
	BudgetTypeSavings  BudgetType = "savings"

	RecordKindExpense RecordKind = "expense"
	RecordKindIncome  RecordKind = "income"

	ActionTypeCreateBudget ActionType = "create_budget"
	ActionTypeAddExpense   ActionType = "add_expense"
	ActionTypeAddIncome    ActionType = "add_income"
	ActionTypeModifyBudget ActionType = "modify_budget"
	ActionTypeDeleteBudget ActionType = "delete_budget"

	ActionStatusPending   ActionStatus = "pending"
	ActionStatusConfirmed ActionStatus = "confirmed"
	ActionStatusCancelled ActionStatus = "cancelled"

	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// FallbackCategory labels records whose budget can no longer be resolved.
// It is a sentinel category, not an error condition.
const FallbackCategory = "Inconnu"

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Budget is a named envelope owned by a user. Amount is nil for tracking
// budgets, the monthly ceiling for capped budgets and the lifetime goal for
// savings budgets.
type Budget struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Type      BudgetType `json:"type"`
	Amount    *float64   `json:"amount,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Record is a single expense or income line tied to exactly one budget.
// Records are immutable once created except for deletion.
type Record struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"user_id"`
	BudgetID uuid.UUID  `json:"budget"`
	Kind     RecordKind `json:"kind"`
	Name     string     `json:"name"`
	Amount   float64    `json:"amount"`
	Date     time.Time  `json:"date"`
}

// Action is a structured mutation proposed by the agent. It is never executed
// without an explicit confirmation keyed by its id.
type Action struct {
	ID                   uuid.UUID         `json:"id"`
	Type                 ActionType        `json:"type"`
	Parameters           map[string]string `json:"parameters"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	ConfirmationMessage  string            `json:"confirmation_message"`
	Status               ActionStatus      `json:"status"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Formatted string    `json:"formatted,omitempty"`
	Actions   []Action  `json:"actions,omitempty"`
	CreatedAt time.Time `json:"date"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

// KnownActionType reports whether value belongs to the closed action-type set.
func KnownActionType(value ActionType) bool {
	switch value {
	case ActionTypeCreateBudget, ActionTypeAddExpense, ActionTypeAddIncome,
		ActionTypeModifyBudget, ActionTypeDeleteBudget:
		return true
	default:
		return false
	}
}
