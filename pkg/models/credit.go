package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind is the business reason for a ledger entry.
type TransactionKind string

const (
	TransactionInitial     TransactionKind = "initial"
	TransactionDeduction   TransactionKind = "deduction"
	TransactionRefund      TransactionKind = "refund"
	TransactionAdminAdjust TransactionKind = "admin_adjust"
)

// CreditAccount is the balance record for one user. Unlimited accounts
// bypass the balance check but still record audit transactions.
type CreditAccount struct {
	ID          uuid.UUID `json:"id"`
	Balance     int       `json:"balance"`
	IsUnlimited bool      `json:"is_unlimited"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreditTransaction is one immutable row in the append-only ledger.
// The current account balance must always equal the fold of its transactions.
// Rows are created once and never mutated or deleted; a refund is a new row,
// not an edit of the deduction it compensates.
type CreditTransaction struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Kind           TransactionKind `json:"kind"`
	Amount         int             `json:"amount"` // signed: negative for deductions
	BalanceAfter   int             `json:"balance_after"`
	Description    string          `json:"description"`
	RelatedQueryID *uuid.UUID      `json:"related_query_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
