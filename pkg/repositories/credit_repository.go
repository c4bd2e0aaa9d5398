package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
	"github.com/lexhaven/lexhaven-engine/pkg/database"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// CreditRepository provides data access for the append-only credit ledger.
// Debit and Refund serialize per account via a row lock, so concurrent
// operations on the same account never lose updates while different accounts
// proceed fully in parallel.
type CreditRepository interface {
	// EnsureAccount creates the account with an initial grant if it does not
	// exist yet. Safe to call on every request (first-touch provisioning).
	EnsureAccount(ctx context.Context, accountID uuid.UUID, initialCredits int) error

	// GetAccount returns the account row.
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.CreditAccount, error)

	// Debit atomically checks and reduces the balance, appending a deduction
	// transaction. Unlimited accounts never fail and record amount=0 for audit.
	Debit(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error)

	// Refund restores previously debited credits as an independent
	// transaction. It never edits the deduction it compensates.
	Refund(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error)

	// History returns transactions for the account, most recent first.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransaction, error)
}

type creditRepository struct {
	db *database.DB
}

// NewCreditRepository creates a new CreditRepository.
func NewCreditRepository(db *database.DB) CreditRepository {
	return &creditRepository{db: db}
}

var _ CreditRepository = (*creditRepository)(nil)

func (r *creditRepository) EnsureAccount(ctx context.Context, accountID uuid.UUID, initialCredits int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO credit_accounts (id, balance, is_unlimited)
		VALUES ($1, $2, false)
		ON CONFLICT (id) DO NOTHING`,
		accountID, initialCredits)
	if err != nil {
		return fmt.Errorf("failed to ensure credit account: %w", err)
	}

	if tag.RowsAffected() > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO credit_transactions (id, account_id, kind, amount, balance_after, description)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), accountID, models.TransactionInitial, initialCredits, initialCredits, "initial credit grant")
		if err != nil {
			return fmt.Errorf("failed to record initial transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *creditRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	err := r.db.QueryRow(ctx, `
		SELECT id, balance, is_unlimited, created_at, updated_at
		FROM credit_accounts
		WHERE id = $1`,
		accountID).Scan(&account.ID, &account.Balance, &account.IsUnlimited, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit account: %w", err)
	}
	return &account, nil
}

func (r *creditRepository) Debit(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent debits/refunds on the same account.
	var balance int
	var unlimited bool
	err = tx.QueryRow(ctx, `
		SELECT balance, is_unlimited FROM credit_accounts WHERE id = $1 FOR UPDATE`,
		accountID).Scan(&balance, &unlimited)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock credit account: %w", err)
	}

	// Unlimited accounts bypass the balance check and record a zero-amount
	// deduction for audit.
	charged := amount
	newBalance := balance
	if unlimited {
		charged = 0
	} else {
		if balance < amount {
			return nil, &apperrors.InsufficientCreditsError{Required: amount, Current: balance}
		}
		newBalance = balance - amount
		_, err = tx.Exec(ctx, `
			UPDATE credit_accounts SET balance = $1, updated_at = now() WHERE id = $2`,
			newBalance, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
	}

	entry := &models.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Kind:           models.TransactionDeduction,
		Amount:         -charged,
		BalanceAfter:   newBalance,
		Description:    description,
		RelatedQueryID: &queryID,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entry, nil
}

func (r *creditRepository) Refund(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	if amount < 0 {
		return nil, fmt.Errorf("refund amount must not be negative, got %d", amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int
	err = tx.QueryRow(ctx, `
		SELECT balance FROM credit_accounts WHERE id = $1 FOR UPDATE`,
		accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock credit account: %w", err)
	}

	newBalance := balance + amount
	if amount > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE credit_accounts SET balance = $1, updated_at = now() WHERE id = $2`,
			newBalance, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
	}

	entry := &models.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Kind:           models.TransactionRefund,
		Amount:         amount,
		BalanceAfter:   newBalance,
		Description:    description,
		RelatedQueryID: &queryID,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entry, nil
}

func (r *creditRepository) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, kind, amount, balance_after, description, related_query_id, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	defer rows.Close()

	var entries []*models.CreditTransaction
	for rows.Next() {
		var entry models.CreditTransaction
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Kind,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.Description,
			&entry.RelatedQueryID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit transactions: %w", err)
	}

	return entries, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, entry *models.CreditTransaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO credit_transactions (id, account_id, kind, amount, balance_after, description, related_query_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.BalanceAfter, entry.Description, entry.RelatedQueryID)
	if err != nil {
		return fmt.Errorf("failed to insert credit transaction: %w", err)
	}
	return nil
}
