package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/config"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
	"github.com/lexhaven/lexhaven-engine/pkg/repositories"
)

// LedgerService meters query usage through the append-only credit ledger.
// Pricing is a pure function of question length; debits and refunds are
// atomic per account and every balance change is an immutable transaction.
type LedgerService interface {
	// Quote returns the credit cost for a question: one credit per started
	// block of CharacterThreshold characters, minimum one.
	Quote(queryText string) int

	// EnsureAccount provisions the account with the configured initial grant
	// if it does not exist yet.
	EnsureAccount(ctx context.Context, accountID uuid.UUID) error

	// Debit charges the account before any paid work happens. Returns the
	// recorded deduction transaction (amount 0 for unlimited accounts).
	Debit(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error)

	// Refund compensates a prior debit after a downstream failure. Always an
	// independent transaction tagged with the original query id.
	Refund(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error)

	// Balance returns the current account state.
	Balance(ctx context.Context, accountID uuid.UUID) (*models.CreditAccount, error)

	// History returns the account's transactions, most recent first.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransaction, error)
}

type ledgerService struct {
	repo   repositories.CreditRepository
	cfg    config.CreditsConfig
	logger *zap.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(repo repositories.CreditRepository, cfg config.CreditsConfig, logger *zap.Logger) LedgerService {
	return &ledgerService{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("ledger"),
	}
}

var _ LedgerService = (*ledgerService)(nil)

func (s *ledgerService) Quote(queryText string) int {
	threshold := s.cfg.CharacterThreshold
	if threshold <= 0 {
		threshold = 100
	}
	// Integer round-up; the base credit covers the first block.
	credits := (len(queryText) + threshold - 1) / threshold
	if credits < 1 {
		credits = 1
	}
	return credits
}

func (s *ledgerService) EnsureAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.repo.EnsureAccount(ctx, accountID, s.cfg.InitialBalance); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

func (s *ledgerService) Debit(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	entry, err := s.repo.Debit(ctx, accountID, amount, description, queryID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Debited credits",
		zap.String("account_id", accountID.String()),
		zap.String("query_id", queryID.String()),
		zap.Int("amount", amount),
		zap.Int("balance_after", entry.BalanceAfter))
	return entry, nil
}

func (s *ledgerService) Refund(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	entry, err := s.repo.Refund(ctx, accountID, amount, description, queryID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refunded credits",
		zap.String("account_id", accountID.String()),
		zap.String("query_id", queryID.String()),
		zap.Int("amount", amount),
		zap.Int("balance_after", entry.BalanceAfter))
	return entry, nil
}

func (s *ledgerService) Balance(ctx context.Context, accountID uuid.UUID) (*models.CreditAccount, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *ledgerService) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransaction, error) {
	entries, err := s.repo.History(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("get credit history: %w", err)
	}
	return entries, nil
}
