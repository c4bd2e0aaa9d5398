package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// mockCreditRepo is an in-memory CreditRepository. It serializes Debit and
// Refund with a mutex, mirroring the row-lock semantics of the real store.
type mockCreditRepo struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*models.CreditAccount
	transactions []*models.CreditTransaction
	refundErr    error
}

func newMockCreditRepo() *mockCreditRepo {
	return &mockCreditRepo{accounts: make(map[uuid.UUID]*models.CreditAccount)}
}

func (m *mockCreditRepo) addAccount(id uuid.UUID, balance int, unlimited bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = &models.CreditAccount{ID: id, Balance: balance, IsUnlimited: unlimited}
}

func (m *mockCreditRepo) EnsureAccount(ctx context.Context, accountID uuid.UUID, initialCredits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; ok {
		return nil
	}
	m.accounts[accountID] = &models.CreditAccount{ID: accountID, Balance: initialCredits}
	m.transactions = append(m.transactions, &models.CreditTransaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         models.TransactionInitial,
		Amount:       initialCredits,
		BalanceAfter: initialCredits,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *mockCreditRepo) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *mockCreditRepo) Debit(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}

	charged := amount
	if account.IsUnlimited {
		charged = 0
	} else {
		if account.Balance < amount {
			return nil, &apperrors.InsufficientCreditsError{Required: amount, Current: account.Balance}
		}
		account.Balance -= amount
	}

	entry := &models.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Kind:           models.TransactionDeduction,
		Amount:         -charged,
		BalanceAfter:   account.Balance,
		Description:    description,
		RelatedQueryID: &queryID,
		CreatedAt:      time.Now(),
	}
	m.transactions = append(m.transactions, entry)
	return entry, nil
}

func (m *mockCreditRepo) Refund(ctx context.Context, accountID uuid.UUID, amount int, description string, queryID uuid.UUID) (*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refundErr != nil {
		return nil, m.refundErr
	}

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	account.Balance += amount

	entry := &models.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Kind:           models.TransactionRefund,
		Amount:         amount,
		BalanceAfter:   account.Balance,
		Description:    description,
		RelatedQueryID: &queryID,
		CreatedAt:      time.Now(),
	}
	m.transactions = append(m.transactions, entry)
	return entry, nil
}

func (m *mockCreditRepo) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*models.CreditTransaction
	for i := len(m.transactions) - 1; i >= 0 && len(entries) < limit; i-- {
		if m.transactions[i].AccountID == accountID {
			entries = append(entries, m.transactions[i])
		}
	}
	return entries, nil
}

// byKind returns the account's transactions of one kind, oldest first.
func (m *mockCreditRepo) byKind(accountID uuid.UUID, kind models.TransactionKind) []*models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*models.CreditTransaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID && tx.Kind == kind {
			entries = append(entries, tx)
		}
	}
	return entries
}

// memoryCache is an in-memory AnswerCache. Entries round-trip through JSON
// like the Redis implementation so per-request fields behave identically.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	putErr  error
	puts    int
	lastTTL time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*models.AnswerResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	data, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	var result models.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *memoryCache) Put(ctx context.Context, key string, result *models.AnswerResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.lastTTL = ttl
	if c.putErr != nil {
		return c.putErr
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

// mockSearcher is a configurable SearchService.
type mockSearcher struct {
	searchFunc func(ctx context.Context, vector []float32, institutionFilter string, limit int, threshold float64) ([]models.RetrievedPassage, error)
	calls      int
}

func (m *mockSearcher) Search(ctx context.Context, vector []float32, institutionFilter string, limit int, threshold float64) ([]models.RetrievedPassage, error) {
	m.calls++
	if m.searchFunc != nil {
		return m.searchFunc(ctx, vector, institutionFilter, limit, threshold)
	}
	return nil, nil
}

// mockSearchLog records search log entries in memory.
type mockSearchLog struct {
	mu      sync.Mutex
	entries []*models.SearchLogEntry
	err     error
}

func (m *mockSearchLog) Create(ctx context.Context, entry *models.SearchLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func passage(title, institution, text string, score float64) models.RetrievedPassage {
	return models.RetrievedPassage{
		DocumentID:      uuid.New(),
		ChunkText:       text,
		SimilarityScore: score,
		Institution:     institution,
		DocumentTitle:   title,
	}
}
