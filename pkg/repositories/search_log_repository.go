package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lexhaven/lexhaven-engine/pkg/database"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// SearchLogRepository persists the audit trail of completed queries.
type SearchLogRepository interface {
	Create(ctx context.Context, entry *models.SearchLogEntry) error
}

type searchLogRepository struct {
	db *database.DB
}

// NewSearchLogRepository creates a new SearchLogRepository.
func NewSearchLogRepository(db *database.DB) SearchLogRepository {
	return &searchLogRepository{db: db}
}

var _ SearchLogRepository = (*searchLogRepository)(nil)

func (r *searchLogRepository) Create(ctx context.Context, entry *models.SearchLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO search_log (id, query_id, account_id, question, passage_count, confidence, cached, model_used, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.QueryID,
		entry.AccountID,
		entry.Question,
		entry.PassageCount,
		entry.Confidence,
		entry.Cached,
		entry.ModelUsed,
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to create search log entry: %w", err)
	}
	return nil
}
