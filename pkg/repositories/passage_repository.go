package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lexhaven/lexhaven-engine/pkg/database"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// PassageRepository exposes the vector store's similarity primitive: the
// match_passages stored function ranks completed-document chunks against a
// query embedding, applying the institution filter and threshold before the
// limit.
type PassageRepository interface {
	MatchPassages(ctx context.Context, queryVector []float32, threshold float64, limit int, institutionFilter string) ([]models.RetrievedPassage, error)
}

type passageRepository struct {
	db *database.DB
}

// NewPassageRepository creates a new PassageRepository.
func NewPassageRepository(db *database.DB) PassageRepository {
	return &passageRepository{db: db}
}

var _ PassageRepository = (*passageRepository)(nil)

func (r *passageRepository) MatchPassages(ctx context.Context, queryVector []float32, threshold float64, limit int, institutionFilter string) ([]models.RetrievedPassage, error) {
	var filter *string
	if institutionFilter != "" {
		filter = &institutionFilter
	}

	rows, err := r.db.Query(ctx, `
		SELECT document_id, chunk_text, similarity, page_number, line_start, line_end, institution, document_title
		FROM match_passages($1::vector, $2, $3, $4)`,
		formatVector(queryVector), threshold, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to match passages: %w", err)
	}
	defer rows.Close()

	var passages []models.RetrievedPassage
	for rows.Next() {
		var p models.RetrievedPassage
		if err := rows.Scan(
			&p.DocumentID,
			&p.ChunkText,
			&p.SimilarityScore,
			&p.PageNumber,
			&p.LineStart,
			&p.LineEnd,
			&p.Institution,
			&p.DocumentTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passages: %w", err)
	}

	return passages, nil
}

// formatVector renders a pgvector literal, e.g. "[0.1,0.2,0.3]".
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
