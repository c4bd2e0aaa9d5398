package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
	"github.com/lexhaven/lexhaven-engine/pkg/repositories"
)

// SearchService ranks corpus passages against a query vector. The threshold
// boundary is exclusive: a passage must exceed it, not meet it. An empty
// result is a valid outcome, not an error.
type SearchService interface {
	Search(ctx context.Context, queryVector []float32, institutionFilter string, limit int, threshold float64) ([]models.RetrievedPassage, error)
}

type searchService struct {
	passages repositories.PassageRepository
	logger   *zap.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(passages repositories.PassageRepository, logger *zap.Logger) SearchService {
	return &searchService{
		passages: passages,
		logger:   logger.Named("similarity-search"),
	}
}

var _ SearchService = (*searchService)(nil)

func (s *searchService) Search(ctx context.Context, queryVector []float32, institutionFilter string, limit int, threshold float64) ([]models.RetrievedPassage, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	matches, err := s.passages.MatchPassages(ctx, queryVector, threshold, limit, institutionFilter)
	if err != nil {
		return nil, err
	}

	// The stored function already filters and ranks; re-enforce the
	// contract here so a misbehaving backend cannot leak passages at or
	// below the threshold or in the wrong order. The sort is stable, so
	// ties keep insertion order.
	filtered := matches[:0]
	for _, p := range matches {
		if p.SimilarityScore > threshold {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].SimilarityScore > filtered[j].SimilarityScore
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	s.logger.Debug("Similarity search completed",
		zap.Int("matches", len(filtered)),
		zap.Float64("threshold", threshold),
		zap.String("institution_filter", institutionFilter))

	return filtered, nil
}
