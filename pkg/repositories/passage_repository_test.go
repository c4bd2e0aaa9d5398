package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaven/lexhaven-engine/pkg/testhelpers"
)

func TestFormatVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"empty", nil, "[]"},
		{"single", []float32{0.5}, "[0.5]"},
		{"multiple", []float32{0.1, -0.25, 1}, "[0.1,-0.25,1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVector(tt.in))
		})
	}
}

// seedPassages inserts documents with hand-built sparse embeddings so cosine
// similarity against the [1,0,...] query vector is predictable: the Banking
// Act chunk scores 1.0, the Securities chunk ~0.707, and the pending
// document's chunk must never surface.
func seedPassages(t *testing.T, db *testhelpers.EngineDB) {
	t.Helper()
	ctx := context.Background()

	docA := uuid.New()
	docB := uuid.New()
	pending := uuid.New()

	_, err := db.DB.Exec(ctx, `
		INSERT INTO documents (id, title, institution, processing_status) VALUES
		($1, 'Banking Act', 'FCA', 'completed'),
		($2, 'Securities Rules', 'SEC', 'completed'),
		($3, 'Draft Guidance', 'FCA', 'pending')`,
		docA, docB, pending)
	require.NoError(t, err)

	_, err = db.DB.Exec(ctx, `
		INSERT INTO document_chunks (id, document_id, chunk_text, embedding, page_number, line_start, line_end) VALUES
		($1, $4, 'Banks must hold capital reserves.', ('[1'||repeat(',0', 1535)||']')::vector, 3, 1, 4),
		($2, $5, 'Quarterly disclosures are mandatory.', ('[1,1'||repeat(',0', 1534)||']')::vector, NULL, NULL, NULL),
		($3, $6, 'Unprocessed draft text.', ('[1'||repeat(',0', 1535)||']')::vector, 1, 1, 2)`,
		uuid.New(), uuid.New(), uuid.New(), docA, docB, pending)
	require.NoError(t, err)
}

func TestPassageRepository_MatchPassages(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	repo := NewPassageRepository(db.DB)
	ctx := context.Background()

	seedPassages(t, db)

	query := make([]float32, 1536)
	query[0] = 1

	passages, err := repo.MatchPassages(ctx, query, 0.1, 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, passages)

	// Only chunks from completed documents are searchable.
	for _, p := range passages {
		assert.NotEqual(t, "Unprocessed draft text.", p.ChunkText)
	}

	// Best match first, with its location metadata intact.
	assert.Equal(t, "Banks must hold capital reserves.", passages[0].ChunkText)
	assert.Equal(t, "Banking Act", passages[0].DocumentTitle)
	assert.Equal(t, "FCA", passages[0].Institution)
	require.NotNil(t, passages[0].PageNumber)
	assert.Equal(t, 3, *passages[0].PageNumber)
	assert.InDelta(t, 1.0, passages[0].SimilarityScore, 1e-6)
}

func TestPassageRepository_InstitutionFilter(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	repo := NewPassageRepository(db.DB)
	ctx := context.Background()

	query := make([]float32, 1536)
	query[0] = 1

	passages, err := repo.MatchPassages(ctx, query, 0.1, 10, "SEC")
	require.NoError(t, err)

	for _, p := range passages {
		assert.Equal(t, "SEC", p.Institution)
	}
}

func TestPassageRepository_ThresholdExcludesWeakMatches(t *testing.T) {
	db := testhelpers.GetEngineDB(t)
	repo := NewPassageRepository(db.DB)
	ctx := context.Background()

	query := make([]float32, 1536)
	query[0] = 1

	passages, err := repo.MatchPassages(ctx, query, 0.99, 10, "")
	require.NoError(t, err)

	for _, p := range passages {
		assert.Greater(t, p.SimilarityScore, 0.99)
	}
}
