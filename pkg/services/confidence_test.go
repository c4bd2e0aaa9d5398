package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

func TestConfidenceSignalWeightsSumToOne(t *testing.T) {
	var total float64
	for _, sig := range confidenceSignals {
		total += sig.weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestConfidenceScoreBounds(t *testing.T) {
	scorer := NewConfidenceScorer()

	tests := []struct {
		name     string
		query    string
		passages []models.RetrievedPassage
		answer   string
		filter   string
	}{
		{"no passages", "what is the filing deadline", nil, "I cannot tell.", ""},
		{"single strong passage", "filing deadline", []models.RetrievedPassage{
			passage("Tax Code", "IRS", "The filing deadline is April 15.", 0.95),
		}, "The filing deadline is April 15.", "IRS"},
		{"many weak passages", "audit requirements", []models.RetrievedPassage{
			passage("A", "X", "a", 0.3),
			passage("B", "X", "b", 0.9),
			passage("C", "X", "c", 0.2),
			passage("D", "X", "d", 0.5),
		}, "Unrelated answer text entirely.", ""},
		{"empty answer", "anything at all", []models.RetrievedPassage{
			passage("A", "X", "a", 1.0),
		}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scorer.Score(tt.query, tt.passages, tt.answer, tt.filter)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestConfidenceScoreDeterministic(t *testing.T) {
	scorer := NewConfidenceScorer()
	passages := []models.RetrievedPassage{
		passage("Banking Act", "FCA", "Banks must hold capital reserves.", 0.88),
		passage("Banking Act", "FCA", "Reserves are reviewed quarterly.", 0.74),
	}

	first := scorer.Score("capital reserve requirements", passages, "Banks must hold capital reserves, reviewed quarterly.", "FCA")
	for i := 0; i < 10; i++ {
		again := scorer.Score("capital reserve requirements", passages, "Banks must hold capital reserves, reviewed quarterly.", "FCA")
		assert.Equal(t, first, again)
	}
}

func TestSignalTopSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, signalTopSimilarity(scoreInput{}))

	in := scoreInput{passages: []models.RetrievedPassage{
		passage("A", "X", "a", 0.4),
		passage("B", "X", "b", 0.9),
	}}
	assert.Equal(t, 0.9, signalTopSimilarity(in))
}

func TestSignalPassageAgreement(t *testing.T) {
	// Fewer than two passages is neutral.
	assert.Equal(t, 0.5, signalPassageAgreement(scoreInput{}))
	assert.Equal(t, 0.5, signalPassageAgreement(scoreInput{passages: []models.RetrievedPassage{
		passage("A", "X", "a", 0.8),
	}}))

	// Tight cluster scores high, wide spread scores low.
	tight := signalPassageAgreement(scoreInput{passages: []models.RetrievedPassage{
		passage("A", "X", "a", 0.80),
		passage("B", "X", "b", 0.78),
	}})
	wide := signalPassageAgreement(scoreInput{passages: []models.RetrievedPassage{
		passage("A", "X", "a", 0.95),
		passage("B", "X", "b", 0.10),
	}})
	assert.Greater(t, tight, wide)
}

func TestSignalPassageCount(t *testing.T) {
	assert.Equal(t, 0.0, signalPassageCount(scoreInput{}))

	three := scoreInput{passages: []models.RetrievedPassage{
		passage("A", "X", "a", 0.5),
		passage("B", "X", "b", 0.5),
		passage("C", "X", "c", 0.5),
	}}
	assert.Equal(t, 1.0, signalPassageCount(three))

	// More than three does not exceed 1.
	five := three
	five.passages = append(five.passages, passage("D", "X", "d", 0.5), passage("E", "X", "e", 0.5))
	assert.Equal(t, 1.0, signalPassageCount(five))
}

func TestSignalFilterSpecificity(t *testing.T) {
	assert.Equal(t, 1.0, signalFilterSpecificity(scoreInput{institutionFilter: "SEC"}))
	assert.Equal(t, 0.5, signalFilterSpecificity(scoreInput{}))
}

func TestSignalLexicalOverlap(t *testing.T) {
	full := signalLexicalOverlap(scoreInput{
		query:  "filing deadline",
		answer: "The filing deadline is April 15.",
	})
	assert.Equal(t, 1.0, full)

	none := signalLexicalOverlap(scoreInput{
		query:  "filing deadline",
		answer: "Completely unrelated words.",
	})
	assert.Equal(t, 0.0, none)

	// Empty query has no terms to match.
	assert.Equal(t, 0.0, signalLexicalOverlap(scoreInput{answer: "whatever"}))

	// Token matching is case-insensitive.
	mixed := signalLexicalOverlap(scoreInput{
		query:  "FILING Deadline",
		answer: "the filing deadline",
	})
	assert.Equal(t, 1.0, mixed)
}
