package services

import (
	"regexp"
	"strings"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// ConfidenceScorer combines five independent signals into one trust score.
// Each signal is normalized to [0,1] before combination and the weights sum
// to 1.0, so the result is always in range without clamping. The scorer is
// a pure function of its inputs: identical inputs always produce identical
// scores.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a new ConfidenceScorer.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// scoreInput carries everything a signal may inspect.
type scoreInput struct {
	query             string
	passages          []models.RetrievedPassage
	answer            string
	institutionFilter string
}

// confidenceSignals is the fixed signal table. Weights sum to 1.0.
var confidenceSignals = []struct {
	name   string
	weight float64
	fn     func(scoreInput) float64
}{
	{"top_similarity", 0.35, signalTopSimilarity},
	{"passage_agreement", 0.20, signalPassageAgreement},
	{"passage_count", 0.15, signalPassageCount},
	{"filter_specificity", 0.10, signalFilterSpecificity},
	{"lexical_overlap", 0.20, signalLexicalOverlap},
}

// Score returns the combined confidence for an answer in [0,1].
func (s *ConfidenceScorer) Score(queryText string, passages []models.RetrievedPassage, answerText string, institutionFilter string) float64 {
	in := scoreInput{
		query:             queryText,
		passages:          passages,
		answer:            answerText,
		institutionFilter: institutionFilter,
	}

	var total float64
	for _, sig := range confidenceSignals {
		total += sig.weight * sig.fn(in)
	}
	return total
}

// signalTopSimilarity is the best similarity score among the passages.
func signalTopSimilarity(in scoreInput) float64 {
	var top float64
	for _, p := range in.passages {
		if p.SimilarityScore > top {
			top = p.SimilarityScore
		}
	}
	return clamp01(top)
}

// signalPassageAgreement measures how tightly the passage scores cluster.
// A wide spread means the retrieval is uncertain about what is relevant.
// Fewer than two passages give a neutral 0.5.
func signalPassageAgreement(in scoreInput) float64 {
	if len(in.passages) < 2 {
		return 0.5
	}
	min, max := in.passages[0].SimilarityScore, in.passages[0].SimilarityScore
	for _, p := range in.passages[1:] {
		if p.SimilarityScore < min {
			min = p.SimilarityScore
		}
		if p.SimilarityScore > max {
			max = p.SimilarityScore
		}
	}
	return clamp01(1 - (max - min))
}

// signalPassageCount rewards having enough supporting passages; three or
// more is considered sufficient.
func signalPassageCount(in scoreInput) float64 {
	return clamp01(float64(len(in.passages)) / 3)
}

// signalFilterSpecificity: a query scoped to one institution retrieves from
// a narrower, more relevant corpus slice.
func signalFilterSpecificity(in scoreInput) float64 {
	if in.institutionFilter != "" {
		return 1
	}
	return 0.5
}

// signalLexicalOverlap is the fraction of distinct query terms that appear
// in the answer.
func signalLexicalOverlap(in scoreInput) float64 {
	queryTokens := tokenSet(in.query)
	if len(queryTokens) == 0 {
		return 0
	}
	answerTokens := tokenSet(in.answer)

	matched := 0
	for tok := range queryTokens {
		if _, ok := answerTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
