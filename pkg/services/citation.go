package services

import (
	"fmt"
	"strings"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// CitationResolver maps a retrieved passage back to a user-facing citation.
// Page and line numbers come from the ingestion-time parser; the resolver
// only relays and formats them. Each location field is relayed on its own,
// so a chunk with a line span but no page number still cites its lines.
type CitationResolver struct{}

// NewCitationResolver creates a new CitationResolver.
func NewCitationResolver() *CitationResolver {
	return &CitationResolver{}
}

// Resolve builds the citation for one passage.
func (r *CitationResolver) Resolve(p models.RetrievedPassage) models.Citation {
	c := models.Citation{
		DocumentID:    p.DocumentID,
		DocumentTitle: p.DocumentTitle,
		Institution:   p.Institution,
		PageNumber:    p.PageNumber,
		LineStart:     p.LineStart,
		LineEnd:       p.LineEnd,
	}
	c.Reference = formatReference(&c)
	return c
}

// ResolveAll resolves citations for a ranked passage list, preserving order.
func (r *CitationResolver) ResolveAll(passages []models.RetrievedPassage) []models.Citation {
	citations := make([]models.Citation, len(passages))
	for i, p := range passages {
		citations[i] = r.Resolve(p)
	}
	return citations
}

func formatReference(c *models.Citation) string {
	var b strings.Builder
	b.WriteString(c.DocumentTitle)
	if c.Institution != "" {
		fmt.Fprintf(&b, " (%s)", c.Institution)
	}
	if c.PageNumber != nil {
		fmt.Fprintf(&b, ", p. %d", *c.PageNumber)
	}
	if c.LineStart != nil && c.LineEnd != nil {
		fmt.Fprintf(&b, ", lines %d-%d", *c.LineStart, *c.LineEnd)
	} else if c.LineStart != nil {
		fmt.Fprintf(&b, ", line %d", *c.LineStart)
	}
	return b.String()
}
