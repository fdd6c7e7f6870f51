package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"NewsPortal/internal/ports"
)

// Processor sanitizes editor-supplied HTML and extracts listing excerpts.
type Processor struct {
	policy *bluemonday.Policy
}

var _ ports.ContentProcessor = (*Processor)(nil)

// NewProcessor uses the user-generated-content policy: formatting, links and
// images survive, scripts and event handlers do not.
func NewProcessor() *Processor {
	return &Processor{policy: bluemonday.UGCPolicy()}
}

func (p *Processor) Sanitize(body string) string {
	return strings.TrimSpace(p.policy.Sanitize(body))
}

// Excerpt returns the visible text of body with collapsed whitespace, cut to
// limit runes on a word boundary when possible.
func (p *Processor) Excerpt(body string, limit int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse body: %w", err)
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, nil
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…", nil
}
