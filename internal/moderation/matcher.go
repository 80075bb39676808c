// Package moderation provides the banned-term content policy injected into
// the moderation service.
package moderation

import (
	"strings"

	"github.com/predmarket/marketd/internal/domain"
)

// TermMatcher flags text containing any configured banned term,
// case-insensitively.
type TermMatcher struct {
	terms []string
}

// NewTermMatcher builds a matcher from the configured term list. Empty terms
// are dropped.
func NewTermMatcher(terms []string) *TermMatcher {
	m := &TermMatcher{}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			m.terms = append(m.terms, term)
		}
	}
	return m
}

// Dangerous reports whether the text contains a banned term.
func (m *TermMatcher) Dangerous(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range m.terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

var _ domain.ModerationPolicy = (*TermMatcher)(nil)
