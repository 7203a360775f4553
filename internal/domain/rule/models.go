package rule

import (
	"errors"
	"strings"
)

var (
	ErrKeywordRequired  = errors.New("rule keyword is required")
	ErrCategoryRequired = errors.New("rule category is required")
)

// Rule maps a keyword to a category. Rules are consulted in insertion
// order before any heuristic fallback.
type Rule struct {
	ID       string `json:"id"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// CreateParams contains the parameters for creating a rule.
type CreateParams struct {
	Keyword  string
	Category string
}

func (p *CreateParams) Validate() error {
	if strings.TrimSpace(p.Keyword) == "" {
		return ErrKeywordRequired
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrCategoryRequired
	}
	return nil
}

// Matches reports whether the rule's keyword occurs in the title,
// case-insensitively.
func (r *Rule) Matches(title string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(r.Keyword))
}
