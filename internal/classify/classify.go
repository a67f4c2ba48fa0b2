// Package classify fills in the category of imported finance transactions.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/digcity/portal-tools/internal/domain"
)

// Classifier assigns a category to every transaction whose Category is empty.
// Transactions that already carry a category are left untouched.
type Classifier interface {
	Classify(ctx context.Context, txs []*domain.Transaction) error
}

// Fallback is the category used when nothing else matches.
const Fallback = "Lainnya"

// DefaultCategories is the finance category list used by the portal.
var DefaultCategories = []string{
	"Kas",
	"Sponsorship",
	"Konsumsi",
	"Transportasi",
	"Perlengkapan",
	"Acara",
	"Donasi",
	Fallback,
}

// CategoryValidator checks names against an allowed category list.
type CategoryValidator struct {
	canonical map[string]string // normalized -> canonical spelling
}

func NewCategoryValidator(categories []string) *CategoryValidator {
	v := &CategoryValidator{canonical: make(map[string]string, len(categories))}
	for _, c := range categories {
		v.canonical[normalizeCategory(c)] = strings.TrimSpace(c)
	}
	return v
}

// Canonical returns the allowed spelling of name, or an error when name is
// not in the list. Comparison ignores case and surrounding whitespace.
func (v *CategoryValidator) Canonical(name string) (string, error) {
	c, ok := v.canonical[normalizeCategory(name)]
	if !ok {
		return "", fmt.Errorf("invalid category: %q (normalized: %q)", name, normalizeCategory(name))
	}
	return c, nil
}

func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func unclassified(txs []*domain.Transaction) []*domain.Transaction {
	var out []*domain.Transaction
	for _, tx := range txs {
		if tx.Category == "" {
			out = append(out, tx)
		}
	}
	return out
}
