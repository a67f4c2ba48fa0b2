package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/digcity/portal-tools/internal/domain"
)

// Rule maps a keyword to a category. A keyword matches any word of the
// description that starts with it, case-insensitively.
type Rule struct {
	Keyword  string
	Category string
}

// DefaultRules are tried in order; the first match wins.
var DefaultRules = []Rule{
	{Keyword: "kas", Category: "Kas"},
	{Keyword: "iuran", Category: "Kas"},
	{Keyword: "sponsor", Category: "Sponsorship"},
	{Keyword: "konsumsi", Category: "Konsumsi"},
	{Keyword: "makan", Category: "Konsumsi"},
	{Keyword: "snack", Category: "Konsumsi"},
	{Keyword: "transport", Category: "Transportasi"},
	{Keyword: "bensin", Category: "Transportasi"},
	{Keyword: "parkir", Category: "Transportasi"},
	{Keyword: "cetak", Category: "Perlengkapan"},
	{Keyword: "print", Category: "Perlengkapan"},
	{Keyword: "banner", Category: "Perlengkapan"},
	{Keyword: "atk", Category: "Perlengkapan"},
	{Keyword: "sewa", Category: "Acara"},
	{Keyword: "donasi", Category: "Donasi"},
}

// KeywordClassifier categorizes by matching description words.
type KeywordClassifier struct {
	Rules    []Rule
	Fallback string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{Rules: DefaultRules, Fallback: Fallback}
}

func (k *KeywordClassifier) Classify(ctx context.Context, txs []*domain.Transaction) error {
	for _, tx := range unclassified(txs) {
		tx.Category = k.Category(tx.Description)
	}
	return nil
}

// Category returns the category for a single description.
func (k *KeywordClassifier) Category(description string) string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range k.Rules {
		kw := strings.ToLower(rule.Keyword)
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				return rule.Category
			}
		}
	}
	return k.Fallback
}
