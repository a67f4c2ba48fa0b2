package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/digcity/portal-tools/internal/domain"
)

func TestCategoryValidator_Canonical(t *testing.T) {
	v := NewCategoryValidator(DefaultCategories)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "exact", input: "Konsumsi", want: "Konsumsi"},
		{name: "different case", input: "SPONSORSHIP", want: "Sponsorship"},
		{name: "extra spaces", input: "  kas ", want: "Kas"},
		{name: "unknown", input: "Groceries", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Canonical(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Canonical(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifier_Category(t *testing.T) {
	k := NewKeywordClassifier()

	tests := []struct {
		description string
		want        string
	}{
		{"Sisa uang kas 2023/2024", "Kas"},
		{"Iuran anggota minggu 3", "Kas"},
		{"Dana SPONSOR Bank X", "Sponsorship"},
		{"Konsumsi rapat pleno", "Konsumsi"},
		{"Bensin + parkir survey", "Transportasi"},
		{"Cetak banner open recruitment", "Perlengkapan"},
		{"Sewa gedung", "Acara"},
		{"Transfer ke bendahara", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := k.Category(tt.description); got != tt.want {
				t.Errorf("Category(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifier_KeepsExistingCategory(t *testing.T) {
	txs := []*domain.Transaction{
		{Description: "Konsumsi", Category: "Acara"},
		{Description: "Konsumsi"},
	}
	if err := NewKeywordClassifier().Classify(context.Background(), txs); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if txs[0].Category != "Acara" {
		t.Errorf("existing category overwritten: %q", txs[0].Category)
	}
	if txs[1].Category != "Konsumsi" {
		t.Errorf("Category = %q, want Konsumsi", txs[1].Category)
	}
}

// mockGenerator returns a canned model response.
type mockGenerator struct {
	text   string
	err    error
	calls  int
	prompt string
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		m.prompt = contents[0].Parts[0].Text
	}
	if m.err != nil {
		return nil, m.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: m.text}}}},
		},
	}, nil
}

func TestGeminiClassifier_ValidatesAnswers(t *testing.T) {
	gen := &mockGenerator{text: "```json\n" +
		`[{"index": 0, "category": "sponsorship"}, {"index": 1, "category": "Groceries"}, {"index": 9, "category": "Kas"}]` +
		"\n```"}
	g := NewGeminiClassifierWithGenerator(gen, "", DefaultCategories)

	txs := []*domain.Transaction{
		{Description: "Dana dari PT Maju", Type: domain.Income, Amount: 1000000},
		{Description: "Konsumsi rapat", Type: domain.Expense, Amount: 50000},
		{Description: "Sudah", Category: "Kas"},
		{Description: "Transfer"},
	}

	if err := g.Classify(context.Background(), txs); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	want := []string{"Sponsorship", "Konsumsi", "Kas", Fallback}
	for i, w := range want {
		if txs[i].Category != w {
			t.Errorf("txs[%d].Category = %q, want %q", i, txs[i].Category, w)
		}
	}
	if gen.calls != 1 {
		t.Errorf("GenerateContent called %d times, want 1", gen.calls)
	}
	if strings.Contains(gen.prompt, "Sudah") {
		t.Error("prompt includes an already categorized transaction")
	}
	if !strings.Contains(gen.prompt, "- Donasi") {
		t.Error("prompt does not list the allowed categories")
	}
}

func TestGeminiClassifier_FallsBackOnError(t *testing.T) {
	gen := &mockGenerator{err: errors.New("quota exceeded")}
	g := NewGeminiClassifierWithGenerator(gen, "gemini-test", DefaultCategories)

	txs := []*domain.Transaction{{Description: "Iuran kas"}}
	if err := g.Classify(context.Background(), txs); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if txs[0].Category != "Kas" {
		t.Errorf("Category = %q, want keyword fallback Kas", txs[0].Category)
	}
}

func TestGeminiClassifier_FallsBackOnGarbage(t *testing.T) {
	gen := &mockGenerator{text: "I cannot help with that."}
	g := NewGeminiClassifierWithGenerator(gen, "", DefaultCategories)

	txs := []*domain.Transaction{{Description: "Snack peserta"}}
	if err := g.Classify(context.Background(), txs); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if txs[0].Category != "Konsumsi" {
		t.Errorf("Category = %q, want Konsumsi", txs[0].Category)
	}
}

func TestGeminiClassifier_NothingPending(t *testing.T) {
	gen := &mockGenerator{}
	g := NewGeminiClassifierWithGenerator(gen, "", DefaultCategories)

	txs := []*domain.Transaction{{Description: "x", Category: "Kas"}}
	if err := g.Classify(context.Background(), txs); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("GenerateContent called %d times, want 0", gen.calls)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `[{"index":0}]`, want: `[{"index":0}]`},
		{name: "fenced", raw: "```json\n[1]\n```", want: "[1]"},
		{name: "chatter", raw: "Here you go: [1, 2] done", want: "[1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
