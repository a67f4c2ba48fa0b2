package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/logger"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ContentGenerator is the subset of the genai Models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier asks Gemini to pick a category from a fixed list.
// Answers outside the list, and any request failure, fall back to the
// keyword classifier so an import never stops on the model.
type GeminiClassifier struct {
	gen        ContentGenerator
	model      string
	categories []string
	validator  *CategoryValidator
	fallback   *KeywordClassifier
}

// NewGeminiClassifier creates a genai client for the Gemini API.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClassifier: create genai client: %w", err)
	}
	return NewGeminiClassifierWithGenerator(client.Models, model, DefaultCategories), nil
}

// NewGeminiClassifierWithGenerator is used by tests and by callers that
// already hold a genai client.
func NewGeminiClassifierWithGenerator(gen ContentGenerator, model string, categories []string) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{
		gen:        gen,
		model:      model,
		categories: categories,
		validator:  NewCategoryValidator(categories),
		fallback:   NewKeywordClassifier(),
	}
}

type modelAnswer struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

func (g *GeminiClassifier) Classify(ctx context.Context, txs []*domain.Transaction) error {
	log := logger.FromContext(ctx)

	pending := unclassified(txs)
	if len(pending) == 0 {
		return nil
	}

	answers, err := g.ask(ctx, pending)
	if err != nil {
		log.Warn().Err(err).Int("transactions", len(pending)).Msg("Gemini classification failed, using keyword rules")
		return g.fallback.Classify(ctx, pending)
	}

	for _, a := range answers {
		if a.Index < 0 || a.Index >= len(pending) {
			log.Warn().Int("index", a.Index).Msg("Gemini answered for an unknown transaction")
			continue
		}
		tx := pending[a.Index]
		if tx.Category != "" {
			continue
		}
		cat, err := g.validator.Canonical(a.Category)
		if err != nil {
			log.Warn().Err(err).Str("description", tx.Description).Msg("Rejected model category")
			continue
		}
		tx.Category = cat
	}

	// Anything the model skipped or got wrong goes through the keyword rules.
	return g.fallback.Classify(ctx, pending)
}

func (g *GeminiClassifier) ask(ctx context.Context, pending []*domain.Transaction) ([]modelAnswer, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: g.prompt(pending)}},
		},
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ask: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("ask: empty response from model")
	}

	var answers []modelAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answers); err != nil {
		return nil, fmt.Errorf("ask: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return answers, nil
}

func (g *GeminiClassifier) prompt(pending []*domain.Transaction) string {
	var b strings.Builder
	b.WriteString("You categorize entries of a student organization's cash ledger (Indonesian).\n\n")
	b.WriteString("Allowed categories:\n")
	for _, c := range g.categories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\nEntries:\n")
	for i, tx := range pending {
		fmt.Fprintf(&b, "%d. [%s] %s (Rp %d)\n", i, tx.Type, tx.Description, tx.Amount)
	}
	b.WriteString("\nRules:\n" +
		"- Pick exactly one allowed category per entry.\n" +
		"- Use \"" + Fallback + "\" when nothing fits.\n\n" +
		"Return ONLY a raw JSON array of objects {\"index\": number, \"category\": string}.\n" +
		"Do NOT wrap the response in code fences.\n")
	return b.String()
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}
