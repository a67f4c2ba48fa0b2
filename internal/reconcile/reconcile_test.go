package reconcile

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/digcity/portal-tools/internal/domain"
)

func tx(day int, desc string, amount int64) *domain.Transaction {
	return &domain.Transaction{
		Date:        civil.Date{Year: 2025, Month: time.January, Day: day},
		Description: desc,
		Amount:      amount,
		Type:        domain.Income,
		Status:      domain.StatusCompleted,
	}
}

func TestDelta(t *testing.T) {
	planned := []domain.Record{
		tx(14, "Sisa uang", 545000),
		tx(15, "Sponsor", 250000),
		tx(14, "Sisa uang", 545000), // same natural key as the first row
		tx(16, "Konsumsi", 80000),
	}
	existing := []domain.Record{
		tx(15, "Sponsor", 250000),
		tx(20, "Unrelated", 1000),
	}

	res := Delta(planned, existing)

	if len(res.Missing) != 2 {
		t.Fatalf("Missing len got=%d want=2", len(res.Missing))
	}
	if got := res.Missing[0].(*domain.Transaction).Description; got != "Sisa uang" {
		t.Errorf("Missing[0] = %q, want first occurrence kept", got)
	}
	if got := res.Missing[1].(*domain.Transaction).Description; got != "Konsumsi" {
		t.Errorf("Missing[1] = %q, want Konsumsi", got)
	}
	if len(res.Present) != 1 {
		t.Fatalf("Present len got=%d want=1", len(res.Present))
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0] != "2025-01-14|income|545000|Sisa uang" {
		t.Errorf("Duplicates = %v", res.Duplicates)
	}

	sum := Summarize(res, len(planned), len(existing))
	want := Summary{Planned: 4, Existing: 2, Missing: 2, Present: 1, Duplicates: 1}
	if sum != want {
		t.Errorf("Summarize() = %+v, want %+v", sum, want)
	}
}

func TestDelta_RerunYieldsNothingMissing(t *testing.T) {
	planned := []domain.Record{tx(14, "A", 1), tx(15, "B", 2)}
	first := Delta(planned, nil)
	if len(first.Missing) != 2 {
		t.Fatalf("first run Missing = %d, want 2", len(first.Missing))
	}

	second := Delta(planned, first.Missing)
	if len(second.Missing) != 0 || len(second.Present) != 2 {
		t.Errorf("second run Missing=%d Present=%d, want 0/2", len(second.Missing), len(second.Present))
	}
}

func TestDelta_CaseMatchesDatabaseGuard(t *testing.T) {
	// The insert guard compares description exactly, so a stored row that
	// differs only in case does not stop the insert. Reconcile must agree.
	planned := []domain.Record{tx(15, "Sponsor", 250000)}
	existing := []domain.Record{tx(15, "sponsor", 250000)}

	res := Delta(planned, existing)
	if len(res.Missing) != 1 || len(res.Present) != 0 {
		t.Errorf("Missing=%d Present=%d, want 1/0", len(res.Missing), len(res.Present))
	}
}

func TestDelta_Empty(t *testing.T) {
	res := Delta(nil, nil)
	if res.Missing != nil || res.Present != nil || res.Duplicates != nil {
		t.Errorf("Delta(nil, nil) = %+v, want zero Result", res)
	}
}

func TestHumanSummary(t *testing.T) {
	res := Result{
		Missing:    []domain.Record{tx(1, "A", 1)},
		Duplicates: []string{"k1"},
	}
	got := HumanSummary(res)
	if !strings.HasPrefix(got, "to insert: 1, already stored: 0, duplicate keys in source: 1") {
		t.Errorf("HumanSummary() = %q", got)
	}
	if !strings.Contains(got, "duplicate: k1") {
		t.Errorf("HumanSummary() does not list duplicates: %q", got)
	}
}
