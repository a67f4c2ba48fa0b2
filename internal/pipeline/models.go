package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/digcity/portal-tools/internal/classify"
	"github.com/digcity/portal-tools/internal/domain"
)

// ImportKind selects the source format and record builder.
type ImportKind string

const (
	KindFinanceLedger ImportKind = "finance-ledger"
	KindFinanceCSV    ImportKind = "finance-csv"
	KindEvents        ImportKind = "events"
	KindAttendance    ImportKind = "attendance"
	KindDues          ImportKind = "dues"
)

// RecordKind is the record type an import produces.
func (k ImportKind) RecordKind() domain.Kind {
	switch k {
	case KindFinanceLedger, KindFinanceCSV:
		return domain.KindTransaction
	case KindEvents:
		return domain.KindEvent
	case KindAttendance:
		return domain.KindAttendance
	case KindDues:
		return domain.KindDue
	}
	return ""
}

// ParseImportKind accepts the kind names used on the command line.
func ParseImportKind(s string) (ImportKind, error) {
	k := ImportKind(strings.ToLower(strings.TrimSpace(s)))
	if k.RecordKind() == "" {
		return "", fmt.Errorf("unknown import kind %q", s)
	}
	return k, nil
}

// Mode selects how records leave the pipeline.
type Mode string

const (
	// ModeEmit writes batched SQL files.
	ModeEmit Mode = "emit"
	// ModeApply writes each record to the database directly.
	ModeApply Mode = "apply"
)

// Job describes one import run.
type Job struct {
	Kind   ImportKind
	Source string // local path or gs:// URI
	Mode   Mode

	OutputDir string
	Prefix    string
	BatchSize int

	// HeaderRows leading rows are ignored. Negative means the kind's default.
	HeaderRows int
	Comma      rune

	// Reconcile loads stored rows first and keeps only the missing ones.
	Reconcile bool

	Dues     domain.DuesPlan
	Location *time.Location

	PublishPrefix string
	// AfterRPC names a database function called once after an apply run.
	AfterRPC string
}

// Deps are the collaborators of a run. Every field is optional except where
// the job needs it: ModeApply needs Store.
type Deps struct {
	Store      Store
	Ledger     RunLedger
	Classifier classify.Classifier
	Publisher  Publisher
	Fetcher    SourceFetcher
}

// Report counts what a run did.
type Report struct {
	Kind   ImportKind
	Source string
	RunID  string

	RowsRead       int
	RowsSkipped    int
	RecordsBuilt   int
	Duplicates     int
	AlreadyPresent int
	Emitted        int
	Applied        int
	Failed         int

	BatchFiles []string
	Published  []string
	Skipped    []*domain.RowError
}

// Written is the number of records that left the pipeline.
func (r *Report) Written() int { return r.Emitted + r.Applied }

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s import of %s\n", r.Kind, r.Source)
	fmt.Fprintf(&b, "  rows read:        %d\n", r.RowsRead)
	fmt.Fprintf(&b, "  rows skipped:     %d\n", r.RowsSkipped)
	fmt.Fprintf(&b, "  records built:    %d\n", r.RecordsBuilt)
	fmt.Fprintf(&b, "  duplicates:       %d\n", r.Duplicates)
	fmt.Fprintf(&b, "  already stored:   %d\n", r.AlreadyPresent)
	if len(r.BatchFiles) > 0 || r.Emitted > 0 {
		fmt.Fprintf(&b, "  emitted:          %d in %d file(s)\n", r.Emitted, len(r.BatchFiles))
	}
	if r.Applied > 0 || r.Failed > 0 {
		fmt.Fprintf(&b, "  applied:          %d\n", r.Applied)
		fmt.Fprintf(&b, "  failed:           %d\n", r.Failed)
	}
	for _, f := range r.BatchFiles {
		fmt.Fprintf(&b, "    %s\n", f)
	}
	return b.String()
}
