// Package reconcile compares planned records with what the database already
// holds so that only the delta is written.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/digcity/portal-tools/internal/domain"
)

// Result partitions the planned records. Missing and Present keep the planned
// order; Duplicates lists each repeated natural key once, sorted.
type Result struct {
	Missing    []domain.Record
	Present    []domain.Record
	Duplicates []string
}

// Summary holds the counts printed after a run.
type Summary struct {
	Planned    int `json:"planned"`
	Existing   int `json:"existing"`
	Missing    int `json:"missing"`
	Present    int `json:"present"`
	Duplicates int `json:"duplicates"`
}

// Delta keys both sides by NaturalKey. A key repeated in planned is kept
// once, on its first occurrence.
func Delta(planned, existing []domain.Record) Result {
	stored := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		stored[r.NaturalKey()] = struct{}{}
	}

	seen := make(map[string]struct{}, len(planned))
	dupes := map[string]struct{}{}
	var res Result

	for _, r := range planned {
		key := r.NaturalKey()
		if _, ok := seen[key]; ok {
			dupes[key] = struct{}{}
			continue
		}
		seen[key] = struct{}{}

		if _, ok := stored[key]; ok {
			res.Present = append(res.Present, r)
		} else {
			res.Missing = append(res.Missing, r)
		}
	}

	for k := range dupes {
		res.Duplicates = append(res.Duplicates, k)
	}
	sort.Strings(res.Duplicates)

	return res
}

// Summarize counts a Result. existing is the number of stored rows compared.
func Summarize(res Result, planned, existing int) Summary {
	return Summary{
		Planned:    planned,
		Existing:   existing,
		Missing:    len(res.Missing),
		Present:    len(res.Present),
		Duplicates: len(res.Duplicates),
	}
}

// HumanSummary renders a Result for console output.
func HumanSummary(res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "to insert: %d, already stored: %d, duplicate keys in source: %d",
		len(res.Missing), len(res.Present), len(res.Duplicates))
	for _, k := range res.Duplicates {
		fmt.Fprintf(&b, "\n  duplicate: %s", k)
	}
	return b.String()
}
