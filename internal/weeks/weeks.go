// Package weeks extracts paid-week numbers from free-text dues annotations
// such as "M1-M4", "MINGGU 5" or "13 MINGGU".
//
// Each rule is an independent pure function; Expand unions whatever every
// rule finds. Overlapping matches are harmless and contradictory text is not
// detected.
package weeks

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// RangeLimit bounds week ranges so years and amounts are not read as week
// numbers. Ranges with an end at or above it are ignored.
const RangeLimit = 50

// Set is a set of positive week numbers.
type Set map[int]struct{}

// NewSet returns a set holding the positive values of ws.
func NewSet(ws ...int) Set {
	s := Set{}
	for _, w := range ws {
		s.Add(w)
	}
	return s
}

// Add inserts w when it is positive.
func (s Set) Add(w int) {
	if w > 0 {
		s[w] = struct{}{}
	}
}

// AddRange inserts every week in [from, to]. Reversed ranges add nothing.
func (s Set) AddRange(from, to int) {
	for w := from; w <= to; w++ {
		s.Add(w)
	}
}

func (s Set) Contains(w int) bool {
	_, ok := s[w]
	return ok
}

func (s Set) Len() int { return len(s) }

// Union adds every member of o to s and returns s.
func (s Set) Union(o Set) Set {
	for w := range o {
		s[w] = struct{}{}
	}
	return s
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

// Rule extracts weeks from an upper-cased annotation.
type Rule func(annotation string) Set

// Phrase maps a fixed wording to an inclusive week range.
type Phrase struct {
	Pattern  *regexp.Regexp
	From, To int
}

var (
	mRangeRe    = regexp.MustCompile(`\bM\s*(\d+)\s*[-–]\s*M?\s*(\d+)\b`)
	mSingleRe   = regexp.MustCompile(`\bM(\d+)\b`)
	mingguRe    = regexp.MustCompile(`\bMINGGU\s*(?:KE[-\s]?)?(\d+)\b`)
	bareRangeRe = regexp.MustCompile(`\b(\d+)\s*[-–]\s*(\d+)\b`)
)

// DefaultPhrases are the fixed wordings seen in the dues sheets.
var DefaultPhrases = []Phrase{
	{Pattern: regexp.MustCompile(`\b13\s+MINGGU\b`), From: 1, To: 13},
}

// DefaultRules is the rule pipeline used by Expand.
var DefaultRules = []Rule{
	MRangeRule,
	MSingleRule,
	MingguRule,
	BareRangeRule,
	PhraseRule(DefaultPhrases),
}

// Expand applies DefaultRules to annotation.
func Expand(annotation string) Set {
	return ExpandWith(annotation, DefaultRules...)
}

// ExpandWith applies rules to annotation and unions the results.
func ExpandWith(annotation string, rules ...Rule) Set {
	text := strings.ToUpper(strings.Join(strings.Fields(annotation), " "))
	out := Set{}
	for _, rule := range rules {
		out.Union(rule(text))
	}
	return out
}

// MRangeRule matches "M<a>-M<b>" (the second M may be omitted) when both
// ends are below RangeLimit.
func MRangeRule(annotation string) Set {
	s := Set{}
	for _, m := range mRangeRe.FindAllStringSubmatch(annotation, -1) {
		addBounded(s, atoi(m[1]), atoi(m[2]))
	}
	return s
}

// MSingleRule matches single "M<n>" tokens.
func MSingleRule(annotation string) Set {
	s := Set{}
	for _, m := range mSingleRe.FindAllStringSubmatch(annotation, -1) {
		s.Add(atoi(m[1]))
	}
	return s
}

// MingguRule matches "MINGGU <n>" and "MINGGU KE-<n>".
func MingguRule(annotation string) Set {
	s := Set{}
	for _, m := range mingguRe.FindAllStringSubmatch(annotation, -1) {
		s.Add(atoi(m[1]))
	}
	return s
}

// BareRangeRule matches "<a>-<b>" when both ends are below RangeLimit.
func BareRangeRule(annotation string) Set {
	s := Set{}
	for _, m := range bareRangeRe.FindAllStringSubmatch(annotation, -1) {
		addBounded(s, atoi(m[1]), atoi(m[2]))
	}
	return s
}

func addBounded(s Set, from, to int) {
	if from >= RangeLimit || to >= RangeLimit {
		return
	}
	s.AddRange(from, to)
}

// PhraseRule builds a rule from fixed wordings.
func PhraseRule(phrases []Phrase) Rule {
	return func(annotation string) Set {
		s := Set{}
		for _, p := range phrases {
			if p.Pattern.MatchString(annotation) {
				s.AddRange(p.From, p.To)
			}
		}
		return s
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
