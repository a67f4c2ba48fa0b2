// Package csvtok splits delimited spreadsheet exports into rows of trimmed
// fields. Unlike encoding/csv it never rejects input: unbalanced or stray
// quotes degrade to best-effort splitting.
package csvtok

import (
	"fmt"
	"os"
	"strings"
)

const bom = "\uFEFF"

// Options controls tokenization. The zero value splits on commas.
type Options struct {
	Comma rune
}

// Tokenize splits comma-delimited text.
func Tokenize(text string) [][]string {
	return TokenizeWith(text, Options{})
}

// TokenizeWith splits text using opts.
//
// Rows made only of empty fields are dropped unless one of their fields was
// quoted.
func TokenizeWith(text string, opts Options) [][]string {
	comma := opts.Comma
	if comma == 0 {
		comma = ','
	}

	t := &tokenizer{comma: comma}
	runes := []rune(strings.TrimPrefix(text, bom))

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if t.inQuotes {
			if r == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					t.field.WriteRune('"')
					i++
					continue
				}
				t.inQuotes = false
				continue
			}
			t.field.WriteRune(r)
			continue
		}

		switch r {
		case '"':
			if strings.TrimSpace(t.field.String()) == "" {
				t.field.Reset()
				t.inQuotes = true
				t.rowQuoted = true
			} else {
				t.field.WriteRune(r)
			}
		case comma:
			t.endField()
		case '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			t.endRow()
		case '\n':
			t.endRow()
		default:
			t.field.WriteRune(r)
		}
	}

	if t.inQuotes || t.field.Len() > 0 || len(t.row) > 0 || t.rowQuoted {
		t.endRow()
	}

	return t.rows
}

// Lines splits plain text on CR, LF or CRLF and returns the trimmed,
// non-blank lines. Ledger exports are line oriented rather than delimited.
func Lines(text string) []string {
	text = strings.TrimPrefix(text, bom)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ReadFile reads and tokenizes a whole file. Read failures are returned as-is
// so callers can abort the run.
func ReadFile(path string, opts Options) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csvtok.ReadFile: %w", err)
	}
	return TokenizeWith(string(data), opts), nil
}

type tokenizer struct {
	comma     rune
	rows      [][]string
	row       []string
	field     strings.Builder
	inQuotes  bool
	rowQuoted bool
}

func (t *tokenizer) endField() {
	t.row = append(t.row, strings.TrimSpace(t.field.String()))
	t.field.Reset()
}

func (t *tokenizer) endRow() {
	t.endField()
	if t.rowQuoted || !allEmpty(t.row) {
		t.rows = append(t.rows, t.row)
	}
	t.row = nil
	t.rowQuoted = false
	t.inQuotes = false
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// Field returns row[i], or "" when the row is shorter. Builders index columns
// positionally and short rows are common in spreadsheet exports.
func Field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
