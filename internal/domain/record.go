// Package domain holds the typed records built from spreadsheet rows and the
// single parsing function per record kind.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a record type.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindEvent       Kind = "event"
	KindAttendance  Kind = "attendance"
	KindDue         Kind = "due"
)

// ErrInvalid marks a row that could not be turned into a valid record.
var ErrInvalid = errors.New("invalid record")

// Record is implemented by every importable entity.
type Record interface {
	Kind() Kind
	// NaturalKey identifies the record independently of its generated ID.
	// Reconciliation and the SQL existence guards compare the same fields,
	// exactly and case-sensitively.
	NaturalKey() string
	Validate() error
	RecordID() string
	AssignID(id string)
}

// RowError reports a source row that was skipped. Row is 1-based.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
