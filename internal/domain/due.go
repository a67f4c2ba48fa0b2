package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"cloud.google.com/go/civil"

	"github.com/digcity/portal-tools/internal/csvtok"
	"github.com/digcity/portal-tools/internal/normalize"
	"github.com/digcity/portal-tools/internal/weeks"
)

// DueStatus is paid or unpaid.
type DueStatus string

const (
	Paid   DueStatus = "paid"
	Unpaid DueStatus = "unpaid"
)

// Due is one member's payment obligation for one week.
type Due struct {
	ID            string
	MemberName    string
	Division      string
	Amount        int64
	Week          int
	DueDate       civil.Date
	Status        DueStatus
	InvoiceNumber string
}

func (d *Due) Kind() Kind { return KindDue }
func (d *Due) RecordID() string { return d.ID }
func (d *Due) AssignID(id string) { d.ID = id }
func (d *Due) NaturalKey() string { return d.InvoiceNumber }

func (d *Due) Validate() error {
	switch {
	case d.MemberName == "":
		return invalid("due member name is empty")
	case d.Amount <= 0:
		return invalid("due amount must be positive, got %d", d.Amount)
	case d.Week <= 0:
		return invalid("due week must be positive, got %d", d.Week)
	case !d.DueDate.IsValid():
		return invalid("due date %q is not a calendar date", d.DueDate)
	case d.InvoiceNumber == "":
		return invalid("due invoice number is empty")
	case d.Status != Paid && d.Status != Unpaid:
		return invalid("due status %q", d.Status)
	}
	return nil
}

// DuesPlan describes a dues period: Weeks consecutive weekly obligations
// starting on Start.
type DuesPlan struct {
	Period string
	Start  civil.Date
	Weeks  int
}

// Validate checks that the plan can produce dues.
func (p DuesPlan) Validate() error {
	if p.Period == "" || !p.Start.IsValid() || p.Weeks <= 0 {
		return fmt.Errorf("%w: dues plan needs a period, a start date and a positive week count", ErrInvalid)
	}
	return nil
}

// InvoiceNumber derives the invoice number for a member's week. The member
// part is a readable slug followed by a short hash of the exact cleaned name,
// so names that slug alike ("Nur'aini", "Nur Aini") still get distinct
// numbers. It is a pure function of its inputs.
func InvoiceNumber(period, member string, week int) string {
	member = clean(member)
	sum := sha256.Sum256([]byte(member))
	return fmt.Sprintf("KAS-%s-%s-%s-W%02d", slug(period), slug(member), hex.EncodeToString(sum[:3]), week)
}

// BuildDuesFromRow parses a dues sheet row
// [no, member, division, weekly amount, annotation] and expands it into one
// Due per plan week. Weeks named in the annotation are paid.
func BuildDuesFromRow(row []string, plan DuesPlan) ([]*Due, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	member := clean(csvtok.Field(row, 1))
	if member == "" {
		return nil, invalid("dues row has no member name")
	}
	amount, ok := normalize.ParseAmount(csvtok.Field(row, 3))
	if !ok {
		return nil, invalid("unrecognised weekly amount %q", csvtok.Field(row, 3))
	}
	paid := weeks.Expand(csvtok.Field(row, 4))

	out := make([]*Due, 0, plan.Weeks)
	for w := 1; w <= plan.Weeks; w++ {
		status := Unpaid
		if paid.Contains(w) {
			status = Paid
		}
		d := &Due{
			MemberName:    member,
			Division:      clean(csvtok.Field(row, 2)),
			Amount:        amount,
			Week:          w,
			DueDate:       plan.Start.AddDays(7 * (w - 1)),
			Status:        status,
			InvoiceNumber: InvoiceNumber(plan.Period, member, w),
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
