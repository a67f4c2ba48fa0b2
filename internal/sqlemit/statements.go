package sqlemit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"

	"github.com/digcity/portal-tools/internal/domain"
)

// Tables names the destination tables. The zero value is replaced by
// DefaultTables.
type Tables struct {
	Transactions string
	Events       string
	Attendance   string
	Dues         string
}

// DefaultTables matches the portal's Supabase schema.
var DefaultTables = Tables{
	Transactions: "finance_transactions",
	Events:       "events",
	Attendance:   "attendance",
	Dues:         "member_dues",
}

// Statement renders one idempotent statement for rec. The record must carry
// an ID already.
func (t Tables) Statement(rec domain.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if rec.RecordID() == "" {
		return "", fmt.Errorf("sqlemit: %s %q has no id", rec.Kind(), rec.NaturalKey())
	}

	switch r := rec.(type) {
	case *domain.Transaction:
		return t.transaction(r), nil
	case *domain.Event:
		return t.event(r), nil
	case *domain.Attendance:
		return t.attendance(r), nil
	case *domain.Due:
		return t.due(r), nil
	}
	return "", fmt.Errorf("sqlemit: unsupported record kind %q", rec.Kind())
}

func (t Tables) transaction(tx *domain.Transaction) string {
	table := pq.QuoteIdentifier(t.Transactions)
	date := dateLiteral(tx.Date)
	desc := pq.QuoteLiteral(tx.Description)
	amount := strconv.FormatInt(tx.Amount, 10)
	typ := pq.QuoteLiteral(string(tx.Type))

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (id, date, description, amount, type, category, status)\n", table)
	fmt.Fprintf(&b, "SELECT %s, %s, %s, %s, %s, %s, %s\n",
		pq.QuoteLiteral(tx.ID), date, desc, amount, typ, nullable(tx.Category), pq.QuoteLiteral(tx.Status))
	fmt.Fprintf(&b, "WHERE NOT EXISTS (\n  SELECT 1 FROM %s\n  WHERE date = %s AND description = %s AND amount = %s AND type = %s\n);",
		table, date, desc, amount, typ)
	return b.String()
}

func (t Tables) event(ev *domain.Event) string {
	table := pq.QuoteIdentifier(t.Events)
	date := dateLiteral(ev.Date)
	title := pq.QuoteLiteral(ev.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (id, title, date, end_date, location, division)\n", table)
	fmt.Fprintf(&b, "SELECT %s, %s, %s, %s, %s, %s\n",
		pq.QuoteLiteral(ev.ID), title, date, dateLiteral(ev.EndDate), nullable(ev.Location), nullable(ev.Division))
	fmt.Fprintf(&b, "WHERE NOT EXISTS (\n  SELECT 1 FROM %s\n  WHERE date = %s AND title = %s\n);", table, date, title)
	return b.String()
}

// attendance resolves the event by (date, title); when no event matches, the
// statement inserts nothing.
func (t Tables) attendance(a *domain.Attendance) string {
	member := pq.QuoteLiteral(a.MemberName)
	checkIn := "NULL"
	if !a.CheckInAt.IsZero() {
		checkIn = "TIMESTAMPTZ " + pq.QuoteLiteral(a.CheckInAt.Format(time.RFC3339))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (id, event_id, member_name, status, check_in_at)\n", pq.QuoteIdentifier(t.Attendance))
	fmt.Fprintf(&b, "SELECT %s, e.id, %s, %s, %s\nFROM %s e\n",
		pq.QuoteLiteral(a.ID), member, pq.QuoteLiteral(string(a.Status)), checkIn, pq.QuoteIdentifier(t.Events))
	fmt.Fprintf(&b, "WHERE e.date = %s AND e.title = %s\n", dateLiteral(a.Event.Date), pq.QuoteLiteral(a.Event.Title))
	fmt.Fprintf(&b, "  AND NOT EXISTS (\n    SELECT 1 FROM %s x\n    WHERE x.event_id = e.id AND x.member_name = %s\n  )\nLIMIT 1;",
		pq.QuoteIdentifier(t.Attendance), member)
	return b.String()
}

func (t Tables) due(d *domain.Due) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (id, member_name, division, amount, week, due_date, status, invoice_number)\n",
		pq.QuoteIdentifier(t.Dues))
	fmt.Fprintf(&b, "VALUES (%s, %s, %s, %d, %d, %s, %s, %s)\n",
		pq.QuoteLiteral(d.ID), pq.QuoteLiteral(d.MemberName), nullable(d.Division), d.Amount, d.Week,
		dateLiteral(d.DueDate), pq.QuoteLiteral(string(d.Status)), pq.QuoteLiteral(d.InvoiceNumber))
	b.WriteString("ON CONFLICT (invoice_number) DO NOTHING;")
	return b.String()
}

func dateLiteral(d civil.Date) string {
	return "DATE " + pq.QuoteLiteral(d.String())
}

func nullable(s string) string {
	if s == "" {
		return "NULL"
	}
	return pq.QuoteLiteral(s)
}

func (t Tables) withDefaults() Tables {
	if t.Transactions == "" {
		t.Transactions = DefaultTables.Transactions
	}
	if t.Events == "" {
		t.Events = DefaultTables.Events
	}
	if t.Attendance == "" {
		t.Attendance = DefaultTables.Attendance
	}
	if t.Dues == "" {
		t.Dues = DefaultTables.Dues
	}
	return t
}
