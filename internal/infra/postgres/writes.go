package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/digcity/portal-tools/internal/domain"
)

func newUUID() string { return uuid.NewString() }

func (s *Store) ensureID(rec domain.Record) {
	if rec.RecordID() == "" {
		rec.AssignID(s.newID())
	}
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// InsertTransaction inserts tx unless a row with the same date, description,
// amount and type exists.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, fmt.Errorf("InsertTransaction: %w", err)
	}
	s.ensureID(tx)

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, date, description, amount, type, category, status)
		SELECT $1::uuid, $2::date, $3::text, $4::bigint, $5::text, $6::text, $7::text
		WHERE NOT EXISTS (
			SELECT 1 FROM %[1]s WHERE date = $2 AND description = $3 AND amount = $4 AND type = $5
		)`, transactionsTable)

	tag, err := s.db.Exec(ctx, query,
		tx.ID, tx.Date.In(time.UTC), tx.Description, tx.Amount, string(tx.Type), nullString(tx.Category), tx.Status)
	if err != nil {
		return false, fmt.Errorf("InsertTransaction: %s: %w", tx.NaturalKey(), err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertEvent inserts ev unless an event with the same date and title exists.
func (s *Store) InsertEvent(ctx context.Context, ev *domain.Event) (bool, error) {
	if err := ev.Validate(); err != nil {
		return false, fmt.Errorf("InsertEvent: %w", err)
	}
	s.ensureID(ev)

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, title, date, end_date, location, division)
		SELECT $1::uuid, $2::text, $3::date, $4::date, $5::text, $6::text
		WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE date = $3 AND title = $2)`, eventsTable)

	tag, err := s.db.Exec(ctx, query,
		ev.ID, ev.Title, ev.Date.In(time.UTC), ev.EndDate.In(time.UTC), nullString(ev.Location), nullString(ev.Division))
	if err != nil {
		return false, fmt.Errorf("InsertEvent: %s: %w", ev.NaturalKey(), err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertAttendance resolves the event by (date, title) and inserts the row
// unless the member is already recorded for that event. It returns
// ErrEventNotFound when the event does not exist.
func (s *Store) InsertAttendance(ctx context.Context, a *domain.Attendance) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, fmt.Errorf("InsertAttendance: %w", err)
	}

	var eventID string
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT id::text FROM %s WHERE date = $1::date AND title = $2 LIMIT 1`, eventsTable),
		a.Event.Date.In(time.UTC), a.Event.Title,
	).Scan(&eventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("InsertAttendance: %s: %w", a.Event, ErrEventNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("InsertAttendance: resolve event %s: %w", a.Event, err)
	}

	s.ensureID(a)

	var checkIn *time.Time
	if !a.CheckInAt.IsZero() {
		checkIn = &a.CheckInAt
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, event_id, member_name, status, check_in_at)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE event_id = $2 AND member_name = $3)`, attendanceTable)

	tag, err := s.db.Exec(ctx, query, a.ID, eventID, a.MemberName, string(a.Status), checkIn)
	if err != nil {
		return false, fmt.Errorf("InsertAttendance: %s: %w", a.NaturalKey(), err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertDue inserts d, skipping it when the invoice number already exists.
func (s *Store) UpsertDue(ctx context.Context, d *domain.Due) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, fmt.Errorf("UpsertDue: %w", err)
	}
	s.ensureID(d)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, member_name, division, amount, week, due_date, status, invoice_number)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::date, $7, $8)
		ON CONFLICT (invoice_number) DO NOTHING`, duesTable)

	tag, err := s.db.Exec(ctx, query,
		d.ID, d.MemberName, nullString(d.Division), d.Amount, d.Week, d.DueDate.In(time.UTC), string(d.Status), d.InvoiceNumber)
	if err != nil {
		return false, fmt.Errorf("UpsertDue: %s: %w", d.InvoiceNumber, err)
	}
	return tag.RowsAffected() > 0, nil
}
