package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"github.com/digcity/portal-tools/internal/domain"
)

func (s *Store) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT id::text, date, description, amount, type, COALESCE(category, ''), COALESCE(status, '')
		FROM %s
		ORDER BY date, id
		LIMIT $1 OFFSET $2`, transactionsTable)

	return listPaged(ctx, s.db, transactionsTable, query, s.pageSize, func(rows pgx.Rows) (*domain.Transaction, error) {
		var (
			tx   domain.Transaction
			date time.Time
			typ  string
		)
		if err := rows.Scan(&tx.ID, &date, &tx.Description, &tx.Amount, &typ, &tx.Category, &tx.Status); err != nil {
			return nil, err
		}
		tx.Date = civil.DateOf(date)
		tx.Type = domain.TransactionType(typ)
		return &tx, nil
	})
}

func (s *Store) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	query := fmt.Sprintf(`
		SELECT id::text, title, date, COALESCE(end_date, date), COALESCE(location, ''), COALESCE(division, '')
		FROM %s
		ORDER BY date, id
		LIMIT $1 OFFSET $2`, eventsTable)

	return listPaged(ctx, s.db, eventsTable, query, s.pageSize, func(rows pgx.Rows) (*domain.Event, error) {
		var (
			ev         domain.Event
			start, end time.Time
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &start, &end, &ev.Location, &ev.Division); err != nil {
			return nil, err
		}
		ev.Date = civil.DateOf(start)
		ev.EndDate = civil.DateOf(end)
		return &ev, nil
	})
}

// ListAttendance joins each row with its event so the natural key can be
// compared with rows built from a sheet.
func (s *Store) ListAttendance(ctx context.Context) ([]*domain.Attendance, error) {
	query := fmt.Sprintf(`
		SELECT a.id::text, e.date, e.title, a.member_name, a.status, a.check_in_at
		FROM %s a
		JOIN %s e ON e.id = a.event_id
		ORDER BY a.id
		LIMIT $1 OFFSET $2`, attendanceTable, eventsTable)

	return listPaged(ctx, s.db, attendanceTable, query, s.pageSize, func(rows pgx.Rows) (*domain.Attendance, error) {
		var (
			a       domain.Attendance
			date    time.Time
			status  string
			checkIn *time.Time
		)
		if err := rows.Scan(&a.ID, &date, &a.Event.Title, &a.MemberName, &status, &checkIn); err != nil {
			return nil, err
		}
		a.Event.Date = civil.DateOf(date)
		a.Status = domain.AttendanceStatus(status)
		if checkIn != nil {
			a.CheckInAt = *checkIn
		}
		return &a, nil
	})
}

func (s *Store) ListDues(ctx context.Context) ([]*domain.Due, error) {
	query := fmt.Sprintf(`
		SELECT id::text, member_name, COALESCE(division, ''), amount, week, due_date, status, invoice_number
		FROM %s
		ORDER BY invoice_number
		LIMIT $1 OFFSET $2`, duesTable)

	return listPaged(ctx, s.db, duesTable, query, s.pageSize, func(rows pgx.Rows) (*domain.Due, error) {
		var (
			d      domain.Due
			due    time.Time
			status string
		)
		if err := rows.Scan(&d.ID, &d.MemberName, &d.Division, &d.Amount, &d.Week, &due, &status, &d.InvoiceNumber); err != nil {
			return nil, err
		}
		d.DueDate = civil.DateOf(due)
		d.Status = domain.DueStatus(status)
		return &d, nil
	})
}

// ListPublishedPosts returns published blog posts, newest first.
func (s *Store) ListPublishedPosts(ctx context.Context) ([]domain.Post, error) {
	query := fmt.Sprintf(`
		SELECT slug, title, COALESCE(excerpt, ''), COALESCE(content, ''), COALESCE(cover_image, ''),
		       COALESCE(author, ''), published_at, COALESCE(updated_at, published_at)
		FROM %s
		WHERE published = true
		ORDER BY published_at DESC, slug
		LIMIT $1 OFFSET $2`, postsTable)

	return listPaged(ctx, s.db, postsTable, query, s.pageSize, func(rows pgx.Rows) (domain.Post, error) {
		var p domain.Post
		err := rows.Scan(&p.Slug, &p.Title, &p.Excerpt, &p.Content, &p.CoverImage, &p.Author, &p.PublishedAt, &p.UpdatedAt)
		return p, err
	})
}
