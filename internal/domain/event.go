package domain

import (
	"cloud.google.com/go/civil"

	"github.com/digcity/portal-tools/internal/csvtok"
	"github.com/digcity/portal-tools/internal/normalize"
)

// EventKey is the composite key used to deduplicate events and to resolve
// attendance rows to their event.
type EventKey struct {
	Date  civil.Date
	Title string
}

func (k EventKey) String() string {
	return k.Date.String() + "|" + k.Title
}

// Event is an organization activity. EndDate equals Date for one-day events.
type Event struct {
	ID       string
	Title    string
	Date     civil.Date
	EndDate  civil.Date
	Location string
	Division string
}

func (e *Event) Kind() Kind { return KindEvent }
func (e *Event) RecordID() string { return e.ID }
func (e *Event) AssignID(id string) { e.ID = id }
func (e *Event) Key() EventKey { return EventKey{Date: e.Date, Title: e.Title} }
func (e *Event) NaturalKey() string { return e.Key().String() }

func (e *Event) Validate() error {
	switch {
	case e.Title == "":
		return invalid("event title is empty")
	case !e.Date.IsValid():
		return invalid("event date %q is not a calendar date", e.Date)
	case !e.EndDate.IsValid() || e.EndDate.Before(e.Date):
		return invalid("event end date %q before start %q", e.EndDate, e.Date)
	}
	return nil
}

// BuildEventFromRow parses an events sheet row:
// [title, date or date range, location, division].
func BuildEventFromRow(row []string) (*Event, error) {
	span, ok := normalize.ParseDateRange(csvtok.Field(row, 1))
	if !ok {
		return nil, invalid("unrecognised event date %q", csvtok.Field(row, 1))
	}

	ev := &Event{
		Title:    clean(csvtok.Field(row, 0)),
		Date:     span.Start,
		EndDate:  span.End,
		Location: clean(csvtok.Field(row, 2)),
		Division: clean(csvtok.Field(row, 3)),
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}
