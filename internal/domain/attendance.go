package domain

import (
	"strings"
	"time"

	"github.com/digcity/portal-tools/internal/csvtok"
	"github.com/digcity/portal-tools/internal/normalize"
)

// AttendanceStatus is one of present, excused or absent.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Excused AttendanceStatus = "excused"
	Absent  AttendanceStatus = "absent"
)

var attendanceWords = map[string]AttendanceStatus{
	"hadir":       Present,
	"present":     Present,
	"izin":        Excused,
	"ijin":        Excused,
	"sakit":       Excused,
	"excused":     Excused,
	"alpa":        Absent,
	"alpha":       Absent,
	"tidak hadir": Absent,
	"absent":      Absent,
}

// ParseAttendanceStatus maps sheet wording to a status.
func ParseAttendanceStatus(s string) (AttendanceStatus, bool) {
	st, ok := attendanceWords[strings.ToLower(clean(s))]
	return st, ok
}

// Attendance records one member's presence at an event. CheckInAt is zero
// when the sheet has no timestamp (typical for absent members).
type Attendance struct {
	ID         string
	Event      EventKey
	MemberName string
	Status     AttendanceStatus
	CheckInAt  time.Time
}

func (a *Attendance) Kind() Kind { return KindAttendance }
func (a *Attendance) RecordID() string { return a.ID }
func (a *Attendance) AssignID(id string) { a.ID = id }

func (a *Attendance) NaturalKey() string {
	return a.Event.String() + "|" + a.MemberName
}

func (a *Attendance) Validate() error {
	switch {
	case a.Event.Title == "" || !a.Event.Date.IsValid():
		return invalid("attendance has no resolvable event reference")
	case a.MemberName == "":
		return invalid("attendance member name is empty")
	}
	switch a.Status {
	case Present, Excused, Absent:
	default:
		return invalid("attendance status %q", a.Status)
	}
	return nil
}

// BuildAttendanceFromRow parses an attendance form export row:
// [timestamp, member name, event title, event date, status].
func BuildAttendanceFromRow(row []string, loc *time.Location) (*Attendance, error) {
	eventDate, ok := normalize.ParseDate(csvtok.Field(row, 3))
	if !ok {
		return nil, invalid("unrecognised event date %q", csvtok.Field(row, 3))
	}
	status, ok := ParseAttendanceStatus(csvtok.Field(row, 4))
	if !ok {
		return nil, invalid("unknown attendance status %q", csvtok.Field(row, 4))
	}

	a := &Attendance{
		Event:      EventKey{Date: eventDate, Title: clean(csvtok.Field(row, 2))},
		MemberName: clean(csvtok.Field(row, 1)),
		Status:     status,
	}

	if raw := strings.TrimSpace(csvtok.Field(row, 0)); raw != "" && raw != "-" {
		ts, ok := normalize.ParseDateTime(raw, loc)
		if !ok {
			return nil, invalid("unrecognised check-in timestamp %q", raw)
		}
		a.CheckInAt = ts
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
