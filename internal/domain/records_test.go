package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestBuildEventFromRow(t *testing.T) {
	ev, err := BuildEventFromRow([]string{"Bootcamp  Data", "7 - 9 Februari 2025", "Aula Kampus", "Edukasi"})
	if err != nil {
		t.Fatalf("BuildEventFromRow failed: %v", err)
	}
	if ev.Title != "Bootcamp Data" {
		t.Errorf("Title = %q", ev.Title)
	}
	if ev.Date.String() != "2025-02-07" || ev.EndDate.String() != "2025-02-09" {
		t.Errorf("span = %s..%s", ev.Date, ev.EndDate)
	}
	if ev.NaturalKey() != "2025-02-07|Bootcamp Data" {
		t.Errorf("NaturalKey = %q", ev.NaturalKey())
	}

	single, err := BuildEventFromRow([]string{"Rapat", "14/01/2025", "", ""})
	if err != nil {
		t.Fatalf("single-day event: %v", err)
	}
	if single.EndDate != single.Date {
		t.Errorf("single-day event should end on its start date")
	}

	for _, row := range [][]string{
		{"Rapat", "-", "", ""},
		{"", "14/01/2025", "", ""},
		{"Judul", "Tanggal", "Lokasi", "Divisi"},
	} {
		if _, err := BuildEventFromRow(row); !errors.Is(err, ErrInvalid) {
			t.Errorf("BuildEventFromRow(%q) err = %v, want ErrInvalid", row, err)
		}
	}
}

func TestBuildAttendanceFromRow(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)

	a, err := BuildAttendanceFromRow([]string{"14/01/2025 19:03:22", "Andi Pratama", "Rapat Pleno", "14/01/2025", "Hadir"}, loc)
	if err != nil {
		t.Fatalf("BuildAttendanceFromRow failed: %v", err)
	}
	if a.Status != Present || a.MemberName != "Andi Pratama" {
		t.Errorf("got %+v", a)
	}
	if !a.CheckInAt.Equal(time.Date(2025, 1, 14, 19, 3, 22, 0, loc)) {
		t.Errorf("CheckInAt = %v", a.CheckInAt)
	}
	if a.Event.String() != "2025-01-14|Rapat Pleno" {
		t.Errorf("Event = %q", a.Event)
	}

	absent, err := BuildAttendanceFromRow([]string{"", "Budi", "Rapat Pleno", "14/01/2025", "Tidak  Hadir"}, loc)
	if err != nil {
		t.Fatalf("absent row: %v", err)
	}
	if absent.Status != Absent || !absent.CheckInAt.IsZero() {
		t.Errorf("absent row = %+v", absent)
	}

	bad := [][]string{
		{"14/01/2025 19:03", "Andi", "Rapat", "-", "Hadir"},
		{"14/01/2025 19:03", "Andi", "Rapat", "14/01/2025", "Telat"},
		{"kemarin", "Andi", "Rapat", "14/01/2025", "Hadir"},
		{"", "", "Rapat", "14/01/2025", "Izin"},
		{"", "Andi", "", "14/01/2025", "Izin"},
	}
	for _, row := range bad {
		if _, err := BuildAttendanceFromRow(row, loc); !errors.Is(err, ErrInvalid) {
			t.Errorf("BuildAttendanceFromRow(%q) err = %v, want ErrInvalid", row, err)
		}
	}
}

func TestParseAttendanceStatus(t *testing.T) {
	tests := map[string]AttendanceStatus{
		"Hadir": Present,
		"IZIN":  Excused,
		"sakit": Excused,
		"Alpha": Absent,
		"alpa":  Absent,
	}
	for in, want := range tests {
		if got, ok := ParseAttendanceStatus(in); !ok || got != want {
			t.Errorf("ParseAttendanceStatus(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseAttendanceStatus("telat"); ok {
		t.Error("unknown wording should not map")
	}
}

func TestBuildDuesFromRow(t *testing.T) {
	plan := DuesPlan{
		Period: "2025 Genap",
		Start:  civil.Date{Year: 2025, Month: time.February, Day: 3},
		Weeks:  13,
	}

	dues, err := BuildDuesFromRow([]string{"1", "Siti Aminah", "Humas", "Rp 5.000", "M1-M3, minggu 5"}, plan)
	if err != nil {
		t.Fatalf("BuildDuesFromRow failed: %v", err)
	}
	if len(dues) != 13 {
		t.Fatalf("got %d dues, want 13", len(dues))
	}

	paid := map[int]bool{1: true, 2: true, 3: true, 5: true}
	seen := map[string]bool{}
	for _, d := range dues {
		wantStatus := Unpaid
		if paid[d.Week] {
			wantStatus = Paid
		}
		if d.Status != wantStatus {
			t.Errorf("week %d status = %s, want %s", d.Week, d.Status, wantStatus)
		}
		if d.Amount != 5000 || d.Division != "Humas" {
			t.Errorf("week %d = %+v", d.Week, d)
		}
		if seen[d.InvoiceNumber] {
			t.Errorf("duplicate invoice number %s", d.InvoiceNumber)
		}
		seen[d.InvoiceNumber] = true
	}

	if dues[0].DueDate.String() != "2025-02-03" || dues[12].DueDate.String() != "2025-04-28" {
		t.Errorf("due dates = %s .. %s", dues[0].DueDate, dues[12].DueDate)
	}
	if inv := dues[3].InvoiceNumber; !strings.HasPrefix(inv, "KAS-2025-GENAP-SITI-AMINAH-") || !strings.HasSuffix(inv, "-W04") {
		t.Errorf("InvoiceNumber = %q", dues[3].InvoiceNumber)
	}

	full, err := BuildDuesFromRow([]string{"2", "Rudi", "Acara", "5.000", "13 MINGGU"}, plan)
	if err != nil {
		t.Fatalf("full payment row: %v", err)
	}
	for _, d := range full {
		if d.Status != Paid {
			t.Errorf("week %d should be paid", d.Week)
		}
	}

	if _, err := BuildDuesFromRow([]string{"3", "Rina", "Acara", "-", ""}, plan); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing amount err = %v", err)
	}
	if _, err := BuildDuesFromRow([]string{"4", "", "Acara", "5.000", ""}, plan); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing member err = %v", err)
	}
	if _, err := BuildDuesFromRow([]string{"5", "Rina", "Acara", "5.000", ""}, DuesPlan{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty plan err = %v", err)
	}
}

func TestInvoiceNumberUniquePerMemberWeek(t *testing.T) {
	seen := map[string]string{}
	for _, member := range []string{"Andi", "Budi", "Andi Pratama", "Siti"} {
		for week := 1; week <= 13; week++ {
			inv := InvoiceNumber("2025", member, week)
			key := fmt.Sprintf("%s/%d", member, week)
			if prev, ok := seen[inv]; ok {
				t.Fatalf("invoice %s reused by %s and %s", inv, prev, key)
			}
			seen[inv] = key
		}
	}
}

func TestInvoiceNumber_SimilarNamesDoNotCollide(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Nur'aini", "Nur Aini"},
		{"M. Rizki", "M Rizki"},
		{"Dewi-Sartika", "Dewi Sartika"},
	}
	for _, tt := range tests {
		if InvoiceNumber("Genap 2025", tt.a, 1) == InvoiceNumber("Genap 2025", tt.b, 1) {
			t.Errorf("%q and %q share invoice %s", tt.a, tt.b, InvoiceNumber("Genap 2025", tt.a, 1))
		}
	}

	if InvoiceNumber("Genap 2025", "Nur  Aini ", 2) != InvoiceNumber("Genap 2025", "Nur Aini", 2) {
		t.Error("whitespace differences should not change the invoice number")
	}
	if got := InvoiceNumber("Genap 2025", "Nur Aini", 2); !strings.HasPrefix(got, "KAS-GENAP-2025-NUR-AINI-") {
		t.Errorf("InvoiceNumber = %q, want readable slug prefix", got)
	}
}

func TestRowError(t *testing.T) {
	err := &RowError{Row: 4, Err: invalid("bad date")}
	if !errors.Is(err, ErrInvalid) {
		t.Error("RowError should unwrap to ErrInvalid")
	}
	if err.Error() != "row 4: invalid record: bad date" {
		t.Errorf("Error() = %q", err.Error())
	}
}
