package timetable

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"
)

// scheduleDriver replays canned rows shaped like the pgx stdlib driver's
// output: TIME columns arrive as their text form, not as time.Time.
type scheduleDriver struct {
	cols []string
	rows [][]driver.Value
}

func (d *scheduleDriver) Open(string) (driver.Conn, error) { return &scheduleConn{d: d}, nil }

type scheduleConn struct{ d *scheduleDriver }

func (c *scheduleConn) Prepare(string) (driver.Stmt, error) { return &scheduleStmt{d: c.d}, nil }
func (c *scheduleConn) Close() error                        { return nil }
func (c *scheduleConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

type scheduleStmt struct{ d *scheduleDriver }

func (s *scheduleStmt) Close() error  { return nil }
func (s *scheduleStmt) NumInput() int { return -1 }
func (s *scheduleStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}
func (s *scheduleStmt) Query([]driver.Value) (driver.Rows, error) {
	return &scheduleRows{d: s.d}, nil
}

type scheduleRows struct {
	d   *scheduleDriver
	pos int
}

func (r *scheduleRows) Columns() []string { return r.d.cols }
func (r *scheduleRows) Close() error      { return nil }
func (r *scheduleRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.d.rows) {
		return io.EOF
	}
	copy(dest, r.d.rows[r.pos])
	r.pos++
	return nil
}

func init() {
	sql.Register("schedulefake", &scheduleDriver{
		cols: []string{"id", "course_code", "course_name", "room_number", "day_of_week", "start_time", "end_time", "teacher_name"},
		rows: [][]driver.Value{
			{int64(1), "PHY109", "Physics Lab", "55-705", int64(1), "13:00:00", "14:00:00", "Dr. Smith"},
			{int64(2), "CSE101", "Computer Science Fundamentals", "12-304", int64(1), "14:00:00.000000", "15:00:00.000000", nil},
		},
	})
}

func TestEntriesForDayScansTimeColumns(t *testing.T) {
	db, err := sql.Open("schedulefake", "")
	if err != nil {
		t.Fatalf("open fake db: %v", err)
	}
	defer db.Close()

	entries, err := NewRepository(db).EntriesForDay(context.Background(), 1)
	if err != nil {
		t.Fatalf("EntriesForDay() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.StartTime.Hour() != 13 || first.StartTime.Minute() != 0 {
		t.Errorf("start time = %s, want 13:00", first.StartTime.Format("15:04"))
	}
	if first.EndTime.Hour() != 14 {
		t.Errorf("end time = %s, want 14:00", first.EndTime.Format("15:04"))
	}
	if first.TeacherName == nil || *first.TeacherName != "Dr. Smith" {
		t.Errorf("teacher = %v, want Dr. Smith", first.TeacherName)
	}
	if entries[1].TeacherName != nil {
		t.Errorf("nil teacher column should stay nil")
	}
	// fractional-seconds form must parse too
	if entries[1].StartTime.Hour() != 14 {
		t.Errorf("fractional start time = %s, want 14:00", entries[1].StartTime.Format("15:04"))
	}

	// and the parsed values feed the resolution rules directly
	resolved := Resolve(tod(13, 30, 0), entries, nil)
	if resolved[0].Status != StatusOngoing || resolved[1].Status != StatusScheduled {
		t.Errorf("statuses = %v, %v", resolved[0].Status, resolved[1].Status)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		min     int
		wantErr bool
	}{
		{"13:00:00", 13, 0, false},
		{"09:45:30", 9, 45, false},
		{"13:00:00.123456", 13, 0, false},
		{"13:00", 13, 0, false},
		{"25:00:00", 0, 0, true},
		{"not-a-time", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := parseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && (got.Hour() != tt.hour || got.Minute() != tt.min) {
			t.Errorf("parseTimeOfDay(%q) = %s", tt.in, got.Format("15:04:05"))
		}
	}
}

func TestParseTimeOfDayLocation(t *testing.T) {
	got, err := parseTimeOfDay("13:00:00")
	if err != nil {
		t.Fatalf("parseTimeOfDay() failed: %v", err)
	}
	if got.Location() != time.Local {
		t.Errorf("location = %v, want %v", got.Location(), time.Local)
	}
}
