package timetable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists schedule entries and attendance records in Postgres.
// Entries are written by an administrative path outside this service; the
// repository only ever reads active rows.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EntriesForDay returns active entries for a day of week (0=Sunday), ordered
// by start time ascending.
func (r *Repository) EntriesForDay(ctx context.Context, dayOfWeek int) ([]Entry, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, errors.New("day of week out of range")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, course_code, course_name, room_number, day_of_week, start_time, end_time, teacher_name
		FROM timetable
		WHERE day_of_week = $1 AND is_active = TRUE
		ORDER BY start_time
	`, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var start, end string
		var teacher sql.NullString
		if err := rows.Scan(&e.ID, &e.CourseCode, &e.CourseName, &e.RoomNumber, &e.DayOfWeek, &start, &end, &teacher); err != nil {
			return nil, err
		}
		if e.StartTime, err = parseTimeOfDay(start); err != nil {
			return nil, err
		}
		if e.EndTime, err = parseTimeOfDay(end); err != nil {
			return nil, err
		}
		if teacher.Valid {
			e.TeacherName = &teacher.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// parseTimeOfDay converts a Postgres TIME value to a time-of-day. The pgx
// stdlib driver has no time.Time plan for the TIME type and hands it over as
// its text form, "HH:MM:SS" with optional fractional seconds.
func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05.999999999", "15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed time of day %q", s)
}

// AttendanceFor returns attendance records for the given date keyed by entry
// ID. Entries with no record for that date are simply absent from the map.
func (r *Repository) AttendanceFor(ctx context.Context, date time.Time, entryIDs []int64) (map[int64]AttendanceRecord, error) {
	records := make(map[int64]AttendanceRecord, len(entryIDs))
	if len(entryIDs) == 0 {
		return records, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT timetable_id, date, status, created_at
		FROM attendance
		WHERE date = $1 AND timetable_id = ANY($2)
	`, date, entryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.EntryID, &rec.Date, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records[rec.EntryID] = rec
	}
	return records, rows.Err()
}

// UpsertAttendance creates or replaces the record for (entry, date). Marking
// twice for the same slot and date keeps a single row with the latest status.
func (r *Repository) UpsertAttendance(ctx context.Context, entryID int64, date time.Time, status Status) error {
	if !status.Storable() {
		return errors.New("status must be present or absent")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (timetable_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (timetable_id, date)
		DO UPDATE SET status = EXCLUDED.status, created_at = NOW()
	`, entryID, date, status)
	return err
}
