package timetable

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DayKind distinguishes why a day's schedule may be empty.
type DayKind string

const (
	DayClasses   DayKind = "classes"
	DayNoClasses DayKind = "no_classes"
	DayWeekend   DayKind = "weekend"
)

// Store is the persistence surface the service needs. Satisfied by
// *Repository; tests supply an in-memory fake.
type Store interface {
	EntriesForDay(ctx context.Context, dayOfWeek int) ([]Entry, error)
	AttendanceFor(ctx context.Context, date time.Time, entryIDs []int64) (map[int64]AttendanceRecord, error)
	UpsertAttendance(ctx context.Context, entryID int64, date time.Time, status Status) error
}

// Service answers the app's timetable queries. Persistence errors stop here:
// reads degrade to an empty schedule and writes report false, so the
// resolution rules above never see an I/O fault.
type Service struct {
	store Store
	clock func() time.Time
	log   zerolog.Logger
}

// NewService creates a service with the wall clock.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, clock: time.Now, log: log}
}

// Today returns the resolved schedule for the current day. On Saturday and
// Sunday it returns an empty list with DayWeekend without querying anything;
// an empty weekday comes back as DayNoClasses.
func (s *Service) Today(ctx context.Context) ([]ResolvedEntry, DayKind) {
	now := s.clock()
	if IsWeekend(now) {
		return []ResolvedEntry{}, DayWeekend
	}

	entries, err := s.store.EntriesForDay(ctx, int(now.Weekday()))
	if err != nil {
		s.log.Error().Err(err).Msg("fetch today's entries failed")
		return []ResolvedEntry{}, DayNoClasses
	}
	if len(entries) == 0 {
		return []ResolvedEntry{}, DayNoClasses
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	records, err := s.store.AttendanceFor(ctx, dateOnly(now), ids)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch attendance failed")
		records = nil
	}

	return Resolve(now, entries, records), DayClasses
}

// CurrentClass returns the entry whose slot covers the current instant, or
// nil when no class is on. Weekends short-circuit before any query.
func (s *Service) CurrentClass(ctx context.Context) *Entry {
	now := s.clock()
	if IsWeekend(now) {
		return nil
	}
	entries, err := s.store.EntriesForDay(ctx, int(now.Weekday()))
	if err != nil {
		s.log.Error().Err(err).Msg("fetch current class failed")
		return nil
	}
	if e, ok := Current(now, entries); ok {
		return &e
	}
	return nil
}

// MarkAttendance records a present/absent status for an entry today. Returns
// false on an invalid status or a persistence failure; the caller offers a
// retry, nothing is retried here.
func (s *Service) MarkAttendance(ctx context.Context, entryID int64, status Status) bool {
	if !status.Storable() {
		return false
	}
	if err := s.store.UpsertAttendance(ctx, entryID, dateOnly(s.clock()), status); err != nil {
		s.log.Error().Err(err).Int64("entry_id", entryID).Msg("mark attendance failed")
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}
