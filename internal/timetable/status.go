package timetable

import "time"

// The resolution rules, applied per entry against a wall-clock instant:
//
//	start <= now < end          -> ongoing, regardless of any stored record
//	now >= end, record present  -> the stored status
//	now >= end, no record       -> absent
//	now < start                 -> scheduled
//
// Start is inclusive, end exclusive. Callers pass "now" in; nothing here
// reads the clock or touches I/O.

// Resolve derives the display status for each entry at the given instant.
// records maps entry ID to today's attendance record; missing keys mean no
// override. Input order is preserved.
func Resolve(now time.Time, entries []Entry, records map[int64]AttendanceRecord) []ResolvedEntry {
	resolved := make([]ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		var rec *AttendanceRecord
		if r, ok := records[e.ID]; ok {
			rec = &r
		}
		resolved = append(resolved, ResolvedEntry{Entry: e, Status: resolveOne(secondOfDay(now), e, rec)})
	}
	return resolved
}

func resolveOne(nowSec int, e Entry, rec *AttendanceRecord) Status {
	start := secondOfDay(e.StartTime)
	end := secondOfDay(e.EndTime)
	switch {
	case nowSec >= start && nowSec < end:
		return StatusOngoing
	case nowSec >= end:
		if rec != nil && rec.Status.Storable() {
			return rec.Status
		}
		return StatusAbsent
	default:
		return StatusScheduled
	}
}

// Current returns the entry whose slot covers the given instant. Entries are
// assumed non-overlapping, so the first hit is the only one.
func Current(now time.Time, entries []Entry) (Entry, bool) {
	nowSec := secondOfDay(now)
	for _, e := range entries {
		if nowSec >= secondOfDay(e.StartTime) && nowSec < secondOfDay(e.EndTime) {
			return e, true
		}
	}
	return Entry{}, false
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
