package timetable

import "time"

// Status is the display state of a schedule entry. Present and absent are
// the only values ever stored; ongoing and scheduled are derived per read.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
)

// Storable reports whether a status may be written to the attendance table.
func (s Status) Storable() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Label returns the text the mobile app shows on a schedule card.
func (s Status) Label() string {
	switch s {
	case StatusOngoing:
		return "Going On"
	case StatusPresent:
		return "Present"
	case StatusAbsent:
		return "Absent"
	default:
		return "Scheduled"
	}
}

// Color returns the display tag paired with the status.
func (s Status) Color() string {
	switch s {
	case StatusOngoing, StatusPresent:
		return "green"
	case StatusAbsent:
		return "red"
	default:
		return "grey"
	}
}

// Entry is a recurring weekly class slot. StartTime and EndTime carry only
// a time of day; their date parts are ignored everywhere.
type Entry struct {
	ID          int64   `json:"id"`
	CourseCode  string  `json:"course_code"`
	CourseName  string  `json:"course_name"`
	RoomNumber  string  `json:"room_number"`
	TeacherName *string `json:"teacher_name,omitempty"`
	DayOfWeek   int     `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime   time.Time
	EndTime     time.Time
}

// AttendanceRecord is a per-date status override for one entry. At most one
// record exists per (entry, date); re-marking replaces it.
type AttendanceRecord struct {
	EntryID   int64
	Date      time.Time
	Status    Status
	CreatedAt time.Time
}

// ResolvedEntry pairs an entry with its status derived for a given instant.
type ResolvedEntry struct {
	Entry
	Status Status `json:"status"`
}
