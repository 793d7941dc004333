package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Student is the profile shown on the app's profile and mess-coupon screens.
type Student struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	FatherName  *string    `json:"father_name,omitempty"`
	FatherPhone *string    `json:"father_phone,omitempty"`
	MotherName  *string    `json:"mother_name,omitempty"`
	MotherPhone *string    `json:"mother_phone,omitempty"`
	Programme   *string    `json:"programme,omitempty"`
	HostelBlock *string    `json:"hostel_block,omitempty"`
	RoomNumber  *string    `json:"room_number,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	MessPending bool       `json:"mess_pending"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Repository persists student profiles in Postgres. Profiles are created by
// an administrative import; this service only reads them and updates avatars.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a single student by ID, nil when not found.
func (r *Repository) Get(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, father_name, father_phone, mother_name, mother_phone,
		       programme, hostel_block, room_number, avatar_url, mess_pending,
		       created_at, updated_at
		FROM students WHERE id = $1
	`, studentID)
	var s Student
	if err := row.Scan(&s.ID, &s.Name, &s.FatherName, &s.FatherPhone, &s.MotherName, &s.MotherPhone,
		&s.Programme, &s.HostelBlock, &s.RoomNumber, &s.AvatarURL, &s.MessPending,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SetAvatar stores the uploaded avatar URL for a student.
func (r *Repository) SetAvatar(ctx context.Context, studentID, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
	`, studentID, url)
	return err
}
