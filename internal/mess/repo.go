package mess

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Redemption is one consumed meal coupon.
type Redemption struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Meal       Meal      `json:"meal"`
	Date       time.Time `json:"date"`
	ScannerID  string    `json:"scanner_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// Repository persists meal redemptions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRedemption records a consumed coupon. The unique key on
// (student_id, date, meal) makes a repeat scan a no-op; the second return
// value reports whether a row was actually written.
func (r *Repository) InsertRedemption(ctx context.Context, studentID string, meal Meal, date time.Time, scannerID string) (Redemption, bool, error) {
	red := Redemption{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Meal:      meal,
		Date:      date,
		ScannerID: scannerID,
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_redemptions (id, student_id, meal, date, scanner_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, date, meal) DO NOTHING
	`, red.ID, red.StudentID, red.Meal, red.Date, red.ScannerID)
	if err != nil {
		return Redemption{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Redemption{}, false, err
	}
	return red, n > 0, nil
}

// History lists a student's redemptions, newest first.
func (r *Repository) History(ctx context.Context, studentID string, limit, offset int) ([]Redemption, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, meal, date, scanner_id, redeemed_at
		FROM meal_redemptions
		WHERE student_id = $1
		ORDER BY redeemed_at DESC
		LIMIT $2 OFFSET $3
	`, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Redemption
	for rows.Next() {
		var red Redemption
		if err := rows.Scan(&red.ID, &red.StudentID, &red.Meal, &red.Date, &red.ScannerID, &red.RedeemedAt); err != nil {
			return nil, err
		}
		res = append(res, red)
	}
	return res, rows.Err()
}
