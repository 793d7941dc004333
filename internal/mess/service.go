package mess

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campuslife/internal/queue"
)

var (
	ErrWrongWindow     = errors.New("coupon is not valid for the current sitting")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")
)

// Store is the persistence surface the service needs.
type Store interface {
	InsertRedemption(ctx context.Context, studentID string, meal Meal, date time.Time, scannerID string) (Redemption, bool, error)
	History(ctx context.Context, studentID string, limit, offset int) ([]Redemption, error)
}

// Guard short-cuts repeat scans without a database round trip. Satisfied by
// *redis.Client; optional — the unique key on meal_redemptions stays the
// source of truth either way.
type Guard interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Service issues coupons and settles scans.
type Service struct {
	store   Store
	coupons *CouponIssuer
	guard   Guard
	q       queue.Queue
	clock   func() time.Time
	log     zerolog.Logger
}

// NewService creates a mess service with the wall clock.
func NewService(store Store, coupons *CouponIssuer, guard Guard, q queue.Queue, log zerolog.Logger) *Service {
	return &Service{store: store, coupons: coupons, guard: guard, q: q, clock: time.Now, log: log}
}

// Coupon is an issued mess coupon ready for display.
type Coupon struct {
	Token string `json:"token"`
	Meal  Meal   `json:"meal"`
	Date  string `json:"date"`
}

// IssueCoupon signs a coupon for the sitting currently being served.
func (s *Service) IssueCoupon(ctx context.Context, studentID string) (Coupon, error) {
	now := s.clock()
	token, meal, err := s.coupons.Issue(studentID, now)
	if err != nil {
		return Coupon{}, err
	}
	return Coupon{Token: token, Meal: meal, Date: now.Local().Format("2006-01-02")}, nil
}

// Redeem settles a scanned coupon: the token must verify, name today's date
// and the sitting currently being served, and not have been consumed yet.
func (s *Service) Redeem(ctx context.Context, token, scannerID string) (Redemption, error) {
	now := s.clock()
	claims, err := s.coupons.Parse(token)
	if err != nil {
		return Redemption{}, err
	}
	if err := validateScan(claims, now); err != nil {
		return Redemption{}, err
	}

	// read-only check before the insert; a failed insert must leave no
	// guard state behind, or retries would be refused a meal never served
	key := "mess:scanned:" + claims.StudentID + ":" + claims.Date + ":" + string(claims.Meal)
	if s.guard != nil {
		n, err := s.guard.Exists(ctx, key).Result()
		if err != nil {
			s.log.Warn().Err(err).Msg("scan guard unavailable, relying on unique key")
		} else if n > 0 {
			return Redemption{}, ErrAlreadyRedeemed
		}
	}

	date, err := time.ParseInLocation("2006-01-02", claims.Date, time.Local)
	if err != nil {
		return Redemption{}, ErrInvalidCoupon
	}
	red, inserted, err := s.store.InsertRedemption(ctx, claims.StudentID, claims.Meal, date, scannerID)
	if err != nil {
		return Redemption{}, err
	}
	if !inserted {
		return Redemption{}, ErrAlreadyRedeemed
	}
	red.RedeemedAt = now

	if s.guard != nil {
		if err := s.guard.Set(ctx, key, scannerID, 6*time.Hour).Err(); err != nil {
			s.log.Warn().Err(err).Msg("scan guard update failed")
		}
	}

	if s.q != nil {
		body, _ := json.Marshal(RedemptionEvent{Date: claims.Date, Meal: claims.Meal})
		if err := s.q.Publish(ctx, queue.Message{Type: "redemption", Body: body}); err != nil {
			s.log.Warn().Err(err).Msg("redemption publish failed")
		}
	}
	return red, nil
}

// RedemptionEvent is the queue payload the mess worker aggregates.
type RedemptionEvent struct {
	Date string `json:"date"`
	Meal Meal   `json:"meal"`
}

// History lists a student's redeemed meals, newest first.
func (s *Service) History(ctx context.Context, studentID string, limit, offset int) ([]Redemption, error) {
	return s.store.History(ctx, studentID, limit, offset)
}

func validateScan(claims CouponClaims, now time.Time) error {
	if claims.Date != now.Local().Format("2006-01-02") {
		return ErrInvalidCoupon
	}
	meal, ok := CurrentMeal(now)
	if !ok || meal != claims.Meal {
		return ErrWrongWindow
	}
	return nil
}
