package mess

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrInvalidCoupon = errors.New("invalid coupon")
	ErrMessClosed    = errors.New("no meal is being served")
)

// CouponClaims is the payload encoded in a mess-coupon QR token.
type CouponClaims struct {
	StudentID string `json:"sid"`
	Meal      Meal   `json:"meal"`
	Date      string `json:"date"` // YYYY-MM-DD, scan must happen same day
	jwt.RegisteredClaims
}

// CouponIssuer signs and verifies coupon tokens. A token is bound to one
// student, one sitting and one date, and expires when the window closes.
type CouponIssuer struct {
	issuer string
	key    []byte
	clock  func() time.Time
}

// NewCouponIssuer creates an issuer with an HS256 signing key.
func NewCouponIssuer(issuer, key string) *CouponIssuer {
	return &CouponIssuer{issuer: issuer, key: []byte(key), clock: time.Now}
}

// Issue signs a coupon for the sitting currently being served. Returns
// ErrMessClosed outside every serving window.
func (ci *CouponIssuer) Issue(studentID string, now time.Time) (string, Meal, error) {
	meal, ok := CurrentMeal(now)
	if !ok {
		return "", "", ErrMessClosed
	}
	claims := CouponClaims{
		StudentID: studentID,
		Meal:      meal,
		Date:      now.Local().Format("2006-01-02"),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ci.issuer,
			Subject:   studentID,
			ExpiresAt: jwt.NewNumericDate(WindowEnd(meal, now)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ci.key)
	if err != nil {
		return "", "", err
	}
	return token, meal, nil
}

// Parse validates a coupon token and returns its claims.
func (ci *CouponIssuer) Parse(token string) (CouponClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &CouponClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ci.key, nil
	}, jwt.WithTimeFunc(ci.clock))
	if err != nil {
		return CouponClaims{}, ErrInvalidCoupon
	}
	claims, ok := parsed.Claims.(*CouponClaims)
	if !ok || !parsed.Valid || claims.Issuer != ci.issuer || !claims.Meal.Valid() {
		return CouponClaims{}, ErrInvalidCoupon
	}
	return *claims, nil
}

// QRPNG renders a coupon token as a QR code image.
func QRPNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}
