package mess

import (
	"errors"
	"testing"
	"time"
)

// testIssuer pins the issuer's clock so token expiry checks are
// deterministic regardless of when the tests run.
func testIssuer(key string, now time.Time) *CouponIssuer {
	ci := NewCouponIssuer("campuslife", key)
	ci.clock = func() time.Time { return now }
	return ci
}

func TestCouponRoundTrip(t *testing.T) {
	lunch := at(12, 30)
	ci := testIssuer("test-key", lunch)

	token, meal, err := ci.Issue("12345678", lunch)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if meal != MealLunch {
		t.Errorf("Issue() meal = %v, want %v", meal, MealLunch)
	}

	claims, err := ci.Parse(token)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if claims.StudentID != "12345678" || claims.Meal != MealLunch {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Date != lunch.Format("2006-01-02") {
		t.Errorf("claims date = %q", claims.Date)
	}
}

func TestIssueOutsideWindow(t *testing.T) {
	ci := testIssuer("test-key", at(11, 0))
	if _, _, err := ci.Issue("12345678", at(11, 0)); !errors.Is(err, ErrMessClosed) {
		t.Errorf("Issue() between sittings = %v, want ErrMessClosed", err)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	breakfast := at(8, 0)
	token, _, err := testIssuer("key-a", breakfast).Issue("12345678", breakfast)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err := testIssuer("key-b", breakfast).Parse(token); !errors.Is(err, ErrInvalidCoupon) {
		t.Errorf("Parse() with wrong key = %v, want ErrInvalidCoupon", err)
	}
	if _, err := testIssuer("key-a", breakfast).Parse("not-a-token"); !errors.Is(err, ErrInvalidCoupon) {
		t.Errorf("Parse() garbage = %v, want ErrInvalidCoupon", err)
	}
}

func TestParseRejectsExpiredCoupon(t *testing.T) {
	lunch := at(12, 30)
	ci := testIssuer("test-key", lunch)
	token, _, err := ci.Issue("12345678", lunch)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	// lunch window closes at 15:00; the token dies with it
	ci.clock = func() time.Time { return at(15, 1) }
	if _, err := ci.Parse(token); !errors.Is(err, ErrInvalidCoupon) {
		t.Errorf("Parse() after window close = %v, want ErrInvalidCoupon", err)
	}
}

func TestValidateScan(t *testing.T) {
	lunch := at(12, 30)
	ci := testIssuer("test-key", lunch)
	token, _, err := ci.Issue("12345678", lunch)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	claims, err := ci.Parse(token)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if err := validateScan(claims, at(12, 45)); err != nil {
		t.Errorf("same sitting should validate, got %v", err)
	}
	if err := validateScan(claims, at(20, 0)); !errors.Is(err, ErrWrongWindow) {
		t.Errorf("dinner scan of lunch coupon = %v, want ErrWrongWindow", err)
	}
	if err := validateScan(claims, at(16, 0)); !errors.Is(err, ErrWrongWindow) {
		t.Errorf("closed-mess scan = %v, want ErrWrongWindow", err)
	}
	nextDay := time.Date(2026, 3, 3, 12, 30, 0, 0, time.Local)
	if err := validateScan(claims, nextDay); !errors.Is(err, ErrInvalidCoupon) {
		t.Errorf("stale-date scan = %v, want ErrInvalidCoupon", err)
	}
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("some-token", 0)
	if err != nil {
		t.Fatalf("QRPNG() failed: %v", err)
	}
	if len(png) == 0 {
		t.Errorf("QRPNG() returned empty image")
	}
}
