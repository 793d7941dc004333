package httpmiddleware

import (
	"testing"
	"time"
)

func TestAllowBurstThenRefuse(t *testing.T) {
	l := NewRateLimiter(60, 3)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1", now) {
			t.Fatalf("request %d within burst refused", i+1)
		}
	}
	if l.allow("10.0.0.1", now) {
		t.Errorf("request past burst should be refused")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := NewRateLimiter(60, 2)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.1", now)
	if l.allow("10.0.0.1", now) {
		t.Fatalf("bucket should be empty")
	}

	// 60/min refills one token per second
	if !l.allow("10.0.0.1", now.Add(time.Second)) {
		t.Errorf("one token should have refilled after a second")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(60, 1)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if !l.allow("10.0.0.1", now) {
		t.Fatalf("first client refused")
	}
	if l.allow("10.0.0.1", now) {
		t.Fatalf("first client should be out of tokens")
	}
	if !l.allow("10.0.0.2", now) {
		t.Errorf("second client should have its own bucket")
	}
}

func TestAllowPrunesStaleBuckets(t *testing.T) {
	l := NewRateLimiter(60, 1)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now.Add(staleAfter))

	l.allow("10.0.0.3", now.Add(2*staleAfter+time.Minute))
	if _, ok := l.buckets["10.0.0.1"]; ok {
		t.Errorf("idle bucket should have been pruned")
	}
	if _, ok := l.buckets["10.0.0.3"]; !ok {
		t.Errorf("active bucket should survive the sweep")
	}
}
