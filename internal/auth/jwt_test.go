package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	pair, err := Issue("device-1", RoleStudent, "campuslife", "secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token in pair %+v", pair)
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Errorf("refresh should outlive access: %v vs %v", pair.RefreshExp, pair.AccessExp)
	}

	for _, token := range []string{pair.AccessToken, pair.RefreshToken} {
		claims, err := Parse(token, "secret", "campuslife")
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if claims.Subject != "device-1" {
			t.Errorf("subject = %q, want device-1", claims.Subject)
		}
		if claims.Role != RoleStudent {
			t.Errorf("role = %q, want %q", claims.Role, RoleStudent)
		}
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("device-1", RoleScanner, "campuslife", "secret", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err := Parse(pair.RefreshToken, "secret", "campuslife"); err == nil {
		t.Errorf("expired token should not parse")
	}
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	pair, err := Issue("device-1", RoleStudent, "campuslife", "secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-secret", "campuslife"); err == nil {
		t.Errorf("wrong key should not parse")
	}
	if _, err := Parse(pair.AccessToken, "secret", "someone-else"); err == nil {
		t.Errorf("wrong issuer should not parse")
	}
}
