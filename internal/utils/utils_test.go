package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/gym-session-reservation/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	tok, err := NewAccessToken("s3cret", 42, model.RoleTrainer, 15*time.Minute, now)
	if err != nil {
		t.Fatal(err)
	}
	if !tok.Exp.Equal(now.UTC().Add(15 * time.Minute)) {
		t.Fatalf("exp = %v", tok.Exp)
	}
	c, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != 42 || c.Role != model.RoleTrainer {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	now := time.Now()
	good, _ := NewAccessToken("s3cret", 1, model.RoleMember, time.Minute, now)
	expired, _ := NewAccessToken("s3cret", 1, model.RoleMember, time.Minute, now.Add(-time.Hour))
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "owner", "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "member",
	}).SignedString([]byte("s3cret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "1", "role": "member", "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))

	for name, raw := range map[string]string{
		"wrong secret": good.Token,
		"expired":      expired.Token,
		"bad role":     badRole,
		"no exp":       noExp,
		"other alg":    hs512,
		"garbage":      "not.a.jwt",
	} {
		secret := "s3cret"
		if name == "wrong secret" {
			secret = "other"
		}
		if _, err := ParseAccessToken(secret, raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
}

func TestNumericSubjectAccepted(t *testing.T) {
	raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 7, "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	c, err := ParseAccessToken("k", raw)
	if err != nil || c.UserID != 7 || c.Role != model.RoleAdmin {
		t.Fatalf("numeric sub: %+v %v", c, err)
	}
}

func TestRefreshToken(t *testing.T) {
	now := time.Now()
	a, err := NewRefreshToken(24*time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken(24*time.Hour, now)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("raw tokens: %q %q", a.Raw, b.Raw)
	}
	if h := HashRefreshRaw(a.Raw); len(h) != 64 || h != HashRefreshRaw(a.Raw) || h == HashRefreshRaw(b.Raw) {
		t.Fatal("hash must be a stable 64-char digest")
	}
}

func TestPasswords(t *testing.T) {
	if err := CheckPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short: %v", err)
	}
	if err := CheckPassword(strings.Repeat("x", 73)); err == nil {
		t.Fatal("73 bytes accepted")
	}
	h, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "correct horse") || VerifyPassword(h, "wrong horse") {
		t.Fatal("verify")
	}
}
