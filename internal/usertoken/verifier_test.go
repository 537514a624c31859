package usertoken

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-1",
		"iss": defaultIssuer,
		"aud": defaultAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifySubject(t *testing.T) {
	v := newVerifier(t)
	sub, err := v.VerifySubject(signToken(t, testSecret, baseClaims()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("subject = %q, want user-1", sub)
	}
}

func TestVerifySubjectRejectsWrongSecret(t *testing.T) {
	v := newVerifier(t)
	if _, err := v.VerifySubject(signToken(t, "other-secret", baseClaims())); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifySubjectRejectsExpired(t *testing.T) {
	v := newVerifier(t)
	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := v.VerifySubject(signToken(t, testSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifySubjectRejectsWrongAudience(t *testing.T) {
	v := newVerifier(t)
	claims := baseClaims()
	claims["aud"] = "other-api"
	if _, err := v.VerifySubject(signToken(t, testSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifySubjectRequiresSubject(t *testing.T) {
	v := newVerifier(t)
	claims := baseClaims()
	delete(claims, "sub")
	if _, err := v.VerifySubject(signToken(t, testSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
