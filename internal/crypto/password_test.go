package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	verifier := VerifierFor(hash)
	if verifier.Scheme() != SchemeBcrypt {
		t.Fatalf("expected bcrypt verifier for a fresh hash")
	}
	if err := verifier.Verify("secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := verifier.Verify("wrong"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	// The limit counts bytes: 36 two-byte runes fit, 37 do not.
	if _, err := HashPassword(strings.Repeat("é", 36), bcrypt.MinCost); err != nil {
		t.Fatalf("expected 72-byte password to hash, got %v", err)
	}
	if _, err := HashPassword(strings.Repeat("é", 37), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong for 74 bytes, got %v", err)
	}
}

func TestHashPasswordDefaultCost(t *testing.T) {
	hash, err := HashPassword("secret", 0)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost error: %v", err)
	}
	if cost != DefaultCost {
		t.Fatalf("expected cost %d, got %d", DefaultCost, cost)
	}
}

func TestSchemeOf(t *testing.T) {
	cases := map[string]Scheme{
		"$2a$12$abcdefghijklmnopqrstuv": SchemeBcrypt,
		"$2b$10$abcdefghijklmnopqrstuv": SchemeBcrypt,
		"$2y$10$abcdefghijklmnopqrstuv": SchemeBcrypt,
		"password123":                   SchemePlain,
		"$2x$plain-looking":             SchemePlain,
		"":                              SchemePlain,
	}
	for stored, expect := range cases {
		if got := SchemeOf(stored); got != expect {
			t.Fatalf("stored %q: expected %v, got %v", stored, expect, got)
		}
	}
}

func TestPlainVerifierIsExact(t *testing.T) {
	verifier := VerifierFor("Legacy-Pass")
	if verifier.Scheme() != SchemePlain {
		t.Fatalf("expected plain verifier")
	}
	if err := verifier.Verify("Legacy-Pass"); err != nil {
		t.Fatalf("expected exact match to pass")
	}
	for _, attempt := range []string{"legacy-pass", "Legacy-Pass ", "", "Legacy"} {
		if err := verifier.Verify(attempt); err == nil {
			t.Fatalf("expected %q to be rejected", attempt)
		}
	}
}

func TestEmptyPlainCredentialNeverMatches(t *testing.T) {
	if err := VerifierFor("").Verify(""); err == nil {
		t.Fatalf("expected empty stored credential to reject")
	}
}

func TestNewDefaultCredential(t *testing.T) {
	first, err := NewDefaultCredential()
	if err != nil {
		t.Fatalf("credential error: %v", err)
	}
	second, _ := NewDefaultCredential()
	if first == "" || first == second {
		t.Fatalf("expected distinct random credentials")
	}
}
