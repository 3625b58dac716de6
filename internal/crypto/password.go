package crypto

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12

	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

var (
	ErrMismatch        = errors.New("password mismatch")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Scheme names how a stored credential is encoded.
type Scheme int

const (
	SchemePlain Scheme = iota
	SchemeBcrypt
)

var bcryptMarkers = []string{"$2a$", "$2b$", "$2y$"}

// SchemeOf inspects the marker at the start of a stored credential. Rows written
// before hashing was introduced carry no marker and are treated as plaintext.
func SchemeOf(stored string) Scheme {
	for _, marker := range bcryptMarkers {
		if strings.HasPrefix(stored, marker) {
			return SchemeBcrypt
		}
	}
	return SchemePlain
}

// Verifier checks a supplied password against one stored credential.
type Verifier interface {
	Verify(password string) error
	Scheme() Scheme
}

// VerifierFor picks the verifier matching the stored credential's scheme.
func VerifierFor(stored string) Verifier {
	if SchemeOf(stored) == SchemeBcrypt {
		return Hashed{digest: stored}
	}
	return Plain{value: stored}
}

type Hashed struct {
	digest string
}

func (h Hashed) Verify(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(h.digest), []byte(password)); err != nil {
		return ErrMismatch
	}
	return nil
}

func (Hashed) Scheme() Scheme { return SchemeBcrypt }

// Plain is the compatibility path for legacy unhashed rows: an exact,
// case-sensitive match.
type Plain struct {
	value string
}

func (p Plain) Verify(password string) error {
	if p.value == "" || subtle.ConstantTimeCompare([]byte(p.value), []byte(password)) != 1 {
		return ErrMismatch
	}
	return nil
}

func (Plain) Scheme() Scheme { return SchemePlain }

func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if cost == 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
