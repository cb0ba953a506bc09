package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashing  = errors.New("password hashing failed")
	ErrMismatch = errors.New("password does not match")
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost  int
	dummy []byte
}

const dummyPassword = "mural-dummy-password"

// NewHasher returns a Hasher with the given bcrypt cost. Out of range costs
// fall back to bcrypt.DefaultCost (10). The dummy hash used by VerifyDummy is
// built here so no login request pays for it.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// cannot fail: the password is short and the cost is in range
	dummy, _ := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}

	return string(hash), nil
}

func (h *Hasher) Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("%w: %w", ErrMismatch, err)
}

// VerifyDummy runs a full comparison against a throwaway hash so a login for an
// unknown username takes as long as one with a wrong password.
func (h *Hasher) VerifyDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
