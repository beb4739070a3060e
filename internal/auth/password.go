package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used in production.
// Cost 12 is roughly 250ms per hash on current server hardware.
const DefaultPasswordCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer inputs are rejected
// instead of silently truncated.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Compare when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: password does not match")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests. Cost 4 makes a test hash take microseconds.
type PasswordService struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordService creates a PasswordService with DefaultPasswordCost.
func NewPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(DefaultPasswordCost)
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost,
// clamped to the range bcrypt accepts.
//
// Do NOT go below the default in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	cost = max(cost, bcrypt.MinCost)
	cost = min(cost, bcrypt.MaxCost)
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained string like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// It includes the salt and cost, so it is stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// HashRandom hashes a fresh random secret that is never returned. Accounts
// created through OAuth get such a hash so their password column is never
// empty and no password can match it.
func (p *PasswordService) HashRandom() (string, error) {
	return p.Hash(rand.Text())
}

// Compare checks plaintext against a stored bcrypt hash in constant time.
// It returns nil on a match and ErrPasswordMismatch on a wrong password.
func (p *PasswordService) Compare(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// CompareDummy spends one bcrypt comparison against a throwaway hash.
// Sign-in calls it when the account does not exist so that path costs the
// same as a wrong password.
func (p *PasswordService) CompareDummy(plaintext string) {
	p.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(rand.Text()), p.cost)
		if err == nil {
			p.dummyHash = h
		}
	})
	if p.dummyHash == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
}
