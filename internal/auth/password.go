// Passwords are never stored or compared in plaintext. bcrypt generates a
// random salt per hash, embeds it (and the cost) in its output, and compares
// in constant time.
//
// PRE-HASHING:
// bcrypt only looks at the first 72 bytes of its input, but usernames and
// passwords may be up to 150 characters (which can be several hundred bytes
// of UTF-8). Each password is therefore reduced to a fixed 44-byte string,
// base64(SHA-256(password)), before bcrypt sees it. Every byte of the
// password still affects the hash.
//
// Hash format:
//
//	$2a$12$<22-char salt><31-char hash>

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor (~250ms per hash on a modern server).
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct so the cost can be injected: tests use bcrypt.MinCost (4)
// to keep each hash in the low milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// A cost of 0 selects the default. Do NOT go below the default in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost == 0 {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash to store for plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(prehash(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plaintext against a stored hash.
//
// Returns nil on a match, ErrPasswordMismatch on a wrong password, and a
// wrapped error if the stored hash is malformed.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
