// Package auth holds the credential primitives: one-way password hashing
// and signed, self-describing access tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext password into a salted digest and checks a
// plaintext against a stored digest.
type Hasher interface {
	Hash(plain string) (string, error)

	// Verify reports whether plain matches digest. A mismatch is (false, nil);
	// an error means the digest itself could not be used.
	Verify(plain, digest string) (bool, error)
}

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// MaxPasswordBytes is the longest password bcrypt can digest. It is applied
// to every scheme so that switching schemes never strands a password.
const MaxPasswordBytes = 72

var errUnknownDigest = errors.New("unrecognized digest format")

// NewHasher builds a hasher that writes new digests with scheme and verifies
// digests of every supported scheme. bcryptCost is only used for bcrypt;
// zero means bcrypt.DefaultCost.
func NewHasher(scheme string, bcryptCost int) (*MultiHasher, error) {
	b, err := NewBcryptHasher(bcryptCost)
	if err != nil {
		return nil, err
	}
	a, err := NewArgon2Hasher(DefaultArgon2Params)
	if err != nil {
		return nil, err
	}
	return NewMultiHasher(scheme, b, a)
}

// MultiHasher hashes with one configured scheme and picks the verifier from
// the digest prefix, so stored digests survive a change of PASSWORD_HASHER.
type MultiHasher struct {
	primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func NewMultiHasher(scheme string, b *BcryptHasher, a *Argon2Hasher) (*MultiHasher, error) {
	m := &MultiHasher{bcrypt: b, argon2: a}
	switch scheme {
	case HasherBcrypt:
		m.primary = b
	case HasherArgon2id:
		m.primary = a
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", scheme)
	}
	return m, nil
}

func (m *MultiHasher) Hash(plain string) (string, error) {
	return m.primary.Hash(plain)
}

func (m *MultiHasher) Verify(plain, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$"+argon2ID+"$"):
		return m.argon2.Verify(plain, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return m.bcrypt.Verify(plain, digest)
	default:
		return false, errUnknownDigest
	}
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

// Verify compares in constant time via bcrypt. A plaintext longer than
// MaxPasswordBytes can never have been hashed and is a mismatch.
func (h *BcryptHasher) Verify(plain, digest string) (bool, error) {
	if len(plain) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt verify: %w", err)
}
