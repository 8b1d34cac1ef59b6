package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authservice/internal/common"
)

func newHS(t *testing.T, secret string, now time.Time) *JWTSigner {
	t.Helper()
	s, err := NewHS256Signer([]byte(secret), "authservice")
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestIssueAndParse_Success(t *testing.T) {
	now := time.Now()
	s := newHS(t, "super-secret", now)

	tok, err := s.Issue("alice@example.com", Extra{UserID: "u-1", Role: "ROLE_ADMIN"}, 15*time.Minute)
	require.NoError(t, err)

	subject, err := s.ParseSubject(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	claims, err := s.ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ROLE_ADMIN", claims.Role)
	assert.Equal(t, "authservice", claims.Issuer)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())

	assert.True(t, s.IsValid(tok, "alice@example.com"))
	assert.False(t, s.IsValid(tok, "bob@example.com"))
}

func TestParseSubject_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newHS(t, "secret", issuedAt)

	tok, err := s.Issue("u1@example.com", Extra{}, time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }

	_, err = s.ParseSubject(tok)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	assert.False(t, s.IsValid(tok, "u1@example.com"))
}

func TestParseSubject_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := newHS(t, "right-secret", now).Issue("u2@example.com", Extra{}, time.Hour)
	require.NoError(t, err)

	_, err = newHS(t, "wrong-secret", now).ParseSubject(tok)
	require.ErrorIs(t, err, common.ErrTokenBadSignature)
}

func TestParseSubject_TamperedPayload(t *testing.T) {
	s := newHS(t, "secret", time.Now())
	tok, err := s.Issue("u3@example.com", Extra{Role: "ROLE_USER"}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	forged, err := newHS(t, "secret", time.Now()).Issue("u3@example.com", Extra{Role: "ROLE_ADMIN"}, time.Hour)
	require.NoError(t, err)
	parts[1] = strings.Split(forged, ".")[1]
	parts[2] = strings.Split(tok, ".")[2]

	_, err = s.ParseSubject(strings.Join(parts, "."))
	require.ErrorIs(t, err, common.ErrTokenBadSignature)
}

func TestParseSubject_Malformed(t *testing.T) {
	s := newHS(t, "secret", time.Now())

	for _, tok := range []string{"", "abc", "a.b", "a.b.c", "!!!.???.***"} {
		_, err := s.ParseSubject(tok)
		assert.ErrorIs(t, err, common.ErrTokenMalformed, "token %q", tok)
	}
}

func TestParseSubject_RejectsNoneAlgorithm(t *testing.T) {
	s := newHS(t, "secret", time.Now())

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "mallory@example.com",
		Issuer:    "authservice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ParseSubject(tok)
	require.ErrorIs(t, err, common.ErrTokenBadSignature)
}

func TestParseSubject_OtherFailuresAreInvalid(t *testing.T) {
	now := time.Now()
	s := newHS(t, "secret", now)

	other, err := NewHS256Signer([]byte("secret"), "someone-else")
	require.NoError(t, err)
	tok, err := other.Issue("u@example.com", Extra{}, time.Hour)
	require.NoError(t, err)

	_, err = s.ParseSubject(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken, "wrong issuer")

	noSubject, err := s.Issue("", Extra{}, time.Hour)
	require.NoError(t, err)
	_, err = s.ParseSubject(noSubject)
	require.ErrorIs(t, err, common.ErrInvalidToken, "empty subject")
}

func TestNewHS256Signer_RequiresSecret(t *testing.T) {
	_, err := NewHS256Signer(nil, "x")
	require.Error(t, err)
}

func writeRSAKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))
	return path, key
}

func TestRS256_RoundTripFromPEM(t *testing.T) {
	path, _ := writeRSAKey(t)

	key, err := LoadRSAPrivateKey(path)
	require.NoError(t, err)
	s, err := NewRS256Signer(key, "authservice")
	require.NoError(t, err)

	tok, err := s.Issue("carol@example.com", Extra{Role: "ROLE_USER"}, time.Hour)
	require.NoError(t, err)

	subject, err := s.ParseSubject(tok)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", subject)
}

func TestRS256_RejectsOtherKeyAndHMACConfusion(t *testing.T) {
	_, k1 := writeRSAKey(t)
	_, k2 := writeRSAKey(t)

	s1, err := NewRS256Signer(k1, "authservice")
	require.NoError(t, err)
	s2, err := NewRS256Signer(k2, "authservice")
	require.NoError(t, err)

	tok, err := s2.Issue("dave@example.com", Extra{}, time.Hour)
	require.NoError(t, err)
	_, err = s1.ParseSubject(tok)
	require.ErrorIs(t, err, common.ErrTokenBadSignature)

	hs := newHS(t, "secret", time.Now())
	hsTok, err := hs.Issue("dave@example.com", Extra{}, time.Hour)
	require.NoError(t, err)
	_, err = s1.ParseSubject(hsTok)
	require.ErrorIs(t, err, common.ErrTokenBadSignature, "HS256 token against RS256 signer")
}

func TestLoadRSAPrivateKey_Errors(t *testing.T) {
	_, err := LoadRSAPrivateKey(filepath.Join(t.TempDir(), "absent.pem"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0o600))
	_, err = LoadRSAPrivateKey(bad)
	require.Error(t, err)

	_, err = NewRS256Signer(nil, "x")
	require.Error(t, err)
}

func TestIssue_SameInstantYieldsDistinctTokens(t *testing.T) {
	s := newHS(t, "super-secret", time.Now())

	a, err := s.Issue("alice@example.com", Extra{}, time.Minute)
	require.NoError(t, err)
	b, err := s.Issue("alice@example.com", Extra{}, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ca, err := s.ParseClaims(a)
	require.NoError(t, err)
	assert.NotEmpty(t, ca.ID)
}
