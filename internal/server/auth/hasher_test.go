package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHashers(t *testing.T) map[string]Hasher {
	t.Helper()
	b, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	a, err := NewArgon2Hasher(Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return map[string]Hasher{"bcrypt": b, "argon2id": a}
}

func TestHasher_RoundTrip(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			for _, pw := range []string{"secret1", "", "пароль-ünïcode", strings.Repeat("x", 50)} {
				digest, err := h.Hash(pw)
				require.NoError(t, err)
				assert.NotEqual(t, pw, digest)

				ok, err := h.Verify(pw, digest)
				require.NoError(t, err)
				assert.True(t, ok, "password %q must verify", pw)

				ok, err = h.Verify(pw+"!", digest)
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestHasher_SaltsEveryDigest(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			d1, err := h.Hash("secret1")
			require.NoError(t, err)
			d2, err := h.Hash("secret1")
			require.NoError(t, err)
			assert.NotEqual(t, d1, d2)
		})
	}
}

func TestHasher_MalformedDigest(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify("secret1", "not-a-digest")
			assert.False(t, ok)
			assert.Error(t, err)
		})
	}
}

func TestArgon2_DigestFormat(t *testing.T) {
	h, err := NewArgon2Hasher(Argon2Params{Memory: 8 * 1024, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	digest, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=2,p=1$"), digest)
}

func TestArgon2_VerifiesWithEmbeddedParams(t *testing.T) {
	old, err := NewArgon2Hasher(Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	require.NoError(t, err)
	digest, err := old.Hash("secret1")
	require.NoError(t, err)

	current, err := NewArgon2Hasher(Argon2Params{Memory: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	ok, err := current.Verify("secret1", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2_RejectsBadDigests(t *testing.T) {
	h := testHashers(t)["argon2id"]
	for _, d := range []string{
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	} {
		_, err := h.Verify("x", d)
		assert.Error(t, err, d)
	}
}

func TestNewArgon2Hasher_ValidatesParams(t *testing.T) {
	_, err := NewArgon2Hasher(Argon2Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	assert.Error(t, err)
	_, err = NewArgon2Hasher(Argon2Params{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	assert.Error(t, err)
	_, err = NewArgon2Hasher(Argon2Params{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32})
	assert.Error(t, err)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	h, err := NewBcryptHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)

	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestBcrypt_TooLongPassword(t *testing.T) {
	h := testHashers(t)["bcrypt"]
	_, err := h.Hash(strings.Repeat("x", 73))
	assert.Error(t, err)
}

func TestBcrypt_VerifyTooLongPasswordIsMismatch(t *testing.T) {
	h := testHashers(t)["bcrypt"]
	digest, err := h.Hash(strings.Repeat("x", MaxPasswordBytes))
	require.NoError(t, err)

	ok, err := h.Verify(strings.Repeat("x", MaxPasswordBytes+1), digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher(HasherBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h.primary)

	h, err = NewHasher(HasherArgon2id, 0)
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h.primary)

	_, err = NewHasher("md5", 0)
	assert.Error(t, err)

	_, err = NewHasher(HasherBcrypt, bcrypt.MaxCost+1)
	assert.Error(t, err)
}

func testMultiHasher(t *testing.T, scheme string) *MultiHasher {
	t.Helper()
	hs := testHashers(t)
	m, err := NewMultiHasher(scheme, hs["bcrypt"].(*BcryptHasher), hs["argon2id"].(*Argon2Hasher))
	require.NoError(t, err)
	return m
}

func TestMultiHasher_HashesWithConfiguredScheme(t *testing.T) {
	digest, err := testMultiHasher(t, HasherArgon2id).Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"), digest)

	digest, err = testMultiHasher(t, HasherBcrypt).Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$"), digest)
}

func TestMultiHasher_VerifiesEverySchemeRegardlessOfConfig(t *testing.T) {
	hs := testHashers(t)
	for name, h := range hs {
		digest, err := h.Hash("secret1")
		require.NoError(t, err)

		for _, scheme := range []string{HasherBcrypt, HasherArgon2id} {
			t.Run(name+" digest via "+scheme, func(t *testing.T) {
				m := testMultiHasher(t, scheme)

				ok, err := m.Verify("secret1", digest)
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = m.Verify("secret2", digest)
				require.NoError(t, err)
				assert.False(t, ok)
			})
		}
	}
}

func TestMultiHasher_UnknownDigest(t *testing.T) {
	ok, err := testMultiHasher(t, HasherBcrypt).Verify("secret1", "$md5$abc")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errUnknownDigest)
}
