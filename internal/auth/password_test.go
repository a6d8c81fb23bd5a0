package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	p := newTestPasswordService()

	hash, err := p.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"), "hash %q", hash)
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	p := newTestPasswordService()

	h1, _ := p.Hash("same-password")
	h2, _ := p.Hash("same-password")

	// bcrypt salts every hash.
	assert.NotEqual(t, h1, h2)
}

func TestHash_LengthLimit(t *testing.T) {
	p := newTestPasswordService()

	_, err := p.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.Error(t, err)

	_, err = p.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	p := newTestPasswordService()
	hash, err := p.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, p.Verify(hash, "s3cret-pass"))

	err = p.Verify(hash, "wrong-pass")
	assert.True(t, errors.Is(err, ErrInvalidPassword), "got %v", err)

	err = p.Verify(hash, "")
	assert.True(t, errors.Is(err, ErrInvalidPassword))
}

func TestVerify_GarbageHash(t *testing.T) {
	p := newTestPasswordService()

	err := p.Verify("not-a-bcrypt-hash", "anything")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidPassword))
}
