package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := &Bcrypt{Cost: 4}
	hashed, err := h.Hash("secretpw1")
	require.NoError(t, err)

	assert.NotEqual(t, "secretpw1", hashed)
	assert.Len(t, hashed, 60)
	assert.True(t, h.Verify("secretpw1", hashed))
	assert.False(t, h.Verify("secretpw2", hashed))
}

func TestBcrypt_HashIsSalted(t *testing.T) {
	t.Parallel()

	h := &Bcrypt{Cost: 4}
	first, err := h.Hash("secretpw1")
	require.NoError(t, err)
	second, err := h.Hash("secretpw1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("secretpw1", second))
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	t.Parallel()

	h := NewBcrypt()
	assert.False(t, h.Verify("secretpw1", ""))
	assert.False(t, h.Verify("secretpw1", "not-a-bcrypt-hash"))
}

func TestNewBcrypt_DefaultCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultCost, NewBcrypt().Cost)
}
