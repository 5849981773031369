package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherRejectsEmptyPassword(t *testing.T) {
	h := Hasher{Cost: 4}
	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHasherRoundTrip(t *testing.T) {
	h := Hasher{Cost: 4}

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, h.Verify("correct horse battery staple", hash))
	assert.False(t, h.Verify("correct horse battery stable", hash))
	assert.False(t, h.Verify("", hash))
}

func TestHasherSaltsEachHash(t *testing.T) {
	h := Hasher{Cost: 4}

	a, err := h.Hash("hunter22")
	require.NoError(t, err)
	b, err := h.Hash("hunter22")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("hunter22", a))
	assert.True(t, h.Verify("hunter22", b))
}

func TestVerifyToleratesGarbageHash(t *testing.T) {
	h := Hasher{Cost: 4}
	assert.False(t, h.Verify("whatever", "not-a-bcrypt-hash"))
}
