package shrine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyIsDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	first := DeriveKey([]byte("password"), salt, 64)
	second := DeriveKey([]byte("password"), salt, 64)

	assert.Len(t, first, KeySize)
	assert.Equal(t, first, second)
}

func TestDeriveKeyDependsOnAllInputs(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	otherSalt, err := GenerateSalt()
	require.NoError(t, err)

	base := DeriveKey([]byte("password"), salt, 64)

	assert.NotEqual(t, base, DeriveKey([]byte("Password"), salt, 64))
	assert.NotEqual(t, base, DeriveKey([]byte("password"), otherSalt, 64))
	assert.NotEqual(t, base, DeriveKey([]byte("password"), salt, 65))
}

func TestGenerateSaltIsRandom(t *testing.T) {
	first, err := GenerateSalt()
	require.NoError(t, err)
	second, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, first, SaltSize)
	assert.NotEqual(t, first, second)
}
