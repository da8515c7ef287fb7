package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/libro/internal/apperr"
)

func TestAuthorize_PlainSecret(t *testing.T) {
	a := New("hermana")

	_, err := a.Authorize("wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	_, ok := a.Current()
	assert.False(t, ok)

	tok, err := a.Authorize("hermana")
	require.NoError(t, err)
	assert.True(t, tok.Valid())
	assert.NotEmpty(t, tok.Session())

	again, err := a.Authorize("hermana")
	require.NoError(t, err)
	assert.Equal(t, tok.Session(), again.Session(), "one token per process")

	cur, ok := a.Current()
	assert.True(t, ok)
	assert.Equal(t, tok, cur)
}

func TestAuthorize_HashedSecret(t *testing.T) {
	hash, err := HashSecret("s3creto")
	require.NoError(t, err)
	assert.True(t, IsHashed(hash))

	a := New(hash)
	_, err = a.Authorize("otro")
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)

	tok, err := a.Authorize("s3creto")
	require.NoError(t, err)
	assert.True(t, tok.Valid())
}

func TestAuthorize_NoSecretConfigured(t *testing.T) {
	_, err := New("").Authorize("")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	assert.Contains(t, err.Error(), "no password configured")
}

func TestRequire(t *testing.T) {
	err := Require(Token{}, "delete")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	assert.Equal(t, "delete: password required", err.Error())

	tok, err := New("x").Authorize("x")
	require.NoError(t, err)
	assert.NoError(t, Require(tok, "delete"))
}

func TestHashSecret_Empty(t *testing.T) {
	_, err := HashSecret("")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIsHashed(t *testing.T) {
	assert.False(t, IsHashed("plain"))
	assert.True(t, IsHashed("$2a$14$abcdefghijklmnopqrstuv"))
}
