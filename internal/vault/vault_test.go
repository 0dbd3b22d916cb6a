package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/errs"
)

func TestRoundTrip(t *testing.T) {
	v, err := New(DeriveKey("correct-horse-battery-staple"))
	require.NoError(t, err)

	ciphertext, err := v.Encrypt("sup3rs3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "sup3rs3cret", ciphertext)

	plaintext, err := v.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sup3rs3cret", plaintext)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	v1, err := New(DeriveKey("key-one"))
	require.NoError(t, err)
	v2, err := New(DeriveKey("key-two"))
	require.NoError(t, err)

	ciphertext, err := v1.Encrypt("sup3rs3cret")
	require.NoError(t, err)

	_, err = v2.Decrypt(ciphertext)
	assert.ErrorIs(t, err, errs.ErrCredentialDecrypt)
}

func TestDecryptGarbageFails(t *testing.T) {
	v, err := New(DeriveKey("some-key"))
	require.NoError(t, err)

	_, err = v.Decrypt("not-valid-base64!!")
	assert.ErrorIs(t, err, errs.ErrCredentialDecrypt)
}

func TestDeriveKeyPadsAndTruncates(t *testing.T) {
	short := DeriveKey("abc")
	assert.Equal(t, byte('a'), short[0])
	assert.Equal(t, byte(0), short[31])

	long := DeriveKey(string(make([]byte, 64)))
	assert.Len(t, long, 32)
}
