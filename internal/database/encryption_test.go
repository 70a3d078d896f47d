package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptorDisabledPassesThrough(t *testing.T) {
	t.Setenv("CHATSYNC_ENABLE_ENCRYPTION", "false")

	enc, err := newEncryptor()
	require.NoError(t, err)

	out, err := enc.EncryptIfEnabled("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestEncryptorRoundTrip(t *testing.T) {
	t.Setenv("CHATSYNC_ENABLE_ENCRYPTION", "true")
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "test-secret-key-that-is-long-enough-123")

	enc, err := newEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("hello world")
	require.NoError(t, err)
	assert.NotEqual(t, "hello world", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello world", plaintext)
}

func TestEncryptorRejectsShortSecret(t *testing.T) {
	t.Setenv("CHATSYNC_ENABLE_ENCRYPTION", "true")
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "too-short")

	_, err := newEncryptor()
	assert.Error(t, err)
}

func TestEncryptorRejectsMissingSecret(t *testing.T) {
	t.Setenv("CHATSYNC_ENABLE_ENCRYPTION", "true")
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "")

	_, err := newEncryptor()
	assert.Error(t, err)
}

func TestEncryptorRejectsTamperedCiphertext(t *testing.T) {
	t.Setenv("CHATSYNC_ENABLE_ENCRYPTION", "true")
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "test-secret-key-that-is-long-enough-123")

	enc, err := newEncryptor()
	require.NoError(t, err)

	_, err = enc.Decrypt("not-valid-base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
