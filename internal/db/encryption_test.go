package db

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) GCMEncryptor {
	secretKey := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, secretKey)
	require.NoError(t, err)
	enc, err := NewGCMEncryptor(string(secretKey))
	require.NoError(t, err)
	return enc
}

func TestEncryptDecrypt(t *testing.T) {
	enc := newTestEncryptor(t)
	val := "some-secret-value-123"
	valEnc, err := enc.Encrypt(val)
	require.NoError(t, err)
	assert.NotEqual(t, val, valEnc)
	valDec, err := enc.Decrypt(valEnc)
	require.NoError(t, err)
	assert.NotEqual(t, valDec, valEnc)
	assert.Equal(t, val, valDec)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	enc := newTestEncryptor(t)
	first, err := enc.Encrypt("same-value")
	require.NoError(t, err)
	second, err := enc.Encrypt("same-value")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptWithWrongKey(t *testing.T) {
	valEnc, err := newTestEncryptor(t).Encrypt("some-secret-value")
	require.NoError(t, err)

	_, err = newTestEncryptor(t).Decrypt(valEnc)

	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	enc := newTestEncryptor(t)

	_, err := enc.Decrypt("not base64!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.ErrorContains(t, err, "too short")
}

func TestInvalidKeyLength(t *testing.T) {
	_, err := NewGCMEncryptor("short")

	assert.Error(t, err)
}
