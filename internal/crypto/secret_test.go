package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := []byte("a-well-above-32-byte-encryption-key")
	plaintext := []byte("hunter2")

	ciphertext, err := Encrypt(secret, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(secret, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	secret := []byte("a-well-above-32-byte-encryption-key")
	other := []byte("a-different-well-above-32-byte-key!")
	ciphertext, err := Encrypt(secret, []byte("hunter2"))
	require.NoError(t, err)

	_, err = Decrypt(other, ciphertext)
	assert.Error(t, err)
}

func TestValidateEncryptionKey(t *testing.T) {
	assert.Error(t, ValidateEncryptionKey("short"))
	assert.NoError(t, ValidateEncryptionKey("0123456789012345678901234567890123456789"))
}

func TestIssueVerifyTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken("secret", "alice", RoleOperator, 1)
	require.NoError(t, err)

	claims, outcome := VerifyToken("secret", tok)
	assert.Equal(t, AuthOK, outcome)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, RoleOperator, claims.Role)
}

func TestVerifyTokenInvalidSecret(t *testing.T) {
	tok, err := IssueToken("secret", "alice", RoleOperator, 1)
	require.NoError(t, err)

	_, outcome := VerifyToken("wrong-secret", tok)
	assert.Equal(t, AuthInvalid, outcome)
}

func TestIssueTokenRejectsUnknownRole(t *testing.T) {
	_, err := IssueToken("secret", "alice", Role("superuser"), 1)
	assert.Error(t, err)
}
