package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	blob, err := EncryptKey(key.String(), "correct horse battery staple")
	require.NoError(t, err)

	var envelope encryptedKeyJSON
	require.NoError(t, json.Unmarshal(blob, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.Salt)
	assert.NotEmpty(t, envelope.Nonce)
	assert.NotEmpty(t, envelope.Ciphertext)

	got, err := DecryptKey(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, []byte(key), []byte(got))
}

func TestDecryptWrongPassword(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	blob, err := EncryptKey(key.String(), "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	blob, err := EncryptKey(key.String(), "pw")
	require.NoError(t, err)

	var envelope encryptedKeyJSON
	require.NoError(t, json.Unmarshal(blob, &envelope))
	ct, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	require.NoError(t, err)
	ct[0] ^= 0xff
	envelope.Ciphertext = base64.StdEncoding.EncodeToString(ct)
	tampered, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = DecryptKey(tampered, "pw")
	assert.Error(t, err)
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = EncryptKey(key.String(), "")
	assert.Error(t, err)

	_, err = EncryptKey("not base58 at all!!", "pw")
	assert.Error(t, err)
}

func TestDecryptRejectsUnknownVersion(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	blob, err := EncryptKey(key.String(), "pw")
	require.NoError(t, err)

	var envelope encryptedKeyJSON
	require.NoError(t, json.Unmarshal(blob, &envelope))
	envelope.Version = 9
	bumped, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = DecryptKey(bumped, "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestLoadKeyResolutionOrder(t *testing.T) {
	raw, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	other, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	dir := t.TempDir()
	encPath := filepath.Join(dir, "key.enc.json")
	blob, err := EncryptKey(other.String(), "pw")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(encPath, blob, 0o600))

	// Raw key takes precedence over the encrypted file.
	got, err := LoadKey(KeyConfig{
		RawPrivateKey:    raw.String(),
		EncryptedKeyPath: encPath,
		KeyPassword:      "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), []byte(got))

	// Encrypted file is used when no raw key is set.
	got, err = LoadKey(KeyConfig{
		EncryptedKeyPath: encPath,
		KeyPassword:      "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(other), []byte(got))

	// Keygen file is the last resort.
	keygen, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	keygenPath := filepath.Join(dir, "id.json")
	require.NoError(t, os.WriteFile(keygenPath, keygenJSON(keygen), 0o600))

	got, err = LoadKey(KeyConfig{KeygenPath: keygenPath})
	require.NoError(t, err)
	assert.Equal(t, []byte(keygen), []byte(got))

	// Nothing configured is an error.
	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}

func TestWalletSigner(t *testing.T) {
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(key)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	signer := w.Signer()
	got := signer(key.PublicKey())
	require.NotNil(t, got)
	assert.Equal(t, []byte(key), []byte(*got))

	stranger, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	assert.Nil(t, signer(stranger.PublicKey()))
}

// keygenJSON renders a key in the solana-keygen file format, a JSON array of
// byte values.
func keygenJSON(key solanago.PrivateKey) []byte {
	parts := make([]string, len(key))
	for i, b := range key {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}
