package crypto

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precheck/internal/integrity"
	"precheck/internal/model"
)

func newTestEngine(t *testing.T) (*Engine, *Keyring) {
	t.Helper()
	kr, err := NewKeyring(nil)
	require.NoError(t, err)
	return NewEngine(kr), kr
}

func TestEngine_RoundTrip(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	payloads := [][]byte{
		[]byte("hello world"),
		bytes.Repeat([]byte{0x42}, 2048),
		{0x00},
	}

	for _, plaintext := range payloads {
		env, err := eng.Encrypt(ctx, plaintext)
		require.NoError(t, err)
		assert.True(t, env.Complete())

		got, err := eng.Decrypt(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)

		// The digest survives the encrypt/decrypt round trip.
		assert.Equal(t, integrity.Digest(plaintext), integrity.Digest(got))
	}
}

func TestEngine_EnvelopeCompleteness(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	env, err := eng.Encrypt(ctx, []byte("x"))
	require.NoError(t, err)

	assert.NotEmpty(t, env.Ciphertext)
	assert.Len(t, env.IV, nonceSize)
	assert.Len(t, env.AuthTag, tagSize)
	assert.Equal(t, "v1", env.KeyVersion)
}

func TestEngine_TamperDetection(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	env, err := eng.Encrypt(ctx, []byte("sensitive document content"))
	require.NoError(t, err)

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		tampered := env
		tampered.Ciphertext = append([]byte(nil), env.Ciphertext...)
		tampered.Ciphertext[0] ^= 0x01

		_, err := eng.Decrypt(ctx, tampered)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("flipped auth tag bit", func(t *testing.T) {
		tampered := env
		tampered.AuthTag = append([]byte(nil), env.AuthTag...)
		tampered.AuthTag[tagSize-1] ^= 0x80

		_, err := eng.Decrypt(ctx, tampered)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("wrong nonce", func(t *testing.T) {
		tampered := env
		tampered.IV = make([]byte, nonceSize)

		_, err := eng.Decrypt(ctx, tampered)
		assert.ErrorIs(t, err, ErrDecryption)
	})
}

func TestEngine_IncompleteEnvelope(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.Decrypt(ctx, model.EncryptedEnvelope{})
	assert.ErrorIs(t, err, ErrIncompleteEnvelope)

	env, err := eng.Encrypt(ctx, []byte("x"))
	require.NoError(t, err)
	env.AuthTag = nil

	_, err = eng.Decrypt(ctx, env)
	assert.ErrorIs(t, err, ErrIncompleteEnvelope)
}

func TestEngine_UnknownKeyVersion(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	env, err := eng.Encrypt(ctx, []byte("x"))
	require.NoError(t, err)
	env.KeyVersion = "v99"

	_, err = eng.Decrypt(ctx, env)
	assert.ErrorIs(t, err, ErrUnknownKeyVersion)
}

func TestEngine_DecryptAfterRotation(t *testing.T) {
	ctx := context.Background()
	eng, kr := newTestEngine(t)

	env, err := eng.Encrypt(ctx, []byte("pre-rotation"))
	require.NoError(t, err)

	v2, err := kr.Rotate()
	require.NoError(t, err)
	assert.Equal(t, "v2", v2)

	// Old envelope still decrypts via its retired key version.
	got, err := eng.Decrypt(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, []byte("pre-rotation"), got)

	// New envelopes are sealed under the rotated version.
	env2, err := eng.Encrypt(ctx, []byte("post-rotation"))
	require.NoError(t, err)
	assert.Equal(t, "v2", env2.KeyVersion)
}

type failingProvider struct{ err error }

func (p failingProvider) DataKey(context.Context) ([]byte, string, error) { return nil, "", p.err }
func (p failingProvider) Resolve(context.Context, string) ([]byte, error) { return nil, p.err }

func TestEngine_KeyProviderFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("kms down")
	eng := NewEngine(failingProvider{err: boom})

	_, err := eng.Encrypt(ctx, []byte("x"))
	assert.ErrorIs(t, err, boom)
}

func TestNewKeyring_SeedValidation(t *testing.T) {
	_, err := NewKeyring([]byte("short"))
	assert.Error(t, err)

	kr, err := NewKeyring(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	key, version, err := kr.DataKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", version)
	assert.Equal(t, bytes.Repeat([]byte{0x01}, 32), key)
}
