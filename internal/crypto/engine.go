// Package crypto implements the envelope encryption engine of the pipeline.
// Plaintext is sealed with AES-256-GCM under a data key obtained from a
// KeyProvider; the resulting envelope records the key version so that old
// documents stay decryptable after key rotation.
package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"precheck/internal/model"
)

const (
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrDecryption signals an authentication failure: the ciphertext or tag
	// was tampered with or corrupted in transit/storage.
	ErrDecryption = errors.New("decryption failed")

	// ErrUnknownKeyVersion signals that the envelope's key version cannot be
	// resolved by the key provider (rotation/expiry problem, or a transient
	// provider failure indistinguishable from it at this layer).
	ErrUnknownKeyVersion = errors.New("unknown key version")

	// ErrIncompleteEnvelope signals an envelope missing one of its required
	// fields. Such an envelope was never produced by Encrypt.
	ErrIncompleteEnvelope = errors.New("incomplete encrypted envelope")
)

// KeyProvider hands out data keys for encryption and resolves retired key
// versions for decryption. Implementations must retain retired key material
// for the lifetime of any envelope sealed with it.
type KeyProvider interface {
	// DataKey returns the active data key and its version identifier.
	DataKey(ctx context.Context) (key []byte, version string, err error)
	// Resolve returns the key material for a previously issued version.
	Resolve(ctx context.Context, version string) ([]byte, error)
}

// Engine performs authenticated encryption of document payloads.
type Engine struct {
	keys KeyProvider
}

// NewEngine constructs an Engine backed by the given key provider.
func NewEngine(keys KeyProvider) *Engine {
	return &Engine{keys: keys}
}

// Encrypt seals plaintext into a complete envelope. It never returns a
// partially filled envelope: any failure returns the zero value and an error.
func (e *Engine) Encrypt(ctx context.Context, plaintext []byte) (model.EncryptedEnvelope, error) {
	key, version, err := e.keys.DataKey(ctx)
	if err != nil {
		return model.EncryptedEnvelope{}, fmt.Errorf("obtain data key: %w", err)
	}

	aead, err := newGCM(key)
	if err != nil {
		return model.EncryptedEnvelope{}, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return model.EncryptedEnvelope{}, fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends the 16-byte GCM tag to the ciphertext; the envelope
	// stores the two parts separately.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	env := model.EncryptedEnvelope{
		Ciphertext: sealed[:len(sealed)-tagSize],
		IV:         nonce,
		AuthTag:    sealed[len(sealed)-tagSize:],
		KeyVersion: version,
	}
	if !env.Complete() {
		return model.EncryptedEnvelope{}, ErrIncompleteEnvelope
	}
	return env, nil
}

// Decrypt resolves the envelope's key version and opens the ciphertext.
// A failed authentication tag yields ErrDecryption, never wrong plaintext.
func (e *Engine) Decrypt(ctx context.Context, env model.EncryptedEnvelope) ([]byte, error) {
	if !env.Complete() {
		return nil, ErrIncompleteEnvelope
	}

	key, err := e.keys.Resolve(ctx, env.KeyVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyVersion, env.KeyVersion)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return aead, nil
}
