package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
)

const keySize = 32 // AES-256

// Keyring is an in-memory, versioned KeyProvider. Rotation issues a fresh
// data key under a new version while retaining retired versions, so
// envelopes sealed before the rotation remain decryptable.
//
// Safe for concurrent use.
type Keyring struct {
	mu      sync.RWMutex
	keys    map[string][]byte
	active  string
	counter int
}

// NewKeyring builds a keyring seeded with the given 32-byte key as version
// "v1". If seed is nil a random key is generated (suitable for dev and tests).
func NewKeyring(seed []byte) (*Keyring, error) {
	if seed == nil {
		seed = make([]byte, keySize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
	}
	if len(seed) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(seed))
	}

	k := &Keyring{
		keys:    map[string][]byte{"v1": clone(seed)},
		active:  "v1",
		counter: 1,
	}
	return k, nil
}

// DataKey returns the active key and its version.
func (k *Keyring) DataKey(_ context.Context) ([]byte, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return clone(k.keys[k.active]), k.active, nil
}

// Resolve returns the key material for a previously issued version,
// including retired ones.
func (k *Keyring) Resolve(_ context.Context, version string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[version]
	if !ok {
		return nil, fmt.Errorf("no key material for version %q", version)
	}
	return clone(key), nil
}

// Rotate generates a new active key under the next version and returns the
// new version identifier. Retired versions stay resolvable.
func (k *Keyring) Rotate() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.counter++
	version := fmt.Sprintf("v%d", k.counter)
	k.keys[version] = key
	k.active = version
	return version, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
