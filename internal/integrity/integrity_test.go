package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest_Deterministic(t *testing.T) {
	data := []byte("the quick brown fox")

	assert.Equal(t, Digest(data), Digest(data))
	assert.Len(t, Digest(data), 64) // hex sha-256

	// Empty input still has a well-defined digest.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
}

func TestMatches(t *testing.T) {
	data := []byte("payload")
	h := Digest(data)

	assert.True(t, Matches(h, data))
	assert.False(t, Matches(h, []byte("payload!")))
	assert.False(t, Matches("not-a-digest", data))
}

func TestCheck(t *testing.T) {
	data := []byte("payload")
	h := Digest(data)

	assert.NoError(t, Check(h, data))
	assert.ErrorIs(t, Check(h, []byte("tampered")), ErrMismatch)
}
