package crypto

import (
	"encoding/binary"
	"fmt"

	"precheck/internal/model"
)

// Blob framing for envelopes at rest:
//
//	magic (4) | keyVersion len (2) | keyVersion | iv len (2) | iv |
//	tag len (2) | tag | ciphertext
//
// The object store only ever sees this opaque blob.
var blobMagic = []byte("PCE1")

// EncodeEnvelope serializes a complete envelope into a storage blob.
func EncodeEnvelope(env model.EncryptedEnvelope) ([]byte, error) {
	if !env.Complete() {
		return nil, ErrIncompleteEnvelope
	}

	size := len(blobMagic) + 2 + len(env.KeyVersion) + 2 + len(env.IV) + 2 + len(env.AuthTag) + len(env.Ciphertext)
	out := make([]byte, 0, size)
	out = append(out, blobMagic...)
	out = appendField(out, []byte(env.KeyVersion))
	out = appendField(out, env.IV)
	out = appendField(out, env.AuthTag)
	out = append(out, env.Ciphertext...)
	return out, nil
}

// DecodeEnvelope parses a storage blob back into an envelope. A malformed
// blob yields ErrDecryption: at this layer corruption of the framing is
// indistinguishable from corruption of the ciphertext itself.
func DecodeEnvelope(blob []byte) (model.EncryptedEnvelope, error) {
	if len(blob) < len(blobMagic) || string(blob[:len(blobMagic)]) != string(blobMagic) {
		return model.EncryptedEnvelope{}, fmt.Errorf("%w: bad blob header", ErrDecryption)
	}
	rest := blob[len(blobMagic):]

	version, rest, err := readField(rest)
	if err != nil {
		return model.EncryptedEnvelope{}, err
	}
	iv, rest, err := readField(rest)
	if err != nil {
		return model.EncryptedEnvelope{}, err
	}
	tag, rest, err := readField(rest)
	if err != nil {
		return model.EncryptedEnvelope{}, err
	}

	env := model.EncryptedEnvelope{
		Ciphertext: rest,
		IV:         iv,
		AuthTag:    tag,
		KeyVersion: string(version),
	}
	if !env.Complete() {
		return model.EncryptedEnvelope{}, fmt.Errorf("%w: truncated blob", ErrDecryption)
	}
	return env, nil
}

func appendField(dst, field []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(field)))
	return append(dst, field...)
}

func readField(src []byte) (field, rest []byte, err error) {
	if len(src) < 2 {
		return nil, nil, fmt.Errorf("%w: truncated blob", ErrDecryption)
	}
	n := int(binary.BigEndian.Uint16(src))
	src = src[2:]
	if len(src) < n {
		return nil, nil, fmt.Errorf("%w: truncated blob", ErrDecryption)
	}
	return src[:n], src[n:], nil
}
