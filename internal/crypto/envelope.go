package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize   = 32
	saltSize  = 16
	nonceSize = 12 // GCM standard nonce size
	tagSize   = 16

	// DefaultIterations is the PBKDF2-SHA256 work factor for new envelopes.
	DefaultIterations = 100_000
	maxIterations     = 10_000_000

	legacyIterations = 100_000
	v2Prefix         = "v2:"
)

// Envelopes written before per-secret salts existed derive their key from this.
var legacySalt = []byte("salt")

// ErrDecryption covers every way an envelope can fail to open. Wrong
// passwords and corrupted data are deliberately indistinguishable.
var ErrDecryption = errors.New("wrong password or corrupted data")

var b64 = base64.StdEncoding.Strict()

// Codec seals plaintext under a password-derived key.
type Codec struct {
	iterations int
}

// NewCodec returns a codec writing envelopes with the given PBKDF2 work
// factor; values <= 0 select DefaultIterations.
func NewCodec(iterations int) *Codec {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if iterations > maxIterations {
		iterations = maxIterations
	}
	return &Codec{iterations: iterations}
}

// Encode produces a v2 envelope:
//
//	"v2:" + base64(iterations[4] || salt[16] || nonce[12] || ciphertext || tag[16])
func (c *Codec) Encode(plaintext []byte, password string) (string, error) {
	header := make([]byte, 4+saltSize)
	binary.BigEndian.PutUint32(header[:4], uint32(c.iterations))
	if _, err := rand.Read(header[4:]); err != nil {
		return "", fmt.Errorf("salt generation failed: %w", err)
	}

	gcm, err := newGCM(deriveKey(password, header[4:], c.iterations))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}

	out := make([]byte, 0, len(header)+nonceSize+len(plaintext)+tagSize)
	out = append(out, header...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, v2AAD(header))
	return v2Prefix + b64.EncodeToString(out), nil
}

// Decode opens an envelope produced by Encode, or a legacy v1 envelope.
func (c *Codec) Decode(envelope, password string) ([]byte, error) {
	if IsLegacyEnvelope(envelope) {
		return decodeLegacy(envelope, password)
	}

	raw, err := b64.DecodeString(strings.TrimPrefix(envelope, v2Prefix))
	if err != nil || len(raw) < 4+saltSize+nonceSize+tagSize {
		return nil, ErrDecryption
	}
	header := raw[:4+saltSize]
	iterations := binary.BigEndian.Uint32(header[:4])
	if iterations == 0 || iterations > maxIterations {
		return nil, ErrDecryption
	}

	gcm, err := newGCM(deriveKey(password, header[4:], int(iterations)))
	if err != nil {
		return nil, ErrDecryption
	}
	nonce := raw[len(header) : len(header)+nonceSize]
	plaintext, err := gcm.Open(nil, nonce, raw[len(header)+nonceSize:], v2AAD(header))
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// IsLegacyEnvelope reports whether envelope uses the unversioned layout
// nonce[12] || ciphertext || tag[16] with the fixed application salt.
func IsLegacyEnvelope(envelope string) bool {
	return !strings.HasPrefix(envelope, v2Prefix)
}

func decodeLegacy(envelope, password string) ([]byte, error) {
	raw, err := b64.DecodeString(envelope)
	if err != nil || len(raw) < nonceSize+tagSize {
		return nil, ErrDecryption
	}
	gcm, err := newGCM(deriveKey(password, legacySalt, legacyIterations))
	if err != nil {
		return nil, ErrDecryption
	}
	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func v2AAD(header []byte) []byte {
	return append([]byte("v2"), header...)
}

func deriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}
	return gcm, nil
}
