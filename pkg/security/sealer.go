package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize     = 32
	nonceSize   = 24
	sealVersion = "v1"
)

var (
	// ErrInvalidKey signals a sealing key that is not 32 bytes of base64.
	ErrInvalidKey = errors.New("sealing key must be 32 base64-encoded bytes")
	// ErrOpenFailed signals a sealed value that was tampered with or sealed under another key.
	ErrOpenFailed = errors.New("sealed value could not be opened")
)

// Sealer encrypts tenant provider secrets at rest with NaCl secretbox.
type Sealer struct {
	key  [keySize]byte
	rand io.Reader
}

// NewSealer builds a sealer from a base64 (std or url) encoded 32 byte key.
func NewSealer(encodedKey string) (*Sealer, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	s := &Sealer{rand: rand.Reader}
	copy(s.key[:], raw)
	return s, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(encoded)
}

// Seal returns "v1:<base64(nonce|box)>".
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("nothing to seal")
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealVersion + ":" + base64.RawStdEncoding.EncodeToString(box), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	version, payload, ok := strings.Cut(sealed, ":")
	if !ok || version != sealVersion {
		return "", ErrOpenFailed
	}
	box, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrOpenFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}

// Mask keeps the last four characters of a secret for display.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// ConstantTimeEqual compares two secrets without leaking timing.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
