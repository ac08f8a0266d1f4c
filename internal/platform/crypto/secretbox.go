package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Service seals small secrets (TOTP seeds) at rest with XChaCha20-Poly1305.
// Without a key it passes values through unchanged so development setups work.
type Service struct {
	key []byte
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be %d bytes after decoding", chacha20poly1305.KeySize)
	}
	return &Service{key: decoded}, nil
}

func (s *Service) Configured() bool {
	return s != nil && len(s.key) == chacha20poly1305.KeySize
}

func (s *Service) SealString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if !s.Configured() {
		return []byte(value), nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, []byte(value), nil), nil
}

func (s *Service) OpenString(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if !s.Configured() {
		return string(sealed), nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// decodeKey accepts hex, standard base64 or raw bytes.
func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == chacha20poly1305.KeySize {
		return decoded
	}
	return []byte(raw)
}
