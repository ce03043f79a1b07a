package security

import (
	"PushProbe/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// AESService implements ports.SecurityPort using AES-GCM.
// The nonce is prepended to every ciphertext.
type AESService struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

var _ ports.SecurityPort = (*AESService)(nil)

// NewAESService creates a new security service from a raw 16 or 32 byte key.
func NewAESService(encryptionKey []byte, baseLogger *zerolog.Logger) (*AESService, error) {
	if len(encryptionKey) != 16 && len(encryptionKey) != 32 {
		return nil, errors.New("encryptionKey must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "security_service").Logger()
	log.Info().Int("key_bits", len(encryptionKey)*8).Msg("Security service initialized")

	return &AESService{gcm: gcm, log: log}, nil
}

// NewAESServiceFromHex decodes a hex key (as found in ENCRYPTION_KEY).
func NewAESServiceFromHex(hexKey string, baseLogger *zerolog.Logger) (*AESService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex-encoded: %w", err)
	}
	return NewAESService(key, baseLogger)
}

// Encrypt encrypts data using AES-GCM.
func (s *AESService) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts data using AES-GCM.
func (s *AESService) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext is too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to decrypt ciphertext (tampered or corrupt?)")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString encrypts s and returns it base64-encoded for text columns.
func EncryptString(sec ports.SecurityPort, s string) (string, error) {
	enc, err := sec.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// DecryptString reverses EncryptString.
func DecryptString(sec ports.SecurityPort, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("could not base64-decode ciphertext: %w", err)
	}
	dec, err := sec.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(dec), nil
}
