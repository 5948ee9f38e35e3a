package paymentmethod

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedTooShort is returned when a ciphertext cannot contain a nonce.
var ErrSealedTooShort = errors.New("sealed value too short")

// Vault seals instrument tokens and hashes account numbers.
type Vault struct {
	key []byte
}

// NewVault derives a 256-bit key from secret.
func NewVault(secret string) (*Vault, error) {
	if len(secret) < 16 {
		return nil, errors.New("vault secret must be at least 16 characters")
	}
	sum := sha256.Sum256([]byte(secret))
	return &Vault{key: sum[:]}, nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305; the nonce is prepended.
// additional binds the ciphertext to its owner so it cannot be moved.
func (v *Vault) Seal(plaintext, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, additional), nil
}

// Open decrypts a value produced by Seal.
func (v *Vault) Open(sealed, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plain, nil
}

// Hash returns a bcrypt hash of an account number.
func (v *Vault) Hash(value string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(h), nil
}

// Matches compares value against a Hash result.
func (v *Vault) Matches(hash, value string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(value)) == nil
}
