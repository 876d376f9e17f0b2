// Package vault encrypts integration credentials before they reach the
// database. Ciphertexts are AES-256-GCM with a random nonce per call,
// base64-encoded for storage in text columns.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const keyLen = 32

// ErrDecrypt is returned for any undecryptable input: bad key, malformed
// encoding, truncated ciphertext, or failed authentication. Callers treat it
// as "credentials corrupted, reconnect".
var ErrDecrypt = errors.New("vault: cannot decrypt credentials")

// Vault performs reversible encryption keyed by a process-wide secret.
type Vault struct {
	aead cipher.AEAD
}

// New derives the AES key from the first 32 bytes of the secret.
func New(secret string) (*Vault, error) {
	if len(secret) < keyLen {
		return nil, fmt.Errorf("vault: secret must be at least %d bytes", keyLen)
	}
	block, err := aes.NewCipher([]byte(secret[:keyLen]))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh nonce. Output is base64(nonce || box).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any defect in the input yields ErrDecrypt.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	ns := v.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plain, err := v.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}
