// Package cryptox implements at-rest sealing for locally stored credentials:
// argon2id key derivation from a passphrase and AES-GCM encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const KeySize = 32

var ErrCiphertext = errors.New("ciphertext cannot be opened")

// DeriveKey stretches passphrase with argon2id into a KeySize-byte AES key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// NewAEAD returns AES-GCM for the given key (16, 24 or 32 bytes).
func NewAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SealString encrypts plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext). aad binds the value to its context, e.g. the
// storage key it is written under.
func SealString(aead cipher.AEAD, plaintext string, aad string) string {
	nonce := common.GenerateRandByteArray(aead.NonceSize())
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.StdEncoding.EncodeToString(sealed)
}

// OpenString reverses SealString. A wrong key, wrong aad or tampered input
// yields ErrCiphertext.
func OpenString(aead cipher.AEAD, sealed string, aad string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrCiphertext
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrCiphertext
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ct, []byte(aad))
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plaintext), nil
}
