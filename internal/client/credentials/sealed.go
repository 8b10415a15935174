package credentials

import (
	"context"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
)

// sealSaltKey holds the argon2 salt next to the sealed values. It is not
// part of the credential record and survives Clear.
const sealSaltKey = "seal_salt"

var ErrWrongPassphrase = errors.New("stored credentials cannot be decrypted with this passphrase")

// SealedPersistence encrypts every value before handing it to the wrapped
// persistence. Values are bound to their key, so swapping entries in storage
// is detected.
type SealedPersistence struct {
	inner Persistence
	aead  cipher.AEAD
}

// NewSealedPersistence derives the sealing key from passphrase and the salt
// kept in inner, creating the salt on first use.
func NewSealedPersistence(ctx context.Context, inner Persistence, passphrase []byte) (*SealedPersistence, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("sealed persistence requires a passphrase")
	}

	entries, err := inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(entries[sealSaltKey])
	if err != nil || len(salt) == 0 {
		salt = common.GenerateRandByteArray(16)
		if err := inner.Save(ctx, map[string]string{sealSaltKey: base64.StdEncoding.EncodeToString(salt)}); err != nil {
			return nil, fmt.Errorf("store seal salt: %w", err)
		}
	}

	aead, err := cryptox.NewAEAD(cryptox.DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	return &SealedPersistence{inner: inner, aead: aead}, nil
}

// Load opens the record entries. Other keys, such as the salt or fields of
// another writer sharing the backend, are skipped unopened.
func (p *SealedPersistence) Load(ctx context.Context) (map[string]string, error) {
	entries, err := p.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	opened := make(map[string]string, len(entries))
	for k, v := range entries {
		if !slices.Contains(recordKeys, k) {
			continue
		}
		plain, err := cryptox.OpenString(p.aead, v, k)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s", ErrWrongPassphrase, k)
		}
		opened[k] = plain
	}
	return opened, nil
}

func (p *SealedPersistence) Save(ctx context.Context, entries map[string]string) error {
	sealed := make(map[string]string, len(entries))
	for k, v := range entries {
		sealed[k] = cryptox.SealString(p.aead, v, k)
	}
	return p.inner.Save(ctx, sealed)
}

func (p *SealedPersistence) Delete(ctx context.Context, keys ...string) error {
	return p.inner.Delete(ctx, keys...)
}
