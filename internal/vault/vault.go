package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrInvalidKey = errors.New("invalid encryption key")

// Vault encrypts upstream oauth tokens before they are persisted.
// Decrypt never fails: unusable ciphertext comes back as an empty string.
type Vault struct {
	key [keySize]byte
}

// New accepts either a base64 encoded 32 byte key, or any other non-empty
// string which is then stretched to 32 bytes with sha256
func New(rawKey string) (*Vault, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}

	v := &Vault{}
	if decoded, err := base64.StdEncoding.DecodeString(rawKey); err == nil && len(decoded) == keySize {
		copy(v.key[:], decoded)
		return v, nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(rawKey); err == nil && len(decoded) == keySize {
		copy(v.key[:], decoded)
		return v, nil
	}

	v.key = sha256.Sum256([]byte(rawKey))
	return v, nil
}

func (v *Vault) Encrypt(plaintext string) string {
	if plaintext == "" {
		return ""
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return ""
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

func (v *Vault) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}

	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return ""
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	opened, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return ""
	}

	return string(opened)
}
