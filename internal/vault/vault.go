// Package vault implements symmetric authenticated encryption for
// device passwords at rest (spec.md §4.1).
//
// The cipher is chacha20poly1305 from golang.org/x/crypto, the same
// dependency family the teacher repo and the wider retrieved pack
// (teleport's age/crypto11 usage, estuary-flow's x/crypto transitive
// requirement) all lean on for authenticated encryption rather than
// hand-rolling AES-GCM against crypto/aes directly.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"firestige.xyz/netbackup/internal/errs"
)

// InsecureDefaultKey is used when ENCRYPTION_KEY is unset. Starting
// with this key in a production deployment is refused by the caller
// (see config.Validate); a startup warning is logged regardless.
const InsecureDefaultKey = "netbackup-insecure-default-key"

// Vault encrypts and decrypts device credentials with a single
// process-wide key established at startup.
type Vault struct {
	key [chacha20poly1305.KeySize]byte
}

// DeriveKey pads raw to exactly chacha20poly1305.KeySize (32) bytes:
// truncate if longer, right-pad with zero bytes if shorter. This
// mirrors spec.md §4.1's derivation exactly so any key material an
// operator supplies — short passphrase or long secret — always yields
// a valid key.
func DeriveKey(raw string) [chacha20poly1305.KeySize]byte {
	var key [chacha20poly1305.KeySize]byte
	n := copy(key[:], []byte(raw))
	_ = n // zero-value padding for the remainder is implicit
	return key
}

// New builds a Vault from already-derived key bytes.
func New(key [chacha20poly1305.KeySize]byte) (*Vault, error) {
	if _, err := chacha20poly1305.New(key[:]); err != nil {
		return nil, fmt.Errorf("vault: invalid key: %w", err)
	}
	return &Vault{key: key}, nil
}

// Encrypt returns opaque ciphertext: URL-safe base64 of the nonce
// followed by the authenticated ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(v.key[:])
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure (bad base64, wrong key,
// truncated/tampered ciphertext) is reported uniformly as
// errs.ErrCredentialDecrypt; the underlying crypto error is never
// echoed back, so key state cannot leak through error messages.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errs.ErrCredentialDecrypt
	}
	aead, err := chacha20poly1305.New(v.key[:])
	if err != nil {
		return "", errs.ErrCredentialDecrypt
	}
	if len(raw) < aead.NonceSize() {
		return "", errs.ErrCredentialDecrypt
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errs.ErrCredentialDecrypt
	}
	return string(plaintext), nil
}
