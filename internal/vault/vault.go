// Package vault encrypts provider tokens at rest.
//
// Ciphertexts are AES-256-CBC with a fresh 16 byte IV per call, stored as
// "<ivHex>:<ciphertextHex>". The key is derived once from a long-lived secret
// with scrypt and a fixed salt, so values written before a restart stay readable.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

const (
	keySalt = "salt"
	keyLen  = 32
)

var (
	ErrInvalidTokenFormat    = httperr.New(httperr.KindValidation, "invalid_token_format")
	ErrEmptyDecryptionResult = httperr.New(httperr.KindValidation, "empty_decryption_result")
	ErrEmptyPlaintext        = httperr.New(httperr.KindValidation, "empty_plaintext")
)

type Vault struct {
	block cipher.Block
}

func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault: empty secret")
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), 1<<14, 8, 1, keyLen)
	if err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}

	return &Vault{block: block}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrInvalidTokenFormat
	}

	parts := strings.Split(ciphertext, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidTokenFormat
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrInvalidTokenFormat
	}

	enc, err := hex.DecodeString(parts[1])
	if err != nil || len(enc)%aes.BlockSize != 0 {
		return "", ErrInvalidTokenFormat
	}

	out := make([]byte, len(enc))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(out, enc)

	plain, err := unpad(out)
	if err != nil {
		return "", httperr.Wrap(httperr.KindValidation, "token_decryption_failed", err)
	}

	if strings.TrimSpace(string(plain)) == "" {
		return "", ErrEmptyDecryptionResult
	}

	return string(plain), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty block")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
