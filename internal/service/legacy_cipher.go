package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"math/rand"
)

// legacySaltAlphabet must match the gateway's reference kit character for character.
const legacySaltAlphabet = "AbcDE123IJKLMN67QRSTUVWXYZ" + "aBCdefghijklmn123opq45rs67tuv89wxyz" + "0FGH45OP89"

// legacyIV is the fixed IV of the gateway checksum scheme. A static IV leaks plaintext
// equality between messages; it cannot change without the gateway changing too.
var legacyIV = []byte("@@@@&&&&####$$$$")

const legacyKeySize = 16

var (
	ErrCiphertextLength = errors.New("ciphertext is not a multiple of the block size")
	ErrInvalidPadding   = errors.New("invalid padding length")
)

// SaltFunc returns a salt of n characters.
type SaltFunc func(n int) string

// GenerateSalt returns n characters drawn from the legacy alphabet. Not key material.
func GenerateSalt(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = legacySaltAlphabet[rand.Intn(len(legacySaltAlphabet))]
	}
	return string(b)
}

// PKCS7Pad always appends between 1 and blockSize bytes.
func PKCS7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// PKCS7Unpad strips as many bytes as the last byte says. The other pad bytes are not
// checked, matching the reference verifier.
func PKCS7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	padLen := int(data[len(data)-1])
	if padLen > len(data) {
		return nil, ErrInvalidPadding
	}
	return data[:len(data)-padLen], nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// LegacyCipher is AES-128-CBC with the gateway's fixed IV.
type LegacyCipher struct {
	block cipher.Block
}

// NewLegacyCipher derives the AES key: HTML entities decoded, UTF-8 bytes truncated or
// zero-padded to 16 bytes.
func NewLegacyCipher(key string) (*LegacyCipher, error) {
	k := make([]byte, legacyKeySize)
	copy(k, html.UnescapeString(key))

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return &LegacyCipher{block: block}, nil
}

// Encrypt pads and encrypts plaintext, returning standard base64.
func (c *LegacyCipher) Encrypt(plaintext string) string {
	padded := PKCS7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, legacyIV).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt.
func (c *LegacyCipher) Decrypt(ciphertextB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("decoding base64: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrCiphertextLength
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, legacyIV).CryptBlocks(out, raw)

	plain, err := PKCS7Unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptAES encrypts plaintext under key with the legacy scheme.
func EncryptAES(plaintext, key string) (string, error) {
	c, err := NewLegacyCipher(key)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext), nil
}

// DecryptAES decrypts a base64 ciphertext produced by EncryptAES.
func DecryptAES(ciphertextB64, key string) (string, error) {
	c, err := NewLegacyCipher(key)
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertextB64)
}
