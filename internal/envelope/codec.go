// Package envelope serializes checkout state into an opaque, URL-safe-ish
// token so it can ride along in a query parameter between page loads.
//
// Format: hex(iv) ":" base64(AES-256-CBC(json)) ":" hex(HMAC-SHA256(key2, first two parts)).
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"
)

const (
	keySize   = 32
	separator = ":"
)

type Codec struct {
	encKey []byte
	macKey []byte
	rand   io.Reader
}

// NewCodec creates a codec. encryptionKey must be 32 bytes for AES-256.
func NewCodec(encryptionKey, hmacKey []byte) (*Codec, error) {
	if len(encryptionKey) != keySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", ErrMissingKey, keySize, len(encryptionKey))
	}
	if len(hmacKey) == 0 {
		return nil, fmt.Errorf("%w: hmac key is empty", ErrMissingKey)
	}

	return &Codec{
		encKey: append([]byte(nil), encryptionKey...),
		macKey: append([]byte(nil), hmacKey...),
		rand:   rand.Reader,
	}, nil
}

// KeyFromString accepts a 64-char hex key or a raw 32-byte string.
func KeyFromString(s string) []byte {
	if len(s) == keySize*2 {
		if b, err := hex.DecodeString(s); err == nil {
			return b
		}
	}
	return []byte(s)
}

// Encode serializes v to JSON and seals it.
func (c *Codec) Encode(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext, err := c.encrypt(iv, plaintext)
	if err != nil {
		return "", err
	}

	body := hex.EncodeToString(iv) + separator + base64.StdEncoding.EncodeToString(ciphertext)
	return body + separator + hex.EncodeToString(c.mac(body)), nil
}

// Decode verifies and opens token into v. v is only written when every
// step succeeds.
func (c *Codec) Decode(token string, v any) error {
	token = strings.TrimSpace(token)
	if strings.Contains(token, "%") {
		if unescaped, err := url.QueryUnescape(token); err == nil {
			token = unescaped
		}
	}
	// A '+' in the ciphertext turns into a space when the token passes
	// through an unescaped query string.
	token = strings.ReplaceAll(token, " ", "+")

	// extra separators stay in the hmac part and fail verification
	parts := strings.SplitN(token, separator, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("%w: expected 3 parts, got %d", ErrFormat, len(parts))
	}

	gotMAC, err := hex.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("%w: hmac is not hex", ErrIntegrity)
	}

	body := parts[0] + separator + parts[1]
	if !hmac.Equal(gotMAC, c.mac(body)) {
		return ErrIntegrity
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return fmt.Errorf("%w: bad iv", ErrDecrypt)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("%w: ciphertext is not base64", ErrDecrypt)
	}

	plaintext, err := c.decrypt(iv, ciphertext)
	if err != nil {
		return err
	}

	return unmarshalInto(plaintext, v)
}

func (c *Codec) mac(body string) []byte {
	m := hmac.New(sha256.New, c.macKey)
	m.Write([]byte(body))
	return m.Sum(nil)
}

func (c *Codec) encrypt(iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func (c *Codec) decrypt(iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecrypt)
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	plaintext, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// unmarshalInto decodes into a fresh value of v's type and only then copies
// it over, so a failure never leaves v half-populated.
func unmarshalInto(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer", ErrDecrypt)
	}

	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
