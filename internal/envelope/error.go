package envelope

import "errors"

var (
	ErrMissingKey = errors.New("envelope key is not configured")

	// ErrFormat: envelope is not iv:ciphertext:hmac.
	ErrFormat = errors.New("malformed envelope")
	// ErrIntegrity: HMAC mismatch, the envelope was tampered with.
	ErrIntegrity = errors.New("envelope integrity check failed")
	// ErrDecrypt: authentic envelope that could not be decrypted or decoded.
	ErrDecrypt = errors.New("envelope decrypt failed")

	ErrInvalidExpiry = errors.New("invalid or missing order expiry")
	ErrExpired       = errors.New("order expired")
)
