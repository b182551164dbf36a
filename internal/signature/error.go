package signature

import "errors"

var (
	ErrMissingSecret = errors.New("signature secret is not configured")
	ErrInvalidBody   = errors.New("request body is not valid JSON")
)
