package envelope

import (
	"fmt"
	"time"

	"paylink-checkout/internal/utils"
)

// CheckExpiry is the server-side guard run after a successful Decode.
// Unparseable input maps to ErrInvalidExpiry, a past instant to ErrExpired.
func CheckExpiry(expiry string, now time.Time) (time.Time, error) {
	at, err := utils.ParseExpiry(expiry)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidExpiry, err)
	}

	if at.Before(now) {
		return at, fmt.Errorf("%w at %s", ErrExpired, at.Format(time.RFC3339))
	}
	return at, nil
}
