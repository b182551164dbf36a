package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateReferenceNumber builds the partner reference sent with every
// order creation: PL-YYYYMMDD-HHMMSS-mmm-RRRR in Jakarta time.
func GenerateReferenceNumber(now time.Time) string {
	now = now.In(JakartaLocation())

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	// 4-digit cryptographic random
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// fallback: time-based entropy
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"PL-%s-%03d-%04d",
		datePart,
		millis,
		n.Int64(),
	)
}
