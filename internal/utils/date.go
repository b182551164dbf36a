package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CompactLayout is the 14-digit YYYYMMDDHHmmss form the gateway uses for
// expiry timestamps.
const CompactLayout = "20060102150405"

var ErrUnparseableTime = errors.New("unparseable time")

var (
	jakartaOnce sync.Once
	jakartaLoc  *time.Location
)

// JakartaLocation returns Asia/Jakarta, falling back to a fixed +07:00 zone
// when tzdata is not available on the host.
func JakartaLocation() *time.Location {
	jakartaOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Jakarta")
		if err != nil {
			loc = time.FixedZone("WIB", 7*60*60)
		}
		jakartaLoc = loc
	})
	return jakartaLoc
}

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 2 2006 15:04:05 GMT-0700",
}

// Layouts without an offset, interpreted in Jakarta.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseExpiry accepts either the 14-digit compact form (Jakarta local time)
// or a free-form date string.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableTime)
	}

	if isCompact(s) {
		t, err := time.ParseInLocation(CompactLayout, s, JakartaLocation())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
		}
		return t, nil
	}

	// JS Date.toString appends a zone name in parentheses.
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, JakartaLocation()); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
}

// FormatCompact renders t as YYYYMMDDHHmmss in Jakarta.
func FormatCompact(t time.Time) string {
	return t.In(JakartaLocation()).Format(CompactLayout)
}

func isCompact(s string) bool {
	if len(s) != len(CompactLayout) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
