package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	want := time.Date(2025, 1, 31, 2, 39, 33, 0, time.UTC)

	t.Run("CompactAndISOAgree", func(t *testing.T) {
		compact, err := ParseExpiry("20250131093933")
		require.NoError(t, err)

		iso, err := ParseExpiry("2025-01-31T09:39:33+07:00")
		require.NoError(t, err)

		assert.True(t, compact.Equal(iso))
		assert.True(t, compact.Equal(want))
		assert.Equal(t, 9, compact.In(JakartaLocation()).Hour())
	})

	cases := map[string]string{
		"RFC3339 UTC":      "2025-01-31T02:39:33Z",
		"RFC3339 millis":   "2025-01-31T09:39:33.000+07:00",
		"local datetime":   "2025-01-31 09:39:33",
		"local T datetime": "2025-01-31T09:39:33",
		"JS toString":      "Fri Jan 31 2025 09:39:33 GMT+0700 (Western Indonesia Time)",
		"RFC1123Z":         "Fri, 31 Jan 2025 09:39:33 +0700",
		"surrounding ws":   "  20250131093933 ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseExpiry(in)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{"", "tomorrow", "20251331093933", "2025013109393"} {
			_, err := ParseExpiry(in)
			assert.True(t, errors.Is(err, ErrUnparseableTime), "input %q", in)
		}
	})
}

func TestFormatCompact(t *testing.T) {
	in := time.Date(2025, 1, 31, 2, 39, 33, 0, time.UTC)
	assert.Equal(t, "20250131093933", FormatCompact(in))
}
