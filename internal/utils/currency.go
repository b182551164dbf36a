package utils

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idr = message.NewPrinter(language.Indonesian)

// FormatIDR renders an amount the way id-ID locale shows rupiah:
// "Rp 20.141", with a comma decimal part only when cents are present.
func FormatIDR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	if cents%100 == 0 {
		return sign + idr.Sprintf("Rp %d", cents/100)
	}
	return sign + idr.Sprintf("Rp %.2f", float64(cents)/100)
}

// ParseAmount reads gateway amounts which arrive either as "20141",
// "20141.00" or with thousands separators.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}
