package format

import (
	"fmt"
	"strconv"
	"strings"
)

func HumanNumber(b uint64) string {
	const (
		Thousand = 1000
		Million  = Thousand * 1000
		Billion  = Million * 1000
	)

	switch {
	case b >= Billion:
		return decimalPlace(float64(b)/Billion) + "B"
	case b >= Million:
		return decimalPlace(float64(b)/Million) + "M"
	case b >= Thousand:
		return decimalPlace(float64(b)/Thousand) + "K"
	default:
		return fmt.Sprintf("%d", b)
	}
}

func decimalPlace(number float64) string {
	var s string
	switch {
	case number >= 100:
		s = fmt.Sprintf("%.0f", number)
	case number >= 10:
		s = fmt.Sprintf("%.1f", number)
	default:
		s = fmt.Sprintf("%.2f", number)
	}

	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}

	return s
}

// Token renders token bytes the way byte-level vocabularies store them: every
// byte maps to one printable rune, so a leading space shows as Ġ and a newline
// as Ċ.
func Token(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		r := rune(c)
		switch {
		case r == 0x00ad:
			r = 0x0143
		case r <= 0x0020:
			r = r + 0x0100
		case r >= 0x007f && r <= 0x00a0:
			r = r + 0x00a2
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// Quote renders token bytes as a Go string literal.
func Quote(b []byte) string {
	return strconv.Quote(string(b))
}
