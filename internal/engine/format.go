package engine

import (
	"math"
	"strconv"
)

// MaxInputLength caps both typed digits and displayed characters.
const MaxInputLength = 12

// ErrorMarker replaces the result line after a failed computation.
const ErrorMarker = "Error"

const (
	scientificAbove = 1e12
	scientificBelow = 1e-10
)

// FormatResult renders v for the result line. Strings longer than
// MaxInputLength switch to scientific notation for very large or very small
// magnitudes and are truncated otherwise. Truncation only affects the
// display, never the stored operand.
func FormatResult(v float64) string {
	if v == 0 {
		v = 0
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) <= MaxInputLength {
		return s
	}

	abs := math.Abs(v)
	if abs >= scientificAbove || (abs != 0 && abs < scientificBelow) {
		return strconv.FormatFloat(v, 'e', 6, 64)
	}

	return s[:MaxInputLength]
}

// formatOperand renders a raw operand literal the same way as a result.
func formatOperand(raw string) string {
	return FormatResult(parseOperand(raw))
}

// displayOperand shows a typed literal verbatim, keeping a trailing point
// or trailing zeros, unless it carries more digits than the keypad allows.
func displayOperand(raw string) string {
	if countDigits(raw) <= MaxInputLength {
		return raw
	}
	return formatOperand(raw)
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// SizeClass hints the UI to shrink the result font for long numbers.
type SizeClass string

const (
	SizeDefault SizeClass = ""
	SizeMedium  SizeClass = "medium"
	SizeSmall   SizeClass = "small"
	SizeXSmall  SizeClass = "xsmall"
)

// SizeClassFor picks the size hint from the length of the displayed string.
func SizeClassFor(display string) SizeClass {
	switch n := len(display); {
	case n > 12:
		return SizeXSmall
	case n > 9:
		return SizeSmall
	case n > 7:
		return SizeMedium
	default:
		return SizeDefault
	}
}
