package materialize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rangePattern    = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[-–]\s*(\d+(?:\.\d+)?)\s*$`)
	fractionPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)\s*$`)
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// NormalizeQuantity converts a free-form quantity string to a number. Ranges
// average their endpoints, fractions divide out, otherwise the first numeric
// substring wins. Unparseable quantities ("a pinch", "to taste") become nil
// rather than errors.
func NormalizeQuantity(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if m := rangePattern.FindStringSubmatch(raw); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			avg := (lo + hi) / 2
			return &avg
		}
	}

	if m := fractionPattern.FindStringSubmatch(raw); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && den != 0 {
			q := num / den
			return &q
		}
	}

	if m := numberPattern.FindString(raw); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return &v
		}
	}

	return nil
}
