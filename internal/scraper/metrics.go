package scraper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseCount converts abbreviated counts like "1.2K", "5.7M", "1,234" or
// "423" to integers
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1e3
	case "M":
		multiplier = 1e6
	case "B":
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("unparseable count %q", s)
	}
	n := math.Round(value * multiplier)
	if n >= math.MaxInt {
		return math.MaxInt, nil
	}
	return int(n), nil
}
