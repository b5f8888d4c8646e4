package instagram

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var countNumber = regexp.MustCompile(`[\d.,]+`)

// ParseCount reads a follower/post counter as shown on a profile:
// "1.234", "1,234", "12,5 mil", "12.5K", "3M", "1,2 mi". Unreadable text
// counts as 0.
func ParseCount(text string) int {
	clean := strings.ToLower(strings.Join(strings.Fields(text), ""))
	loc := countNumber.FindStringIndex(clean)
	if loc == nil {
		return 0
	}
	num := strings.Trim(clean[loc[0]:loc[1]], ".,")
	if num == "" {
		return 0
	}
	rest := clean[loc[1]:]

	multiplier := 1.0
	switch {
	case strings.HasPrefix(rest, "mil"), strings.HasPrefix(rest, "k"):
		multiplier = 1e3
	case strings.HasPrefix(rest, "m"):
		multiplier = 1e6
	}

	if multiplier == 1 {
		// Plain counters only use separators for thousands.
		n, err := strconv.Atoi(strings.NewReplacer(".", "", ",", "").Replace(num))
		if err != nil {
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f * multiplier))
}
