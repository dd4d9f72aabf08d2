package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimeToSeconds reads an HH:MM:SS duration. Missing or non-numeric
// segments count as 0.
func ParseTimeToSeconds(timeStr string) int {
	if timeStr == "" {
		return 0
	}
	parts := strings.Split(timeStr, ":")
	seg := func(i int) int {
		if i >= len(parts) {
			return 0
		}
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0
		}
		return v
	}
	return seg(0)*3600 + seg(1)*60 + seg(2)
}

// SecondsToTime renders a second count as zero-padded HH:MM:SS, clamping
// negatives to zero.
func SecondsToTime(totalSeconds float64) string {
	safe := int(math.Round(totalSeconds))
	if safe < 0 {
		safe = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", safe/3600, (safe%3600)/60, safe%60)
}
