package timesheet

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*hora`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*minuto`)
)

// ParseHours converts a free-text time spent value into fractional hours.
// Plain numbers are hours; otherwise "N hora(s)" and "M minuto(s)" are summed.
// Anything unparseable counts as zero.
func ParseHours(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}

	var hours float64
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			hours += v
		}
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			hours += float64(v) / 60
		}
	}
	return hours
}

// FormatDuration renders hours the way the timesheet shows them: whole minutes
// below one hour, two decimals otherwise.
func FormatDuration(hours float64) string {
	if hours < 1 {
		return fmt.Sprintf("%d minutos", int(math.Round(hours*60)))
	}
	return fmt.Sprintf("%.2f horas", hours)
}
