package utils

import "fmt"

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// FormatUptime renders seconds as "Xd Yh", "Xh" or "Xm". Input must not be negative.
func FormatUptime(seconds int64) string {
	days := seconds / secondsPerDay
	hours := (seconds % secondsPerDay) / secondsPerHour
	minutes := (seconds % secondsPerHour) / secondsPerMinute

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatBytes scales at decimal thresholds (1e12, 1e9, 1e6).
func FormatBytes(bytes int64) string {
	b := float64(bytes)
	switch {
	case b >= 1e12:
		return fmt.Sprintf("%.2f TB", b/1e12)
	case b >= 1e9:
		return fmt.Sprintf("%.2f GB", b/1e9)
	case b >= 1e6:
		return fmt.Sprintf("%.2f MB", b/1e6)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatLastSeen buckets the age of a unix timestamp relative to now (both in seconds).
// Timestamps in the future count as "just now".
func FormatLastSeen(lastSeen, now int64) string {
	diff := now - lastSeen
	switch {
	case diff < secondsPerMinute:
		return "just now"
	case diff < secondsPerHour:
		return fmt.Sprintf("%d minutes ago", diff/secondsPerMinute)
	case diff < secondsPerDay:
		return fmt.Sprintf("%d hours ago", diff/secondsPerHour)
	default:
		return fmt.Sprintf("%d days ago", diff/secondsPerDay)
	}
}

// ActivityRate is credits earned per day of observed uptime. ok is false
// when uptime is zero or negative.
func ActivityRate(credits, uptimeSeconds int64) (rate float64, ok bool) {
	if uptimeSeconds <= 0 {
		return 0, false
	}
	return float64(credits) / (float64(uptimeSeconds) / secondsPerDay), true
}
