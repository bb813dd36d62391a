package utils

import (
	"time"
)

// FormatTimeAgo renders t relative to now, e.g. "5 minutes ago"
func FormatTimeAgo(t time.Time) string {
	return formatTimeAgo(t, time.Now())
}

func formatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return Pluralize(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return Pluralize(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return Pluralize(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return t.Format("2006-01-02")
	}
}
