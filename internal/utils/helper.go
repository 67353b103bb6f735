package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so the keyword matches literally.
func EscapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

// ContainsPattern wraps a trimmed keyword for a substring ILIKE match.
// Returns "" for a blank keyword.
func ContainsPattern(keyword string) string {
	k := strings.TrimSpace(keyword)
	if k == "" {
		return ""
	}
	return "%" + EscapeLike(k) + "%"
}

func UUIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// DayRange widens from/to to whole-day bounds. A zero range defaults to
// the trailing window ending now.
func DayRange(from, to *time.Time, window time.Duration, now time.Time) (time.Time, time.Time) {
	if from == nil && to == nil {
		return now.Add(-window), now
	}

	var start, end time.Time
	if from != nil {
		y, m, d := from.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	} else {
		start = time.Time{}
	}
	if to != nil {
		y, m, d := to.Date()
		end = time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), to.Location())
	} else {
		end = now
	}
	return start, end
}
