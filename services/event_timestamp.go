package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for date-form timestamps, tried in order.
var eventTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseEventTimestamp normalizes a stored event timestamp. Legacy rows key on a
// millisecond epoch string, newer rows on an ISO-8601 date; numeric parsing is
// tried first and date parsing is the fallback. The result is in UTC.
func ParseEventTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errEmptyTimestamp
	}

	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	if isNumeric(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			// float64(MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return time.Time{}, fmt.Errorf("timestamp %q out of range", raw)
			}
			return time.UnixMilli(int64(f)).UTC(), nil
		}
	}

	for _, layout := range eventTimestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FormatEventTimestamp renders t in the canonical stored form.
func FormatEventTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isNumeric(value string) bool {
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return true
}
