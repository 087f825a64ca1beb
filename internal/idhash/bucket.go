package idhash

import (
	"fmt"
	"strings"
	"time"
)

// Bucket layouts (UTC).
const (
	HourBucketLayout   = "2006-01-02T15:00"
	MinuteBucketLayout = "2006-01-02T15:04"
)

// Granularity selects the dedup bucket size.
type Granularity string

const (
	GranularityHour   Granularity = "hour"
	GranularityMinute Granularity = "minute"
)

// ParseGranularity accepts "hour" and "minute" (case-insensitive). Empty means hour.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GranularityHour:
		return GranularityHour, nil
	case GranularityMinute:
		return GranularityMinute, nil
	default:
		return "", fmt.Errorf("unknown bucket granularity %q", s)
	}
}

// HourBucket formats t as "YYYY-MM-DDTHH:00" in UTC.
func HourBucket(t time.Time) string {
	return t.UTC().Format(HourBucketLayout)
}

// MinuteBucket formats t as "YYYY-MM-DDTHH:MM" in UTC.
func MinuteBucket(t time.Time) string {
	return t.UTC().Format(MinuteBucketLayout)
}

// DedupBucket returns the bucket identifying one generation cycle.
func DedupBucket(t time.Time, g Granularity) string {
	if g == GranularityMinute {
		return MinuteBucket(t)
	}
	return HourBucket(t)
}
