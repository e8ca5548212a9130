package analytics

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange marks an unrecognized range token. The dashboard endpoint
// maps it to a 400; no query runs against the store for such a request.
var ErrInvalidRange = errors.New("invalid range parameter")

// Range maps a named time range to its lookback window and bucket width.
// Interval is the ClickHouse INTERVAL literal for toStartOfInterval; it only
// ever comes from this fixed table, never from caller input.
type Range struct {
	Token    string
	Lookback time.Duration
	Bucket   time.Duration
	Interval string
}

var rangeTable = map[string]Range{
	"15min":  {"15min", 15 * time.Minute, 30 * time.Second, "30 second"},
	"1hr":    {"1hr", time.Hour, 15 * time.Minute, "15 minute"},
	"12hr":   {"12hr", 12 * time.Hour, 30 * time.Minute, "30 minute"},
	"1day":   {"1day", 24 * time.Hour, time.Hour, "1 hour"},
	"3day":   {"3day", 3 * 24 * time.Hour, 6 * time.Hour, "6 hour"},
	"7day":   {"7day", 7 * 24 * time.Hour, 24 * time.Hour, "1 day"},
	"14day":  {"14day", 14 * 24 * time.Hour, 24 * time.Hour, "1 day"},
	"1month": {"1month", 30 * 24 * time.Hour, 24 * time.Hour, "1 day"},
}

// SupportedRanges lists the valid tokens in display order.
func SupportedRanges() []string {
	return []string{"15min", "1hr", "12hr", "1day", "3day", "7day", "14day", "1month"}
}

func ParseRange(token string) (Range, error) {
	r, ok := rangeTable[token]
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}
	return r, nil
}

// BucketStart aligns t to the start of its bucket, mirroring the store's
// toStartOfInterval grouping.
func (r Range) BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(r.Bucket)
}
