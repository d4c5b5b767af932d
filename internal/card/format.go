package card

import (
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// Ellipsis is appended to truncated identifiers.
const Ellipsis = "..."

const (
	shortIDLength     = 8
	displayDateLayout = "01/02 15:04"
)

// FormatDisplayDate renders an ISO-ish timestamp as MM/DD HH:MM in the local
// time zone. Unparseable input is returned unchanged.
func FormatDisplayDate(raw string) string {
	return FormatDisplayDateIn(raw, time.Local)
}

// FormatDisplayDateIn is FormatDisplayDate with an explicit display location.
// A nil location means UTC.
func FormatDisplayDateIn(raw string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	t, ok := model.ParseTimestamp(raw, loc)
	if !ok {
		return raw
	}
	return t.In(loc).Format(displayDateLayout)
}

// TruncateID returns the first eight characters of id followed by Ellipsis.
// Shorter ids are returned whole, still followed by Ellipsis.
func TruncateID(id string) string {
	if utf8.RuneCountInString(id) <= shortIDLength {
		return id + Ellipsis
	}

	n := 0
	for i := range id {
		if n == shortIDLength {
			return id[:i] + Ellipsis
		}
		n++
	}
	return id + Ellipsis
}

// formatCount renders a counter with thousands separators. Negative values
// are clamped to zero.
func formatCount(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Comma(n)
}
