package runs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Placeholder is shown in place of absent values.
const Placeholder = "-"

// FormatDuration renders milliseconds as "Xm Ys", rounding to the nearest second.
// Zero or negative durations render as the placeholder.
func FormatDuration(ms float64) string {
	if ms <= 0 {
		return Placeholder
	}
	s := int64(math.Round(ms / 1000))
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

// ShortSHA returns the first eight characters of a commit hash.
func ShortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// GitLabel renders "ref sha8" with a placeholder for a missing ref.
func GitLabel(g *Git) string {
	ref, sha := Placeholder, ""
	if g != nil {
		if g.Ref != "" {
			ref = g.Ref
		}
		sha = ShortSHA(g.SHA)
	}
	return ref + " " + sha
}

// Timestamp renders an RFC 3339 timestamp with a relative hint, e.g.
// "2025-11-13T15:04:05Z (3 hours ago)". Unparseable values are returned as-is.
func Timestamp(raw string, now time.Time) string {
	if raw == "" {
		return Placeholder
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%s (%s)", raw, humanize.RelTime(t, now, "ago", "from now"))
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
