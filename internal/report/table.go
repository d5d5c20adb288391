package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/kula-app/upcoming-contests/internal/clist"
)

// Messages printed instead of a table
const (
	MsgNoContests      = "No upcoming contests found."
	MsgNoResourceIDs   = "No resource IDs provided."
	MsgNoValidResource = "No valid resource IDs found."
)

// Column widths of the contest table
const (
	nameWidth     = 50
	startWidth    = 20
	durationWidth = 10
	resourceWidth = 15

	// MaxNameLength is the number of characters of an event name that are shown
	MaxNameLength = 48
)

// separatorWidth is one wider than a padded row
const separatorWidth = 105

// WriteTable renders contests as a fixed-width table.
// With no contests a single informational line is written instead.
func WriteTable(w io.Writer, contests []clist.Contest) error {
	if len(contests) == 0 {
		_, err := fmt.Fprintln(w, MsgNoContests)
		return err
	}

	var b strings.Builder
	b.WriteString("\n")
	writeRow(&b, "Contest Name", "Start Time (UTC)", "Duration", "Resource")
	b.WriteString(strings.Repeat("-", separatorWidth))
	b.WriteString("\n")

	for _, contest := range contests {
		writeRow(&b,
			Truncate(orNotAvailable(contest.Event), MaxNameLength),
			orNotAvailable(contest.Start),
			FormatDuration(contest.Duration),
			contest.Resource.DisplayName())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRow(b *strings.Builder, name, start, duration, resource string) {
	fmt.Fprintf(b, "%-*s | %-*s | %-*s | %-*s\n",
		nameWidth, name,
		startWidth, start,
		durationWidth, duration,
		resourceWidth, resource)
}

// FormatDuration renders a duration given in seconds as "Hh Mm".
// Hours and minutes are floored, so -60 renders as "-1h 59m".
// Values that are not a whole number are returned verbatim.
func FormatDuration(v clist.RawValue) string {
	seconds, ok := v.Int()
	if !ok {
		return v.String()
	}
	hours := floorDiv(seconds, 3600)
	minutes := (seconds - hours*3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// Truncate shortens s to at most n characters
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orNotAvailable(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
