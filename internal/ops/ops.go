// Package ops implements the engine operations over the snapshot store:
// save, list, context assembly, relevance search, session bookkeeping,
// and maintenance. Each operation takes an Input struct, validates before
// touching the store, and returns an Output struct or a coded error.
package ops

import (
	"fmt"
	"time"
)

// Listing limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 100

	DefaultSessionLimit = 20
	MaxSessionLimit     = 100

	DefaultSearchResults = 5
	MaxSearchResults     = 50

	DefaultKeepRecent = 5
)

// clampLimit bounds a listing limit to [1, max], applying def when unset.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// formatTS renders a Unix timestamp as a UTC string with second precision.
func formatTS(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04:05")
}

// relativeTime renders the age of a timestamp as a short label ("2h ago").
func relativeTime(now, unix int64) string {
	d := time.Duration(now-unix) * time.Second
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
