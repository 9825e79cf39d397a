package core

import (
	"regexp"
	"strings"
	"time"
)

var nonWordRegex = regexp.MustCompile(`\W+`)

// NowFunc is the clock used when none is injected.
var NowFunc = time.Now // mockable

// Clock returns the current time. Stores take one so tests can pin created_at.
type Clock func() time.Time

// UnixNow returns the clock's time as unix seconds, falling back to NowFunc.
func (c Clock) UnixNow() int64 {
	if c == nil {
		return NowFunc().Unix()
	}
	return c().Unix()
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify lowers s and replaces runs of non word characters with a dash.
func Slugify(s string) string {
	slug := nonWordRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}
