package flightlog

import (
	"regexp"
	"strings"
	"time"
)

const ellipsis = "..."

// Abbreviate keeps the head and tail of text within length runes. A zero
// length drops the text and a negative one keeps it whole.
func Abbreviate(text string, length int) string {
	if length == 0 {
		return ""
	}
	r := []rune(text)
	if length < 0 || len(r) <= length {
		return text
	}
	head := length / 2
	start := head - length + len(ellipsis)
	if start < 0 {
		start += len(r)
	}
	start = min(max(start, 0), len(r))
	out := []rune(string(r[:head]) + ellipsis + string(r[start:]))
	if len(out) > length {
		out = out[:length]
	}
	return string(out)
}

var unsafeFileRunes = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SafeFileName replaces everything but ASCII letters and digits with '_'.
func SafeFileName(name string) string {
	return unsafeFileRunes.ReplaceAllString(name, "_")
}

// DateFileName is t formatted for use as a file name prefix.
func DateFileName(t time.Time) string {
	return t.Format("2006-01-02_15_04_05")
}

// FrameFileName names a snapshot after the most recent position in l, keeping
// at most the last four path elements.
func FrameFileName(l *Log, t time.Time) string {
	date := DateFileName(t)
	if l == nil {
		return date
	}
	last, ok := l.Last()
	if !ok {
		return date
	}
	var path []string
	if last.Mission != "" {
		path = strings.Split(last.Mission, ".")
	}
	path = append(path, last.Maneuver)
	elided := strings.Repeat(".", max(len(path)-4, 0))
	if len(path) > 4 {
		path = path[len(path)-4:]
	}
	text := last.Raspador + "." + elided + strings.Join(path, ".")
	safe := SafeFileName(text)
	if len(safe) > 200 {
		safe = safe[:200]
	}
	return date + "_" + safe
}
