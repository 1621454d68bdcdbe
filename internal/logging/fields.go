package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05.000"

func consoleTimestamp(ts time.Time) string {
	return ts.In(time.Local).Format(consoleTimestampLayout)
}

// plainValue renders v without quoting, for subject fields and excerpts.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return consoleTimestamp(v.Time())
	default:
		return v.String()
	}
}

// fieldValue renders one console field. Tool diagnostics and any other
// multi-line value become an indented "| " block matching the run summary;
// single-line values are quoted only when they would be ambiguous.
func fieldValue(key string, v slog.Value) string {
	s := plainValue(v)
	if key == FieldDiagnostics || strings.Contains(s, "\n") {
		return excerptBlock(s)
	}
	switch v.Resolve().Kind() {
	case slog.KindString, slog.KindAny:
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
	}
	return s
}

func excerptBlock(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		b.WriteString("\n        | ")
		b.WriteString(line)
	}
	return b.String()
}

// Stage and subprocess durations are only interesting to the millisecond.
func roundDuration(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return d
	}
	return d.Round(time.Millisecond)
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
