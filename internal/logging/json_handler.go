package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler writes one object per record. Durations are emitted as
// integer milliseconds under "<key>_ms" and tool diagnostics as a list of
// lines, so run logs can be filtered with jq without reparsing strings.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 {
				switch attr.Key {
				case slog.TimeKey:
					attr.Key = "ts"
					if attr.Value.Kind() == slog.KindTime {
						attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
					}
					return attr
				case slog.LevelKey:
					attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
					return attr
				case slog.SourceKey:
					if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
						attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
					}
					return attr
				}
			}
			return jsonField(attr)
		},
	}

	return slog.NewJSONHandler(w, &opts)
}

func jsonField(attr slog.Attr) slog.Attr {
	switch {
	case attr.Value.Kind() == slog.KindDuration:
		return slog.Int64(attr.Key+"_ms", attr.Value.Duration().Milliseconds())
	case attr.Key == FieldDiagnostics && attr.Value.Kind() == slog.KindString:
		lines := strings.Split(strings.TrimRight(attr.Value.String(), "\n"), "\n")
		return slog.Any(attr.Key, lines)
	}
	return attr
}
