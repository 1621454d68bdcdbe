package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrEnvironment   = errors.New("environment error")
	ErrAcquisition   = errors.New("acquisition error")
	ErrExport        = errors.New("export error")
	ErrExternalTool  = errors.New("external tool error")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err aborts the whole run rather than a single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrEnvironment)
}

// ItemError is a per-item failure raised by a pipeline stage. It carries the
// repository reference and a short excerpt of the external tool's output.
type ItemError struct {
	Marker  error
	Stage   string
	Ref     string
	Excerpt string
	Err     error
}

// NewItemError tags err with marker and attaches the ref and diagnostic excerpt.
func NewItemError(marker error, stage, ref, excerpt string, err error) *ItemError {
	if marker == nil {
		marker = ErrExternalTool
	}
	return &ItemError{
		Marker:  marker,
		Stage:   strings.TrimSpace(stage),
		Ref:     strings.TrimSpace(ref),
		Excerpt: strings.TrimSpace(excerpt),
		Err:     err,
	}
}

func (e *ItemError) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Ref, ""))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ItemError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Details summarises a stage error for logs and reports.
type Details struct {
	Stage   string
	Ref     string
	Message string
	Excerpt string
}

// ErrorDetails extracts the stage, ref and excerpt carried by an ItemError.
// Plain errors only populate Message.
func ErrorDetails(err error) Details {
	if err == nil {
		return Details{}
	}
	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		message := ""
		if itemErr.Err != nil {
			message = strings.TrimSpace(itemErr.Err.Error())
		}
		return Details{
			Stage:   itemErr.Stage,
			Ref:     itemErr.Ref,
			Message: message,
			Excerpt: itemErr.Excerpt,
		}
	}
	return Details{Message: strings.TrimSpace(err.Error())}
}

// Excerpt keeps the first maxLines non-blank lines of a diagnostic capture.
// A non-positive maxLines keeps everything.
func Excerpt(output string, maxLines int) string {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
		if maxLines > 0 && len(kept) == maxLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
