package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"harvest/internal/harvest"
	"harvest/internal/preflight"
)

// tone decides how a status line is coloured on a terminal.
type tone int

const (
	toneNeutral tone = iota
	toneGood
	toneAttention
	toneBad
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func (t tone) color() string {
	switch t {
	case toneGood:
		return ansiGreen
	case toneAttention:
		return ansiYellow
	case toneBad:
		return ansiRed
	default:
		return ""
	}
}

// renderStatusLine prints "label: [BADGE] message" padded so badges line up.
func renderStatusLine(label, badge string, t tone, message string, colorize bool) string {
	text := "[" + strings.ToUpper(badge) + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		if c := t.color(); c != "" {
			return c + line + ansiReset
		}
	}
	return line
}

// renderCheckLine renders one preflight result. Directories that do not
// exist yet but can be created still pass.
func renderCheckLine(result preflight.Result, colorize bool) string {
	if !result.Passed {
		return renderStatusLine(result.Name, "blocked", toneBad, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, "ready", toneGood, result.Detail, colorize)
}

// renderItemLine renders one repository by the outcome that matters most:
// the failing stage if any, otherwise the last stage that ran.
func renderItemLine(item harvest.ItemResult, message string, colorize bool) string {
	outcome := item.Acquisition
	if item.Export != "" && (item.Export.Failed() || !outcome.Failed()) {
		outcome = item.Export
	}
	return renderStatusLine(item.Ref.String(), outcome.Label(), outcomeTone(outcome), message, colorize)
}

func outcomeTone(o harvest.Outcome) tone {
	switch {
	case o.Failed():
		return toneBad
	case o == harvest.AlreadyPresent:
		return toneNeutral
	default:
		return toneGood
	}
}

func renderCancelledLine(processed, total int, colorize bool) string {
	return renderStatusLine("Run", "cancelled",
		toneAttention, fmt.Sprintf("stopped after %d of %d repositories", processed, total), colorize)
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
