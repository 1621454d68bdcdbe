package logging

import "strings"

// FormatSubject builds the repo/stage subject string used in console output.
func FormatSubject(repo, stage string) string {
	repo = strings.TrimSpace(repo)
	stage = strings.TrimSpace(stage)
	switch {
	case repo != "" && stage != "":
		return repo + " (" + stage + ")"
	case repo != "":
		return repo
	default:
		return stage
	}
}
