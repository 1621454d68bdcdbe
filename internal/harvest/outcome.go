package harvest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"harvest/internal/acquisition"
	"harvest/internal/export"
)

// Outcome classifies what happened to one stage of one catalog entry.
type Outcome string

const (
	Cloned          Outcome = "cloned"
	AlreadyPresent  Outcome = "already_present"
	CloneFailed     Outcome = "clone_failed"
	ExportSucceeded Outcome = "export_succeeded"
	ExportFailed    Outcome = "export_failed"
)

// Outcomes lists every outcome in reporting order.
func Outcomes() []Outcome {
	return []Outcome{Cloned, AlreadyPresent, CloneFailed, ExportSucceeded, ExportFailed}
}

// Label renders the outcome for humans, e.g. "Already Present".
func (o Outcome) Label() string {
	if o == "" {
		return "Skipped"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(o), "_", " "))
}

// Failed reports whether the outcome is a stage failure.
func (o Outcome) Failed() bool {
	return o == CloneFailed || o == ExportFailed
}

func fromAcquisition(o acquisition.Outcome) Outcome {
	if o == acquisition.AlreadyPresent {
		return AlreadyPresent
	}
	return Cloned
}

func fromExport(o export.Outcome) Outcome {
	if o == export.Succeeded {
		return ExportSucceeded
	}
	return ExportFailed
}
