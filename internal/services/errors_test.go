package services_test

import (
	"errors"
	"strings"
	"testing"

	"harvest/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "export", "flatten", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"export", "flatten", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"configuration", services.Wrap(services.ErrConfiguration, "catalog", "parse", "bad entry", nil), true},
		{"environment", services.Wrap(services.ErrEnvironment, "controller", "mkdir", "", errors.New("denied")), true},
		{"acquisition", services.NewItemError(services.ErrAcquisition, "acquisition", "a/b", "", errors.New("exit 128")), false},
		{"export", services.NewItemError(services.ErrExport, "export", "a/b", "", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsFatal(tc.err); got != tc.fatal {
				t.Fatalf("IsFatal=%v, want %v", got, tc.fatal)
			}
		})
	}
}

func TestItemErrorCarriesRefAndExcerpt(t *testing.T) {
	cause := errors.New("exit status 128")
	err := services.NewItemError(services.ErrAcquisition, "acquisition", "octocat/missing", "fatal: repository not found", cause)

	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected acquisition marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be retained, got %v", err)
	}
	if !strings.Contains(err.Error(), "octocat/missing") {
		t.Fatalf("expected ref in message, got %q", err.Error())
	}

	details := services.ErrorDetails(err)
	if details.Ref != "octocat/missing" || details.Stage != "acquisition" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if details.Excerpt != "fatal: repository not found" {
		t.Fatalf("unexpected excerpt: %q", details.Excerpt)
	}
	if details.Message != "exit status 128" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
}

func TestErrorDetailsPlainError(t *testing.T) {
	details := services.ErrorDetails(errors.New(" plain failure "))
	if details.Message != "plain failure" || details.Ref != "" {
		t.Fatalf("unexpected details: %#v", details)
	}
}

func TestExcerptKeepsLeadingLines(t *testing.T) {
	output := "Cloning into 'x'...\r\n\nremote: not found\nfatal: repository not found\nline four\nline five\n"
	got := services.Excerpt(output, 3)
	want := "Cloning into 'x'...\nremote: not found\nfatal: repository not found"
	if got != want {
		t.Fatalf("Excerpt mismatch:\n got %q\nwant %q", got, want)
	}
	if all := services.Excerpt(output, 0); strings.Count(all, "\n") != 4 {
		t.Fatalf("expected all five lines, got %q", all)
	}
}
