package export

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"harvest/internal/procexec"
	"harvest/internal/services"
)

type fakeRunner struct {
	requests []procexec.Request
	output   string
	err      error
}

func (f *fakeRunner) Run(_ context.Context, req procexec.Request) (procexec.Result, error) {
	f.requests = append(f.requests, req)
	return procexec.Result{Output: f.output}, f.err
}

func TestArtifactPathIsDeterministic(t *testing.T) {
	first := ArtifactPath("/data/exports", "octocat_Hello-World")
	second := ArtifactPath("/data/exports", "octocat_Hello-World")
	if first != second {
		t.Fatalf("expected identical paths, got %q and %q", first, second)
	}
	if first != filepath.Join("/data/exports", "octocat_Hello-World.txt") {
		t.Fatalf("unexpected artifact path %q", first)
	}
}

func TestExportSubstitutesPlaceholders(t *testing.T) {
	runner := &fakeRunner{}
	stage := New(Options{
		ExportRoot: "/data/exports",
		Binary:     "repomix",
		Args:       []string{"--style", "plain", "--output", "{output}", "{input}"},
	}, runner, nil)

	outcome, err := stage.Export(context.Background(), "/data/repos/Hello-World", "octocat_Hello-World")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if outcome != Succeeded {
		t.Fatalf("expected Succeeded, got %q", outcome)
	}
	want := []string{"--style", "plain", "--output", "/data/exports/octocat_Hello-World.txt", "/data/repos/Hello-World"}
	if !slices.Equal(runner.requests[0].Args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", runner.requests[0].Args, want)
	}
	if runner.requests[0].Binary != "repomix" {
		t.Fatalf("unexpected binary %q", runner.requests[0].Binary)
	}
}

func TestExportPlaceholderInsideArgument(t *testing.T) {
	runner := &fakeRunner{}
	stage := New(Options{
		ExportRoot: "/out",
		Binary:     "flatten",
		Args:       []string{"--dest={output}", "{input}"},
	}, runner, nil)

	if _, err := stage.Export(context.Background(), "/src/repo", "o_repo"); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := runner.requests[0].Args[0]; got != "--dest=/out/o_repo.txt" {
		t.Fatalf("unexpected substituted arg %q", got)
	}
}

func TestExportFailureIsTagged(t *testing.T) {
	runner := &fakeRunner{
		output: "Error: no files matched\nstack line\nanother\n",
		err:    services.Wrap(services.ErrExternalTool, "flatten", "wait", "exit status 1", nil),
	}
	stage := New(Options{
		ExportRoot:      "/out",
		Binary:          "flatten",
		Args:            []string{"{input}", "{output}"},
		DiagnosticLines: 1,
	}, runner, nil)

	ctx := services.WithRepo(context.Background(), "octocat/Hello-World")
	outcome, err := stage.Export(ctx, "/src/Hello-World", "octocat_Hello-World")
	if outcome != Failed {
		t.Fatalf("expected Failed, got %q", outcome)
	}
	if !errors.Is(err, services.ErrExport) {
		t.Fatalf("expected ErrExport, got %v", err)
	}
	details := services.ErrorDetails(err)
	if details.Ref != "octocat/Hello-World" {
		t.Fatalf("expected ref from context, got %q", details.Ref)
	}
	if details.Excerpt != "Error: no files matched" {
		t.Fatalf("unexpected excerpt %q", details.Excerpt)
	}
}
