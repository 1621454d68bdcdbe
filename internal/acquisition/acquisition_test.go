package acquisition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"harvest/internal/catalog"
	"harvest/internal/procexec"
	"harvest/internal/services"
)

type fakeRunner struct {
	requests []procexec.Request
	output   string
	err      error
	// populate creates the clone target on success, like git would.
	populate bool
}

func (f *fakeRunner) Run(ctx context.Context, req procexec.Request) (procexec.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return procexec.Result{ExitCode: 128, Output: f.output}, f.err
	}
	if f.populate {
		target := req.Args[len(req.Args)-1]
		if err := os.MkdirAll(target, 0o755); err != nil {
			return procexec.Result{}, err
		}
	}
	return procexec.Result{Output: f.output}, nil
}

func newStage(t *testing.T, runner procexec.Runner, mutate ...func(*Options)) (*Stage, Options) {
	t.Helper()
	base := t.TempDir()
	opts := Options{
		CloneRoot:         filepath.Join(base, "repos"),
		MarkerDir:         filepath.Join(base, "state", "markers"),
		GitBinary:         "git",
		RemoteURLTemplate: "https://github.com/{owner}/{name}.git",
		Depth:             1,
		DiagnosticLines:   2,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	if err := os.MkdirAll(opts.CloneRoot, 0o755); err != nil {
		t.Fatalf("mkdir clone root: %v", err)
	}
	return New(opts, runner, nil), opts
}

func mustRef(t *testing.T, value string) catalog.RepositoryRef {
	t.Helper()
	ref, err := catalog.Parse(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ref
}

func TestAcquireClonesThenReportsAlreadyPresent(t *testing.T) {
	runner := &fakeRunner{populate: true}
	stage, opts := newStage(t, runner)
	ref := mustRef(t, "octocat/Hello-World")

	outcome, err := stage.Acquire(context.Background(), ref)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if outcome != Cloned {
		t.Fatalf("expected Cloned, got %q", outcome)
	}

	outcome, err = stage.Acquire(context.Background(), ref)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if outcome != AlreadyPresent {
		t.Fatalf("expected AlreadyPresent, got %q", outcome)
	}
	if len(runner.requests) != 1 {
		t.Fatalf("expected exactly one clone invocation, got %d", len(runner.requests))
	}

	req := runner.requests[0]
	want := []string{"clone", "--depth", "1", "https://github.com/octocat/Hello-World.git", filepath.Join(opts.CloneRoot, "Hello-World")}
	if !slices.Equal(req.Args, want) {
		t.Fatalf("unexpected clone args:\n got %v\nwant %v", req.Args, want)
	}
	if !slices.Contains(req.Env, "GIT_TERMINAL_PROMPT=0") {
		t.Fatalf("expected terminal prompts disabled, env=%v", req.Env)
	}
}

func TestAcquireFullCloneWhenDepthZero(t *testing.T) {
	runner := &fakeRunner{populate: true}
	stage, _ := newStage(t, runner, func(o *Options) { o.Depth = 0 })

	if _, err := stage.Acquire(context.Background(), mustRef(t, "octocat/Spoon-Knife")); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if slices.Contains(runner.requests[0].Args, "--depth") {
		t.Fatalf("did not expect --depth, got %v", runner.requests[0].Args)
	}
}

func TestAcquireFailureCarriesExcerpt(t *testing.T) {
	runner := &fakeRunner{
		output: "Cloning into 'missing'...\n\nremote: Repository not found.\nfatal: repository 'https://github.com/octocat/missing.git/' not found\n",
		err:    services.Wrap(services.ErrExternalTool, "git clone", "wait", "exit status 128", nil),
	}
	stage, opts := newStage(t, runner)
	ref := mustRef(t, "octocat/missing")

	outcome, err := stage.Acquire(context.Background(), ref)
	if err == nil {
		t.Fatal("expected acquisition error")
	}
	if outcome != "" {
		t.Fatalf("expected empty outcome on failure, got %q", outcome)
	}
	if !errors.Is(err, services.ErrAcquisition) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected acquisition error wrapping tool error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatalf("acquisition error must not be fatal")
	}
	details := services.ErrorDetails(err)
	if details.Ref != "octocat/missing" {
		t.Fatalf("expected ref in details, got %q", details.Ref)
	}
	wantExcerpt := "Cloning into 'missing'...\nremote: Repository not found."
	if details.Excerpt != wantExcerpt {
		t.Fatalf("unexpected excerpt %q", details.Excerpt)
	}
	if _, statErr := os.Stat(filepath.Join(opts.CloneRoot, "missing")); !os.IsNotExist(statErr) {
		t.Fatalf("failed clone must not leave a working copy")
	}
}

func TestAcquireRejectsFileAtTarget(t *testing.T) {
	runner := &fakeRunner{populate: true}
	stage, opts := newStage(t, runner)
	if err := os.WriteFile(filepath.Join(opts.CloneRoot, "Hello-World"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := stage.Acquire(context.Background(), mustRef(t, "octocat/Hello-World"))
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if len(runner.requests) != 0 {
		t.Fatalf("expected no clone attempt")
	}
}

func TestAcquireMarkerModeReclonesIncompleteCopy(t *testing.T) {
	runner := &fakeRunner{populate: true}
	stage, opts := newStage(t, runner, func(o *Options) { o.RequireMarker = true })
	ref := mustRef(t, "octocat/Hello-World")

	leftover := filepath.Join(opts.CloneRoot, "Hello-World")
	if err := os.MkdirAll(leftover, 0o755); err != nil {
		t.Fatalf("mkdir leftover: %v", err)
	}
	stale := filepath.Join(leftover, "partial.pack")
	if err := os.WriteFile(stale, []byte("half"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	outcome, err := stage.Acquire(context.Background(), ref)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if outcome != Cloned {
		t.Fatalf("expected Cloned for incomplete copy, got %q", outcome)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected incomplete copy to be replaced")
	}
	entries, err := os.ReadDir(opts.CloneRoot)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected only the promoted working copy, got %v, %v", entries, err)
	}
	marker := filepath.Join(opts.MarkerDir, "octocat_Hello-World.done")
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected completion marker: %v", err)
	}

	outcome, err = stage.Acquire(context.Background(), ref)
	if err != nil || outcome != AlreadyPresent {
		t.Fatalf("expected AlreadyPresent after marker, got %q, %v", outcome, err)
	}
	if len(runner.requests) != 1 {
		t.Fatalf("expected one clone, got %d", len(runner.requests))
	}
}

func TestAcquireMarkerModeKeepsUnmarkedCopyWhenCloneFails(t *testing.T) {
	runner := &fakeRunner{
		output: "fatal: unable to access 'https://github.com/octocat/Hello-World.git/'\n",
		err:    errors.New("exit status 128"),
	}
	stage, opts := newStage(t, runner, func(o *Options) { o.RequireMarker = true })
	ref := mustRef(t, "octocat/Hello-World")

	readme := filepath.Join(opts.CloneRoot, "Hello-World", "README")
	if err := os.MkdirAll(filepath.Dir(readme), 0o755); err != nil {
		t.Fatalf("mkdir working copy: %v", err)
	}
	if err := os.WriteFile(readme, []byte("Hello World!\n"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	if _, err := stage.Acquire(context.Background(), ref); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected acquisition error, got %v", err)
	}
	data, err := os.ReadFile(readme)
	if err != nil || string(data) != "Hello World!\n" {
		t.Fatalf("expected unmarked working copy to survive failed clone: %q, %v", data, err)
	}
	if len(runner.requests) != 1 {
		t.Fatalf("expected one clone attempt, got %d", len(runner.requests))
	}
	staging := runner.requests[0].Args[len(runner.requests[0].Args)-1]
	if staging == filepath.Join(opts.CloneRoot, "Hello-World") {
		t.Fatalf("marker mode should not clone over the existing working copy")
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Fatalf("expected staging directory %q to be cleaned up", staging)
	}
	entries, err := os.ReadDir(opts.CloneRoot)
	if err != nil {
		t.Fatalf("read clone root: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "Hello-World" {
		t.Fatalf("expected only the original working copy, got %v", entries)
	}
}

func TestAcquireReturnsCancellationUnwrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &fakeRunner{err: context.Canceled}
	stage, _ := newStage(t, runner)

	_, err := stage.Acquire(ctx, mustRef(t, "octocat/Hello-World"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var itemErr *services.ItemError
	if errors.As(err, &itemErr) {
		t.Fatalf("cancellation should not be reported as an item failure")
	}
}

func TestTargetDirUsesRepositoryName(t *testing.T) {
	stage, opts := newStage(t, &fakeRunner{})
	got := stage.TargetDir(mustRef(t, "DvorakDwarf/Infinite-Storage-Glitch"))
	if !strings.HasSuffix(got, "Infinite-Storage-Glitch") || filepath.Dir(got) != opts.CloneRoot {
		t.Fatalf("unexpected target dir %q", got)
	}
}
