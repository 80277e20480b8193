package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/target"
)

func TestCommandCompilerNoCommand(t *testing.T) {
	c := &CommandCompiler{}
	outcome, err := c.Compile(context.Background(), CompileRequest{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !outcome.Ran {
		t.Error("missing command must still report Ran")
	}
}

func TestCommandCompilerCapturesLinkLibs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	c := &CommandCompiler{
		Argv: []string{"sh", "-c", `echo "note: native-static-libs: -lm -ldl" >&2`},
	}
	outcome, err := c.Compile(context.Background(), CompileRequest{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got, want := outcome.ReportedLinkLibs, "-lm -ldl"; got != want {
		t.Errorf("ReportedLinkLibs = %q, want %q", got, want)
	}
}

func TestCommandCompilerEnvironment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env.txt")

	c := &CommandCompiler{
		Argv: []string{"sh", "-c",
			`printf '%s\n%s\n%s\n' "$CABI_TARGET" "$CABI_LINK_ARGS" "$CABI_FORCE_REBUILD" > ` + envFile},
	}
	req := CompileRequest{
		Config:       &capi.Config{Library: capi.Library{Name: "foo"}},
		Target:       target.Target{Arch: "x86_64", OS: "linux", Env: "gnu"},
		LeafArgs:     []string{"-Wl,-soname,libfoo.so.1"},
		ForceRebuild: true,
	}
	if _, err := c.Compile(context.Background(), req); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	data, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("env capture = %q", data)
	}
	if lines[0] != req.Target.String() {
		t.Errorf("CABI_TARGET = %q, want %q", lines[0], req.Target.String())
	}
	if lines[1] != "-Wl,-soname,libfoo.so.1" {
		t.Errorf("CABI_LINK_ARGS = %q", lines[1])
	}
	if lines[2] != "1" {
		t.Errorf("CABI_FORCE_REBUILD = %q, want 1", lines[2])
	}
}

func TestCommandCompilerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	c := &CommandCompiler{Argv: []string{"sh", "-c", "exit 3"}}
	if _, err := c.Compile(context.Background(), CompileRequest{}); err == nil {
		t.Error("failing command reported success")
	}
}
