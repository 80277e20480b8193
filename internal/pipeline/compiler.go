package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandCompiler adapts an external build command to the Compiler boundary.
// The command is run once per library; a "native-static-libs:" note on its
// stderr is captured as the reported link-flag line.
type CommandCompiler struct {
	// Argv is the build command and its arguments.
	Argv []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

const linkLibsNote = "native-static-libs:"

func (c *CommandCompiler) Compile(ctx context.Context, req CompileRequest) (CompileOutcome, error) {
	if len(c.Argv) == 0 {
		// No build command configured: the artifacts are expected to be in
		// place already.
		return CompileOutcome{Ran: true}, nil
	}

	args := append([]string(nil), c.Argv[1:]...)
	cmd := exec.CommandContext(ctx, c.Argv[0], args...)
	cmd.Dir = c.Dir
	cmd.Stdout = os.Stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(),
		"CABI_TARGET="+req.Target.String(),
		"CABI_LINK_ARGS="+strings.Join(req.LeafArgs, " "),
	)
	if req.ForceRebuild {
		cmd.Env = append(cmd.Env, "CABI_FORCE_REBUILD=1")
	}

	err := cmd.Run()
	os.Stderr.Write(stderr.Bytes())
	if err != nil {
		return CompileOutcome{}, fmt.Errorf("command failed: %s: %w", strings.Join(c.Argv, " "), err)
	}

	outcome := CompileOutcome{Ran: true}
	scanner := bufio.NewScanner(bytes.NewReader(stderr.Bytes()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "note:")
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, linkLibsNote); ok {
			outcome.ReportedLinkLibs = strings.TrimSpace(rest)
		}
	}
	return outcome, nil
}
