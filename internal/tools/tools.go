// Package tools drives the platform toolchain helpers that produce Windows
// module-definition and import-library files. Tool locations are explicit
// parameters, never picked up from ambient environment deep in the call
// stack.
package tools

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cabikit/cabi/internal/target"
	"github.com/cabikit/cabi/internal/ui"
)

// Invoker runs the external def/import-library tools.
type Invoker struct {
	UI *ui.Printer

	// Overrides; empty values fall back to the tool name on PATH.
	Dlltool string
	Dumpbin string
	LibExe  string
}

func orDefault(path, name string) string {
	if path != "" {
		return path
	}
	return name
}

func commandFailed(cmd *exec.Cmd, err error) error {
	return fmt.Errorf("command failed: %s: %w", strings.Join(cmd.Args, " "), err)
}

// BuildDefFile produces <name>.def for windows-msvc targets by dumping the
// DLL's export table. Other targets are a no-op.
func (iv *Invoker) BuildDefFile(name string, tgt target.Target, targetDir string) error {
	if tgt.OS != "windows" || tgt.Env != "msvc" {
		return nil
	}
	iv.UI.Status("Building", ".def file using dumpbin")

	txtPath := filepath.Join(targetDir, name+".txt")
	dllName := strings.ReplaceAll(name, "-", "_") + ".dll"

	cmd := exec.Command(orDefault(iv.Dumpbin, "dumpbin"),
		"/EXPORTS", filepath.Join(targetDir, dllName), "/OUT:"+txtPath)
	if err := cmd.Run(); err != nil {
		return commandFailed(cmd, err)
	}

	txt, err := os.Open(txtPath)
	if err != nil {
		return err
	}
	defer txt.Close()

	def, err := os.Create(filepath.Join(targetDir, name+".def"))
	if err != nil {
		return err
	}
	if err := writeExports(txt, def); err != nil {
		def.Close()
		return err
	}
	return def.Close()
}

// writeExports converts dumpbin /EXPORTS output into def-file syntax: skip
// the preamble, then take the symbol name column of each row until the first
// blank line.
func writeExports(r io.Reader, w io.Writer) error {
	if _, err := fmt.Fprintln(w, "EXPORTS"); err != nil {
		return err
	}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if line <= 16 {
			continue
		}
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			break
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\t%s\n", fields[3]); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// BuildImportLib produces the import library for windows targets: dlltool on
// the gnu toolchain, lib.exe on msvc. Other targets are a no-op.
func (iv *Invoker) BuildImportLib(name string, tgt target.Target, targetDir string) error {
	if tgt.OS != "windows" {
		return nil
	}
	if tgt.Env == "gnu" {
		return iv.runDlltool(name, tgt.Arch, targetDir)
	}
	return iv.runLibExe(name, tgt.Arch, targetDir)
}

func (iv *Invoker) runDlltool(name, arch, targetDir string) error {
	iv.UI.Status("Building", "implib using dlltool")

	var binutilsArch string
	switch arch {
	case "x86_64":
		binutilsArch = "i386:x86-64"
	case "x86":
		binutilsArch = "i386"
	default:
		return fmt.Errorf("%w: windows import library for arch %s", target.ErrUnsupported, arch)
	}

	cmd := exec.Command(orDefault(iv.Dlltool, "dlltool"),
		"-m", binutilsArch,
		"-D", name+".dll",
		"-l", filepath.Join(targetDir, name+".dll.a"),
		"-d", filepath.Join(targetDir, name+".def"))
	if err := cmd.Run(); err != nil {
		return commandFailed(cmd, err)
	}
	return nil
}

func (iv *Invoker) runLibExe(name, arch, targetDir string) error {
	iv.UI.Status("Building", "implib using lib")

	var libArch string
	switch arch {
	case "x86_64":
		libArch = "X64"
	case "x86":
		libArch = "IX86"
	default:
		return fmt.Errorf("%w: windows import library for arch %s", target.ErrUnsupported, arch)
	}

	cmd := exec.Command(orDefault(iv.LibExe, "lib"),
		"/DEF:"+filepath.Join(targetDir, name+".def"),
		"/MACHINE:"+libArch,
		"/NAME:"+name+".dll",
		"/OUT:"+filepath.Join(targetDir, name+".dll.lib"))
	if err := cmd.Run(); err != nil {
		return commandFailed(cmd, err)
	}
	return nil
}
