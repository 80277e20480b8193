// Package artifact computes the expected output file set for a library build:
// the platform-correct static/shared/import library names, the Windows-only
// companions, the pkg-config document path and the header path.
package artifact

import (
	"fmt"
	"path/filepath"

	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/target"
)

// FilePair is a discovered source file and its install sub-path.
type FilePair struct {
	From string
	To   string
}

// Set enumerates every file a build is expected to produce for one library.
// ImportLib, DebugInfo and Def are populated only on the Windows family;
// the constructor enforces that.
type Set struct {
	Name   string
	Target target.Target
	Class  target.Class

	Header    string // empty unless header generation is enabled
	StaticLib string // empty unless the static kind was requested
	SharedLib string // empty unless the shared kind was requested
	ImportLib string
	DebugInfo string
	Def       string
	PkgConfig string

	Include []FilePair
	Data    []FilePair

	// UnixNaming reports artifacts under Unix-style names on Windows for
	// interoperability with Meson-driven builds. Only the reported output
	// names change, never the on-disk build names.
	UnixNaming bool
}

type fileNames struct {
	staticLib string
	sharedLib string
	importLib string
	debugInfo string
	def       string
}

func namesFor(class target.Class, name, dir string) fileNames {
	switch class.Family {
	case target.FamilyMachO:
		return fileNames{
			staticLib: filepath.Join(dir, "lib"+name+".a"),
			sharedLib: filepath.Join(dir, "lib"+name+".dylib"),
		}
	case target.FamilyWindows:
		n := fileNames{
			sharedLib: filepath.Join(dir, name+".dll"),
			def:       filepath.Join(dir, name+".def"),
		}
		if class.MSVC {
			n.staticLib = filepath.Join(dir, name+".lib")
			n.importLib = filepath.Join(dir, name+".dll.lib")
			n.debugInfo = filepath.Join(dir, name+".pdb")
		} else {
			n.staticLib = filepath.Join(dir, "lib"+name+".a")
			n.importLib = filepath.Join(dir, name+".dll.a")
		}
		return n
	default:
		return fileNames{
			staticLib: filepath.Join(dir, "lib"+name+".a"),
			sharedLib: filepath.Join(dir, "lib"+name+".so"),
		}
	}
}

// New computes the output file set for name under targetDir. It fails for
// targets outside the classification table and for requests naming no
// library kind.
func New(name string, tgt target.Target, targetDir string, kinds capi.Kinds, cfg *capi.Config, unixNaming bool) (*Set, error) {
	class, err := tgt.Classify()
	if err != nil {
		return nil, err
	}
	kinds, err = capi.ResolveKinds(kinds, tgt.OS)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", name, err)
	}

	s := &Set{
		Name:       name,
		Target:     tgt,
		Class:      class,
		PkgConfig:  filepath.Join(targetDir, cfg.PkgConfig.Filename+".pc"),
		UnixNaming: unixNaming,
	}
	if cfg.Header.Enabled && cfg.Header.Generation {
		s.Header = filepath.Join(targetDir, cfg.Header.Name+".h")
	}

	names := namesFor(class, name, targetDir)
	if kinds.Static {
		s.StaticLib = names.staticLib
	}
	if kinds.Shared {
		s.SharedLib = names.sharedLib
	}
	s.ImportLib = names.importLib
	s.DebugInfo = names.debugInfo
	s.Def = names.def

	return s, nil
}

// StaticOutputFileName is the file name the static library is installed
// under. With Unix naming enabled, Windows static libraries are reported as
// lib<name>.a.
func (s *Set) StaticOutputFileName() string {
	if s.StaticLib == "" {
		return ""
	}
	if s.Class.Family == target.FamilyWindows && s.UnixNaming {
		return "lib" + s.Name + ".a"
	}
	return filepath.Base(s.StaticLib)
}

// SharedOutputFileName is the file name the shared library is installed
// under.
func (s *Set) SharedOutputFileName() string {
	if s.SharedLib == "" {
		return ""
	}
	if s.UnixNaming {
		return "lib" + s.Name + ".dll"
	}
	return filepath.Base(s.SharedLib)
}

// DebugInfoFileName places the debug-info artifact next to the library on
// Unix-family targets and next to the binary on Windows.
func (s *Set) DebugInfoFileName(bindir, libdir string) string {
	if s.DebugInfo == "" {
		return ""
	}
	if s.Class.Family == target.FamilyWindows {
		return filepath.Join(bindir, filepath.Base(s.DebugInfo))
	}
	return filepath.Join(libdir, filepath.Base(s.DebugInfo))
}
