// Package install copies built artifacts into their final directory layout
// and maintains the version symlink chain.
package install

import (
	"path/filepath"
	"strings"

	"github.com/cabikit/cabi/internal/target"
)

// Paths is the resolved installation layout. All directories are absolute;
// DestDir, when set, is a staging root prepended to every destination.
type Paths struct {
	DestDir      string
	Prefix       string
	Libdir       string
	Includedir   string
	Bindir       string
	Pkgconfigdir string
	Datadir      string

	// LibdirOverridden and IncludedirOverridden record whether the caller
	// supplied the directory explicitly; the pkg-config generator keeps its
	// symbolic defaults otherwise.
	LibdirOverridden     bool
	IncludedirOverridden bool
}

// DefaultPaths derives the layout from the target's platform defaults.
func DefaultPaths(tgt target.Target) Paths {
	prefix := tgt.DefaultPrefix()
	libdir := filepath.Join(prefix, tgt.DefaultLibdir())
	return Paths{
		Prefix:       prefix,
		Libdir:       libdir,
		Includedir:   filepath.Join(prefix, tgt.DefaultIncludedir()),
		Bindir:       filepath.Join(prefix, "bin"),
		Pkgconfigdir: filepath.Join(libdir, "pkgconfig"),
		Datadir:      filepath.Join(prefix, tgt.DefaultDatadir()),
	}
}

// appendToDestdir joins the staging root with a target path, discarding the
// target's root or drive component so the result never escapes the staging
// root regardless of platform.
func appendToDestdir(destdir, path string) string {
	if destdir == "" {
		return path
	}
	rest := path
	if len(rest) >= 2 && rest[1] == ':' {
		rest = rest[2:]
	}
	rest = strings.TrimLeft(rest, `/\`)
	return filepath.Join(destdir, rest)
}
