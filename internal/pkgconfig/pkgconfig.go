// Package pkgconfig assembles and renders pkg-config documents for the
// produced library, deduplicating flags already contributed by required
// packages.
package pkgconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/install"
	"github.com/cabikit/cabi/internal/ui"
)

// Library is the flag set a resolved package already supplies, as reported
// by the system package-metadata resolver.
type Library struct {
	IncludePaths   []string
	LinkPaths      []string
	Libs           []string
	LinkFiles      []string
	Frameworks     []string
	FrameworkPaths []string
	Defines        map[string]string
	// LdArgs entries are full -Wl,... directives.
	LdArgs []string
}

// Resolver probes the system package metadata for a Requires entry.
// A nil Resolver disables deduplication.
type Resolver interface {
	Probe(name string) (*Library, error)
}

// PkgConfig is a pkg-config document under construction.
type PkgConfig struct {
	prefix     string
	execPrefix string
	libdir     string
	includedir string

	name        string
	description string
	version     string

	requires        []string
	requiresPrivate []string

	libs        []string
	libsPrivate []string
	cflags      []string

	dedupRequires        []*Library
	dedupRequiresPrivate []*Library
}

func splitRequires(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(r))
	}
	return out
}

func probeAll(resolver Resolver, p *ui.Printer, names []string) []*Library {
	if resolver == nil {
		return nil
	}
	var libs []*Library
	for _, name := range names {
		lib, err := resolver.Probe(name)
		if err != nil {
			if p != nil {
				p.Warnf("library not found: %v", err)
			}
			continue
		}
		libs = append(libs, lib)
	}
	return libs
}

// New builds a document with the conventional symbolic defaults:
//
//	prefix=/usr/local
//	exec_prefix=${prefix}
//	includedir=${prefix}/include
//	libdir=${exec_prefix}/lib
//	Libs: -L${libdir} -l<name>
//	Cflags: -I${includedir}/<subdirectory>
func New(cfg *capi.Config, resolver Resolver, p *ui.Printer) *PkgConfig {
	requires := splitRequires(cfg.PkgConfig.Requires)
	requiresPrivate := splitRequires(cfg.PkgConfig.RequiresPrivate)

	libdir := "${libdir}"
	if cfg.Library.InstallSubdir != "" {
		libdir += "/" + cfg.Library.InstallSubdir
	}

	var cflags string
	if cfg.Header.Enabled {
		includedir := "${includedir}"
		if cfg.Header.Subdirectory != "" {
			includedir += "/" + cfg.Header.Subdirectory
		}
		includedir = stripTrailingComponents(includedir, cfg.PkgConfig.StripIncludeComponents)
		cflags = "-I" + canonicalize(includedir)
	}

	return &PkgConfig{
		name:        cfg.PkgConfig.Name,
		description: cfg.PkgConfig.Description,
		version:     cfg.PkgConfig.Version,

		prefix:     "/usr/local",
		execPrefix: "${prefix}",
		includedir: "${prefix}/include",
		libdir:     "${exec_prefix}/lib",

		libs: []string{
			"-L" + canonicalize(libdir),
			"-l" + cfg.Library.Name,
		},
		cflags: []string{cflags},

		requires:        requires,
		requiresPrivate: requiresPrivate,

		dedupRequires:        probeAll(resolver, p, requires),
		dedupRequiresPrivate: probeAll(resolver, p, requiresPrivate),
	}
}

// stripTrailingComponents drops n trailing path components, letting callers
// flatten a nested include hierarchy.
func stripTrailingComponents(path string, n int) string {
	if n <= 0 {
		return path
	}
	parts := strings.Split(path, "/")
	if n >= len(parts) {
		return ""
	}
	return strings.Join(parts[:len(parts)-n], "/")
}

// FromInstallPaths builds the installed-document variant: the real prefix,
// and libdir/includedir rewritten relative to ${prefix} when the caller
// overrode them with a path under the prefix.
func FromInstallPaths(cfg *capi.Config, paths install.Paths, resolver Resolver, p *ui.Printer) *PkgConfig {
	pc := New(cfg, resolver, p)
	pc.prefix = paths.Prefix

	if paths.IncludedirOverridden {
		if suffix, ok := pathUnder(paths.Prefix, paths.Includedir); ok {
			pc.includedir = "${prefix}/" + suffix
		} else {
			pc.includedir = paths.Includedir
		}
	}
	if paths.LibdirOverridden {
		if suffix, ok := pathUnder(paths.Prefix, paths.Libdir); ok {
			pc.libdir = "${prefix}/" + suffix
		} else {
			pc.libdir = paths.Libdir
		}
	}
	return pc
}

// pathUnder reports path relative to prefix when it lies beneath it.
func pathUnder(prefix, path string) (string, bool) {
	rel, err := filepath.Rel(prefix, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Uninstalled derives the "-uninstalled" variant rooted at the build output
// directory, with the library search path pointing straight at ${prefix}.
func (pc *PkgConfig) Uninstalled(output string) *PkgConfig {
	u := *pc
	u.libs = append([]string(nil), pc.libs...)
	u.prefix = output
	u.includedir = "${prefix}/include"
	u.libdir = "${prefix}"
	// The first Libs entry is the search path.
	u.libs[0] = "-L${prefix}"
	return &u
}

// AddLib appends a Libs entry.
func (pc *PkgConfig) AddLib(lib string) *PkgConfig {
	pc.libs = append(pc.libs, lib)
	return pc
}

// AddLibPrivate appends a Libs.private entry.
func (pc *PkgConfig) AddLibPrivate(lib string) *PkgConfig {
	pc.libsPrivate = append(pc.libsPrivate, lib)
	return pc
}

// AddCFlag appends a Cflags entry.
func (pc *PkgConfig) AddCFlag(flag string) *PkgConfig {
	pc.cflags = append(pc.cflags, flag)
	return pc
}

// knownFlags collects every flag the resolved libraries already contribute,
// split into link flags and compile flags.
func knownFlags(libs []*Library) (links, cflags map[string]bool) {
	links = make(map[string]bool)
	cflags = make(map[string]bool)
	for _, lib := range libs {
		for _, p := range lib.IncludePaths {
			links["-I"+p] = true
		}
		for _, f := range lib.LinkFiles {
			links[f] = true
		}
		for _, l := range lib.Libs {
			links["-l"+l] = true
		}
		for _, p := range lib.LinkPaths {
			links["-L"+p] = true
		}
		for _, f := range lib.Frameworks {
			links["-framework "+f] = true
		}
		for _, p := range lib.FrameworkPaths {
			links["-F"+p] = true
		}
		for k, v := range lib.Defines {
			if v != "" {
				links["-D"+k+"="+v] = true
			} else {
				links["-D"+k] = true
			}
		}
		for _, a := range lib.LdArgs {
			cflags[a] = true
		}
	}
	return links, cflags
}

// dedupFlags drops flags already known, except linker directives, which must
// survive every occurrence.
func dedupFlags(known map[string]bool, flags []string) string {
	var kept []string
	for _, f := range flags {
		if !known[f] || strings.HasPrefix(f, "-Wl,") || strings.HasPrefix(f, "/LINK") {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Render produces the document text.
func (pc *PkgConfig) Render() string {
	knownLibs, knownCflags := knownFlags(pc.dedupRequires)
	cflags := dedupFlags(knownCflags, pc.cflags)
	libs := dedupFlags(knownLibs, pc.libs)

	knownLibsPrivate, _ := knownFlags(pc.dedupRequiresPrivate)
	// Public restatement already covers these.
	for _, l := range pc.libs {
		knownLibsPrivate[l] = true
	}
	libsPrivate := dedupFlags(knownLibsPrivate, pc.libsPrivate)

	var b strings.Builder
	fmt.Fprintf(&b, "prefix=%s\n", canonicalize(pc.prefix))
	fmt.Fprintf(&b, "exec_prefix=%s\n", canonicalize(pc.execPrefix))
	fmt.Fprintf(&b, "libdir=%s\n", canonicalize(pc.libdir))
	fmt.Fprintf(&b, "includedir=%s\n", canonicalize(pc.includedir))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Name: %s\n", pc.name)
	fmt.Fprintf(&b, "Description: %s\n", strings.ReplaceAll(pc.description, "\n", " "))
	fmt.Fprintf(&b, "Version: %s\n", pc.version)
	fmt.Fprintf(&b, "Libs: %s\n", libs)
	fmt.Fprintf(&b, "Cflags: %s\n", cflags)
	if len(pc.libsPrivate) > 0 {
		fmt.Fprintf(&b, "Libs.private: %s\n", libsPrivate)
	}
	if len(pc.requires) > 0 {
		fmt.Fprintf(&b, "Requires: %s\n", strings.Join(pc.requires, ", "))
	}
	if len(pc.requiresPrivate) > 0 {
		fmt.Fprintf(&b, "Requires.private: %s\n", strings.Join(pc.requiresPrivate, ", "))
	}
	return b.String()
}
