// Package capi holds the resolved configuration describing the C-ABI library
// being distributed: naming, semantic version, ABI version policy, header and
// pkg-config metadata, and the extra install targets.
//
// Configuration values arrive already parsed; this package never reads
// manifests or command lines.
package capi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrNoKinds reports a request that asks for no library kind at all.
	ErrNoKinds = errors.New("no library kind requested")

	// ErrNoSharedOnTarget reports a shared-only request on a target that
	// cannot produce shared objects.
	ErrNoSharedOnTarget = errors.New("target cannot produce a shared library")
)

// Version is a semantic version split into its numeric components.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a "major.minor.patch" string.
func ParseVersion(s string) (Version, error) {
	if !semver.IsValid("v" + s) {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	if semver.Canonical("v"+s) != "v"+s {
		return Version{}, fmt.Errorf("version %q is not of the form major.minor.patch", s)
	}
	parts := strings.SplitN(s, ".", 3)
	var v Version
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Patch} {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		*dst = n
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// VersionPolicy selects how many version components end up in the sover
// suffix of a shared library.
type VersionPolicy int

const (
	// PolicyAuto picks the suffix from the leftmost non-zero component,
	// the way semver expresses ABI compatibility.
	PolicyAuto VersionPolicy = iota
	PolicyMajor
	PolicyMajorMinor
	PolicyMajorMinorPatch
)

// Library describes the library artifact itself.
type Library struct {
	Name          string
	Version       Version
	Versioning    bool
	InstallSubdir string // empty means none; non-empty marks plugin-style installs
	VersionSuffix VersionPolicy
	ImportLibrary bool // install the import library and def file on Windows
}

// Sover returns the ABI version suffix for the shared library name.
// It is the single source of truth for both the link-time soname and the
// installed symlink chain.
func (l *Library) Sover() string {
	v := l.Version
	switch l.VersionSuffix {
	case PolicyMajor:
		return strconv.Itoa(v.Major)
	case PolicyMajorMinor:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	case PolicyMajorMinorPatch:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	default:
		switch {
		case v.Major == 0 && v.Minor == 0:
			return fmt.Sprintf("0.0.%d", v.Patch)
		case v.Major == 0:
			return fmt.Sprintf("0.%d", v.Minor)
		default:
			return strconv.Itoa(v.Major)
		}
	}
}

// ApplyTargetPolicy adjusts the configuration for target-mandated overrides.
// Android disallows soname version suffixes, so versioning is forced off
// there no matter what was configured.
func (l *Library) ApplyTargetPolicy(os string) {
	if os == "android" {
		l.Versioning = false
	}
}

// Header describes the installed C header.
type Header struct {
	Name         string
	Subdirectory string
	Enabled      bool
	Generation   bool // false means a pre-built header is shipped as an asset
}

// PkgConfig holds the fields rendered into the pkg-config documents.
type PkgConfig struct {
	Name            string
	Filename        string
	Description     string
	Version         string
	Requires        string // comma separated, may be empty
	RequiresPrivate string
	// StripIncludeComponents drops that many trailing components from the
	// include path in Cflags, flattening a nested header subdirectory.
	StripIncludeComponents int
}

// TargetPaths is one glob-discovered set of files to install.
// From is a glob pattern; To is joined under the canonical directory.
// Generated patterns are rooted at the build output directory instead of the
// project directory.
type TargetPaths struct {
	From      string
	To        string
	Generated bool
}

// Install lists the extra include and data targets.
type Install struct {
	Include []TargetPaths
	Data    []TargetPaths
}

// Config is the complete resolved configuration for one library.
type Config struct {
	Header    Header
	PkgConfig PkgConfig
	Library   Library
	Install   Install
}

// Kinds is the set of requested library kinds.
type Kinds struct {
	Static bool
	Shared bool
}

// ResolveKinds applies the platform override to a request: bare-metal
// targets never produce shared objects. A shared-only request on such a
// target is a configuration error rather than an empty artifact set.
func ResolveKinds(requested Kinds, os string) (Kinds, error) {
	if !requested.Static && !requested.Shared {
		return Kinds{}, ErrNoKinds
	}
	if os == "none" {
		if !requested.Static {
			return Kinds{}, fmt.Errorf("%w: os is %q", ErrNoSharedOnTarget, os)
		}
		requested.Shared = false
	}
	return requested, nil
}

// DefaultKinds returns the library kinds built when none are requested
// explicitly: both, except on targets that only support static linking.
func DefaultKinds(os, env string) Kinds {
	if os == "none" || env == "musl" {
		return Kinds{Static: true}
	}
	return Kinds{Static: true, Shared: true}
}
