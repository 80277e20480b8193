// Package fingerprint decides whether the derived artifacts (pkg-config
// documents, header, def/import-library files) must be regenerated, by
// content-hashing the configuration and every tracked build artifact.
//
// The compiler itself always runs; the fingerprint only gates the secondary
// generation step.
package fingerprint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/cespare/xxhash/v2"

	"github.com/cabikit/cabi/internal/artifact"
	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/install"
)

// Record is the persisted state of one library's previous run. The hash is
// stored as a string because the cache format has no unsigned 64-bit
// numbers; StaticLibs is the compiler-reported native link-flag list, kept
// across runs so a cached run can still render pkg-config data.
type Record struct {
	Hash       string   `toml:"hash"`
	StaticLibs []string `toml:"static_libs"`
}

// Fingerprint hashes one library's configuration and tracked artifacts.
type Fingerprint struct {
	name       string
	rootOutput string
	targets    *artifact.Set
	library    capi.Library
	layout     install.Paths

	// StaticLibs is carried into the stored Record.
	StaticLibs []string
}

func New(name, rootOutput string, targets *artifact.Set, library capi.Library, layout install.Paths) *Fingerprint {
	return &Fingerprint{
		name:       name,
		rootOutput: rootOutput,
		targets:    targets,
		library:    library,
		layout:     layout,
	}
}

// Path is the per-library cache file. The library name is part of the file
// name because several libraries may share one output directory.
func (f *Fingerprint) Path() string {
	return filepath.Join(f.rootOutput, fmt.Sprintf("cabi-%s.cache", f.name))
}

// Hash computes the current fingerprint: the configuration and layout first,
// then the bytes of every tracked artifact in fixed order (header, static
// lib, shared lib). A missing tracked artifact leaves the fingerprint
// undefined (ok = false) so a stale hash can never match.
func (f *Fingerprint) Hash() (hash string, ok bool, err error) {
	h := xxhash.New()
	fmt.Fprintf(h, "%#v\n%#v\n", f.library, f.layout)

	var paths []string
	if f.targets.Header != "" {
		paths = append(paths, f.targets.Header)
	}
	if f.targets.StaticLib != "" {
		paths = append(paths, f.targets.StaticLib)
	}
	if f.targets.SharedLib != "" {
		paths = append(paths, f.targets.SharedLib)
	}

	for _, path := range paths {
		buf, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("fingerprint %s: %w", path, err)
		}
		h.Write(buf)
	}

	return fmt.Sprintf("%d", h.Sum64()), true, nil
}

// LoadPrevious reads the stored record. A missing or unparsable file is an
// error; callers treat it as the pristine state.
func (f *Fingerprint) LoadPrevious() (*Record, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path(), err)
	}
	return &rec, nil
}

// IsValid reports whether the previous and current fingerprints both exist
// and are bit-equal.
func (f *Fingerprint) IsValid() bool {
	prev, err := f.LoadPrevious()
	if err != nil {
		return false
	}
	current, ok, err := f.Hash()
	if err != nil || !ok {
		return false
	}
	return prev.Hash == current
}

// Store persists the current fingerprint and the static-libs side channel,
// replacing any previous record wholesale. An undefined fingerprint stores
// nothing.
func (f *Fingerprint) Store() error {
	hash, ok, err := f.Hash()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data, err := toml.Marshal(Record{Hash: hash, StaticLibs: f.StaticLibs})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path(), data, 0o644); err != nil {
		return fmt.Errorf("store %s: %w", f.Path(), err)
	}
	return nil
}
