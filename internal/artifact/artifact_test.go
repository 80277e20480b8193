package artifact

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/target"
)

func testConfig(name string) *capi.Config {
	return &capi.Config{
		Header: capi.Header{
			Name:         name,
			Subdirectory: name,
			Enabled:      true,
			Generation:   true,
		},
		PkgConfig: capi.PkgConfig{
			Name:     name,
			Filename: name,
			Version:  "0.1.0",
		},
		Library: capi.Library{
			Name:       name,
			Version:    capi.Version{Minor: 1},
			Versioning: true,
		},
	}
}

func bothKinds() capi.Kinds { return capi.Kinds{Static: true, Shared: true} }

func TestNewUnix(t *testing.T) {
	for _, os := range []string{"linux", "freebsd", "dragonfly", "netbsd", "openbsd",
		"android", "haiku", "illumos", "emscripten", "hurd"} {
		set, err := New("ferris", target.Target{Arch: "x86_64", OS: os}, "/foo/bar",
			bothKinds(), testConfig("ferris"), false)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", os, err)
		}
		if got, want := set.StaticLib, filepath.Join("/foo/bar", "libferris.a"); got != want {
			t.Errorf("%s static = %q, want %q", os, got, want)
		}
		if got, want := set.SharedLib, filepath.Join("/foo/bar", "libferris.so"); got != want {
			t.Errorf("%s shared = %q, want %q", os, got, want)
		}
		if set.ImportLib != "" || set.DebugInfo != "" || set.Def != "" {
			t.Errorf("%s must not produce windows artifacts: %+v", os, set)
		}
		if got, want := set.PkgConfig, filepath.Join("/foo/bar", "ferris.pc"); got != want {
			t.Errorf("%s pc = %q, want %q", os, got, want)
		}
		if got, want := set.Header, filepath.Join("/foo/bar", "ferris.h"); got != want {
			t.Errorf("%s header = %q, want %q", os, got, want)
		}
	}
}

func TestNewApple(t *testing.T) {
	for _, os := range []string{"macos", "ios", "tvos", "visionos"} {
		set, err := New("ferris", target.Target{Arch: "aarch64", OS: os}, "/foo/bar",
			bothKinds(), testConfig("ferris"), false)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", os, err)
		}
		if got, want := set.StaticLib, filepath.Join("/foo/bar", "libferris.a"); got != want {
			t.Errorf("%s static = %q, want %q", os, got, want)
		}
		if got, want := set.SharedLib, filepath.Join("/foo/bar", "libferris.dylib"); got != want {
			t.Errorf("%s shared = %q, want %q", os, got, want)
		}
	}
}

func TestNewWindowsMSVC(t *testing.T) {
	set, err := New("ferris", target.Target{Arch: "x86_64", OS: "windows", Env: "msvc"},
		"/foo/bar", bothKinds(), testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	wants := map[string]string{
		"static": filepath.Join("/foo/bar", "ferris.lib"),
		"shared": filepath.Join("/foo/bar", "ferris.dll"),
		"implib": filepath.Join("/foo/bar", "ferris.dll.lib"),
		"pdb":    filepath.Join("/foo/bar", "ferris.pdb"),
		"def":    filepath.Join("/foo/bar", "ferris.def"),
	}
	gots := map[string]string{
		"static": set.StaticLib,
		"shared": set.SharedLib,
		"implib": set.ImportLib,
		"pdb":    set.DebugInfo,
		"def":    set.Def,
	}
	for k, want := range wants {
		if gots[k] != want {
			t.Errorf("msvc %s = %q, want %q", k, gots[k], want)
		}
	}
}

func TestNewWindowsGNU(t *testing.T) {
	set, err := New("ferris", target.Target{Arch: "x86_64", OS: "windows", Env: "gnu"},
		"/foo/bar", bothKinds(), testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got, want := set.StaticLib, filepath.Join("/foo/bar", "libferris.a"); got != want {
		t.Errorf("gnu static = %q, want %q", got, want)
	}
	if got, want := set.SharedLib, filepath.Join("/foo/bar", "ferris.dll"); got != want {
		t.Errorf("gnu shared = %q, want %q", got, want)
	}
	if got, want := set.ImportLib, filepath.Join("/foo/bar", "ferris.dll.a"); got != want {
		t.Errorf("gnu implib = %q, want %q", got, want)
	}
	if set.DebugInfo != "" {
		t.Errorf("gnu must not produce a pdb, got %q", set.DebugInfo)
	}
	if got, want := set.Def, filepath.Join("/foo/bar", "ferris.def"); got != want {
		t.Errorf("gnu def = %q, want %q", got, want)
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New("ferris", target.Target{Arch: "x86_64", OS: "plan9"}, "/foo/bar",
		bothKinds(), testConfig("ferris"), false)
	if !errors.Is(err, target.ErrUnsupported) {
		t.Errorf("New(plan9) = %v, want ErrUnsupported", err)
	}
}

func TestNewBareMetal(t *testing.T) {
	set, err := New("ferris", target.Target{Arch: "x86_64", OS: "none"}, "/foo/bar",
		bothKinds(), testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New(none) failed: %v", err)
	}
	if set.SharedLib != "" {
		t.Errorf("bare metal produced a shared lib: %q", set.SharedLib)
	}
	if set.StaticLib == "" {
		t.Error("bare metal must still produce a static lib")
	}

	// Shared-only on bare metal is a configuration error.
	if _, err := New("ferris", target.Target{Arch: "x86_64", OS: "none"}, "/foo/bar",
		capi.Kinds{Shared: true}, testConfig("ferris"), false); err == nil {
		t.Error("shared-only bare-metal request succeeded, want error")
	}
}

func TestKindSelection(t *testing.T) {
	set, err := New("ferris", target.Target{Arch: "x86_64", OS: "linux"}, "/foo/bar",
		capi.Kinds{Static: true}, testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if set.SharedLib != "" {
		t.Errorf("static-only request produced %q", set.SharedLib)
	}

	if _, err := New("ferris", target.Target{Arch: "x86_64", OS: "linux"}, "/foo/bar",
		capi.Kinds{}, testConfig("ferris"), false); err == nil {
		t.Error("empty kind request succeeded, want error")
	}
}

func TestOutputFileNames(t *testing.T) {
	winGNU := target.Target{Arch: "x86_64", OS: "windows", Env: "gnu"}

	set, err := New("ferris", winGNU, "/foo/bar", bothKinds(), testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := set.StaticOutputFileName(); got != "libferris.a" {
		t.Errorf("gnu static output = %q", got)
	}
	if got := set.SharedOutputFileName(); got != "ferris.dll" {
		t.Errorf("gnu shared output = %q", got)
	}

	// Unix naming rewrites the reported names only.
	set, err = New("ferris", target.Target{Arch: "x86_64", OS: "windows", Env: "msvc"},
		"/foo/bar", bothKinds(), testConfig("ferris"), true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := set.StaticOutputFileName(); got != "libferris.a" {
		t.Errorf("meson static output = %q, want libferris.a", got)
	}
	if got := set.SharedOutputFileName(); got != "libferris.dll" {
		t.Errorf("meson shared output = %q, want libferris.dll", got)
	}
	if got, want := set.StaticLib, filepath.Join("/foo/bar", "ferris.lib"); got != want {
		t.Errorf("meson naming must not change the on-disk name: %q", got)
	}
}

func TestDebugInfoFileName(t *testing.T) {
	set, err := New("ferris", target.Target{Arch: "x86_64", OS: "windows", Env: "msvc"},
		"/foo/bar", bothKinds(), testConfig("ferris"), false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got := set.DebugInfoFileName("/prefix/bin", "/prefix/lib")
	if want := filepath.Join("/prefix/bin", "ferris.pdb"); got != want {
		t.Errorf("msvc debug info dest = %q, want %q", got, want)
	}
}
