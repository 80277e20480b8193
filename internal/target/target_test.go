package target

import (
	"errors"
	"strings"
	"testing"

	"github.com/cabikit/cabi/internal/capi"
)

func TestClassify(t *testing.T) {
	elf := []string{"none", "linux", "freebsd", "dragonfly", "netbsd", "openbsd",
		"android", "haiku", "illumos", "emscripten", "hurd"}
	for _, os := range elf {
		class, err := Target{Arch: "x86_64", OS: os}.Classify()
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", os, err)
		}
		if class.Family != FamilyElf {
			t.Errorf("Classify(%s) = %v, want elf", os, class.Family)
		}
	}

	for _, os := range []string{"macos", "ios", "tvos", "visionos"} {
		class, err := Target{Arch: "aarch64", OS: os}.Classify()
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", os, err)
		}
		if class.Family != FamilyMachO {
			t.Errorf("Classify(%s) = %v, want mach-o", os, class.Family)
		}
	}

	class, err := Target{Arch: "x86_64", OS: "windows", Env: "msvc"}.Classify()
	if err != nil {
		t.Fatalf("Classify(windows-msvc) failed: %v", err)
	}
	if class.Family != FamilyWindows || !class.MSVC {
		t.Errorf("Classify(windows-msvc) = %+v, want windows msvc", class)
	}

	class, err = Target{Arch: "x86_64", OS: "windows", Env: "gnu"}.Classify()
	if err != nil {
		t.Fatalf("Classify(windows-gnu) failed: %v", err)
	}
	if class.Family != FamilyWindows || class.MSVC {
		t.Errorf("Classify(windows-gnu) = %+v, want windows gnu", class)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	for _, tgt := range []Target{
		{Arch: "x86_64", OS: "plan9"},
		{Arch: "x86_64", OS: "windows", Env: "cygwin"},
		{Arch: "x86_64", OS: ""},
	} {
		if _, err := tgt.Classify(); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Classify(%s-%s) = %v, want ErrUnsupported", tgt.OS, tgt.Env, err)
		}
	}
}

func TestDefaults(t *testing.T) {
	if got := (Target{OS: "windows"}).DefaultPrefix(); got != "c:/" {
		t.Errorf("windows prefix = %q, want c:/", got)
	}
	if got := (Target{OS: "haiku"}).DefaultPrefix(); got != "/boot/system/non-packaged" {
		t.Errorf("haiku prefix = %q", got)
	}
	if got := (Target{OS: "linux"}).DefaultPrefix(); got != "/usr/local" {
		t.Errorf("linux prefix = %q, want /usr/local", got)
	}

	if got := (Target{OS: "haiku"}).DefaultDatadir(); got != "data" {
		t.Errorf("haiku datadir = %q, want data", got)
	}
	if got := (Target{OS: "linux"}).DefaultDatadir(); got != "share" {
		t.Errorf("linux datadir = %q, want share", got)
	}
	if got := (Target{OS: "haiku"}).DefaultIncludedir(); got != "develop/headers" {
		t.Errorf("haiku includedir = %q", got)
	}
	if got := (Target{OS: "linux"}).DefaultIncludedir(); got != "include" {
		t.Errorf("linux includedir = %q, want include", got)
	}

	// An explicitly selected target always gets the plain libdir.
	if got := (Target{OS: "linux", Overridden: true}).DefaultLibdir(); got != "lib" {
		t.Errorf("overridden libdir = %q, want lib", got)
	}
	if got := (Target{OS: "freebsd"}).DefaultLibdir(); got != "lib" {
		t.Errorf("freebsd libdir = %q, want lib", got)
	}
}

func TestParseTriple(t *testing.T) {
	tgt, err := ParseTriple("x86_64-linux-gnu")
	if err != nil {
		t.Fatalf("ParseTriple failed: %v", err)
	}
	want := Target{Arch: "x86_64", OS: "linux", Env: "gnu", Overridden: true}
	if tgt != want {
		t.Errorf("ParseTriple = %+v, want %+v", tgt, want)
	}

	if _, err := ParseTriple("x86_64"); err == nil {
		t.Error("ParseTriple(x86_64) succeeded, want error")
	}
	if _, err := ParseTriple("x86_64-plan9"); err == nil {
		t.Error("ParseTriple of an unsupported OS succeeded, want error")
	}
}

func TestSharedObjectLinkArgs(t *testing.T) {
	lib := &capi.Library{
		Name:       "foo",
		Version:    capi.Version{Major: 1, Minor: 2, Patch: 3},
		Versioning: true,
	}

	got := Target{OS: "linux"}.SharedObjectLinkArgs(lib, "/usr/local/lib", "/tmp/out")
	if len(got) != 1 || got[0] != "-Wl,-soname,libfoo.so.1" {
		t.Errorf("linux link args = %v", got)
	}

	unversioned := *lib
	unversioned.Versioning = false
	got = Target{OS: "linux"}.SharedObjectLinkArgs(&unversioned, "/usr/local/lib", "/tmp/out")
	if len(got) != 1 || got[0] != "-Wl,-soname,libfoo.so" {
		t.Errorf("unversioned linux link args = %v", got)
	}

	// Android never embeds the version in the soname.
	got = Target{OS: "android"}.SharedObjectLinkArgs(lib, "/usr/local/lib", "/tmp/out")
	if len(got) != 1 || got[0] != "-Wl,-soname,libfoo.so" {
		t.Errorf("android link args = %v", got)
	}

	got = Target{OS: "macos"}.SharedObjectLinkArgs(lib, "/usr/local/lib", "/tmp/out")
	if len(got) != 2 {
		t.Fatalf("macos link args = %v, want 2 entries", got)
	}
	wantInstallName := "-Wl,-install_name,/usr/local/lib/libfoo.1.dylib,-current_version,1.2.3,-compatibility_version,1"
	if got[0] != wantInstallName {
		t.Errorf("macos install_name = %q, want %q", got[0], wantInstallName)
	}
	if got[1] != "-Wl,-headerpad_max_install_names" {
		t.Errorf("macos extra arg = %q", got[1])
	}

	got = Target{OS: "windows", Env: "gnu"}.SharedObjectLinkArgs(lib, "/usr/local/lib", "/tmp/out")
	if len(got) != 1 || !strings.HasPrefix(got[0], "-Wl,--output-def,") || !strings.HasSuffix(got[0], "foo.def") {
		t.Errorf("windows-gnu link args = %v", got)
	}

	// Emscripten has no dynamic linking flags.
	if got := (Target{OS: "emscripten"}).SharedObjectLinkArgs(lib, "/usr/local/lib", "/tmp/out"); len(got) != 0 {
		t.Errorf("emscripten link args = %v, want none", got)
	}
}
