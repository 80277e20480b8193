// Package target classifies a compilation target triple into one of the
// modeled library families and supplies per-platform installation defaults.
//
// The (arch, os, env) strings come from the external compiler's configuration
// dump; everything downstream matches on the classified family, never on the
// raw strings.
package target

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cabikit/cabi/internal/capi"
)

// ErrUnsupported reports an (os, env) combination absent from the
// classification table. There is no fallback family.
var ErrUnsupported = errors.New("unsupported target")

// Family is the library family a target belongs to.
type Family int

const (
	// FamilyElf covers the platforms using lib<name>.so shared objects.
	FamilyElf Family = iota + 1
	// FamilyMachO covers the Apple platforms using lib<name>.dylib.
	FamilyMachO
	// FamilyWindows covers the PE platforms using <name>.dll.
	FamilyWindows
)

func (f Family) String() string {
	switch f {
	case FamilyElf:
		return "elf"
	case FamilyMachO:
		return "mach-o"
	case FamilyWindows:
		return "windows"
	default:
		return "invalid"
	}
}

// Class is the classification of a target: its family plus, for Windows,
// which toolchain flavor applies.
type Class struct {
	Family Family
	// MSVC is meaningful only when Family is FamilyWindows.
	MSVC bool
}

// Target is a compilation target triple.
type Target struct {
	Arch string
	OS   string
	Env  string
	// Overridden is set when the target was requested explicitly instead of
	// defaulting to the build host.
	Overridden bool
}

func (t Target) String() string {
	if t.Env == "" {
		return t.Arch + "-" + t.OS
	}
	return t.Arch + "-" + t.OS + "-" + t.Env
}

// Classify maps the target onto its library family. Any (os, env) pair
// outside the table is a hard error.
func (t Target) Classify() (Class, error) {
	switch t.OS {
	case "none", "linux", "freebsd", "dragonfly", "netbsd", "openbsd",
		"android", "haiku", "illumos", "emscripten", "hurd":
		return Class{Family: FamilyElf}, nil
	case "macos", "ios", "tvos", "visionos":
		return Class{Family: FamilyMachO}, nil
	case "windows":
		switch t.Env {
		case "msvc":
			return Class{Family: FamilyWindows, MSVC: true}, nil
		case "gnu":
			return Class{Family: FamilyWindows}, nil
		}
	}
	return Class{}, fmt.Errorf("%w: %s-%s", ErrUnsupported, t.OS, t.Env)
}

// goarch maps Go architecture names onto the compiler's names, so the build
// host can be compared against the target triple.
var goarch = map[string]string{
	"amd64": "x86_64",
	"386":   "x86",
	"arm64": "aarch64",
	"arm":   "arm",
}

// goos maps Go OS names onto the compiler's names.
var goos = map[string]string{
	"darwin": "macos",
}

func hostOS() string {
	if v, ok := goos[runtime.GOOS]; ok {
		return v
	}
	return runtime.GOOS
}

func hostArch() string {
	if v, ok := goarch[runtime.GOARCH]; ok {
		return v
	}
	return runtime.GOARCH
}

// Host returns the build host as a target triple.
func Host() Target {
	env := ""
	switch runtime.GOOS {
	case "linux":
		env = "gnu"
	case "windows":
		env = "msvc"
	}
	return Target{Arch: hostArch(), OS: hostOS(), Env: env}
}

// ParseTriple splits an "arch-os" or "arch-os-env" string. The triple is
// marked overridden, which pins the default libdir to "lib".
func ParseTriple(s string) (Target, error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, fmt.Errorf("invalid target triple %q", s)
	}
	t := Target{Arch: parts[0], OS: parts[1], Overridden: true}
	if len(parts) == 3 {
		t.Env = parts[2]
	}
	if _, err := t.Classify(); err != nil {
		return Target{}, err
	}
	return t, nil
}

// DefaultPrefix is the installation prefix used when none is configured.
func (t Target) DefaultPrefix() string {
	switch t.OS {
	case "windows":
		return "c:/"
	case "haiku":
		return "/boot/system/non-packaged"
	default:
		return "/usr/local"
	}
}

// DefaultLibdir is the prefix-relative library directory. On a Debian-family
// build host it honors the multiarch triplet; on hosts laying out /usr/lib64
// it follows suit, but only when the build targets the host itself.
func (t Target) DefaultLibdir() string {
	if t.Overridden || t.OS == "freebsd" {
		return "lib"
	}

	if _, err := os.Stat("/etc/debian_version"); err == nil {
		out, err := exec.Command("dpkg-architecture", "-qDEB_HOST_MULTIARCH").Output()
		if err == nil {
			return "lib/" + strings.TrimSpace(string(out))
		}
	}

	if strings.EqualFold(hostArch(), t.Arch) && strings.EqualFold(hostOS(), t.OS) {
		if fi, err := os.Lstat("/usr/lib64"); err == nil && fi.IsDir() {
			return "lib64"
		}
	}

	return "lib"
}

// DefaultDatadir is the prefix-relative data directory.
func (t Target) DefaultDatadir() string {
	if t.OS == "haiku" {
		return "data"
	}
	return "share"
}

// DefaultIncludedir is the prefix-relative header directory.
func (t Target) DefaultIncludedir() string {
	if t.OS == "haiku" {
		return "develop/headers"
	}
	return "include"
}

// SharedObjectLinkArgs returns the linker directives embedding the versioned
// link name into the shared object: -soname on ELF platforms, -install_name
// plus compatibility versions on Mach-O, and the def-file export request on
// windows-gnu. The sover string here and the installed symlink chain must
// agree.
func (t Target) SharedObjectLinkArgs(lib *capi.Library, libdir, targetDir string) []string {
	var lines []string

	name := lib.Name
	v := lib.Version
	sover := lib.Sover()

	switch t.OS {
	case "android":
		// Soname version suffixes are disallowed on Android.
		lines = append(lines, fmt.Sprintf("-Wl,-soname,lib%s.so", name))
	case "linux", "freebsd", "dragonfly", "netbsd", "openbsd", "haiku", "illumos", "hurd":
		if lib.Versioning {
			lines = append(lines, fmt.Sprintf("-Wl,-soname,lib%s.so.%s", name, sover))
		} else {
			lines = append(lines, fmt.Sprintf("-Wl,-soname,lib%s.so", name))
		}
	case "macos", "ios", "tvos", "visionos":
		if lib.Versioning {
			lines = append(lines, fmt.Sprintf(
				"-Wl,-install_name,%s/lib%s.%s.dylib,-current_version,%d.%d.%d,-compatibility_version,%s",
				libdir, name, sover, v.Major, v.Minor, v.Patch, sover))
		} else {
			lines = append(lines, fmt.Sprintf("-Wl,-install_name,%s/lib%s.dylib", libdir, name))
		}
		// Leave room for install_name rewrites at packaging time.
		lines = append(lines, "-Wl,-headerpad_max_install_names")
	case "windows":
		if t.Env == "gnu" {
			lines = append(lines, fmt.Sprintf("-Wl,--output-def,%s",
				filepath.Join(targetDir, name+".def")))
		}
	}
	// Emscripten does not support soname or the other dynamic linking flags.

	return lines
}
