package pkgconfig

import (
	"fmt"
	"os/exec"
	"strings"
)

// CLIResolver probes packages through the pkg-config executable.
type CLIResolver struct {
	// Path overrides the executable; empty means "pkg-config" from PATH.
	Path string
}

func (r *CLIResolver) tool() string {
	if r.Path != "" {
		return r.Path
	}
	return "pkg-config"
}

// Probe asks pkg-config for the package's cflags and libs and classifies
// each reported flag.
func (r *CLIResolver) Probe(name string) (*Library, error) {
	cmd := exec.Command(r.tool(), "--cflags", "--libs", name)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: probe %s: %w", r.tool(), name, err)
	}
	return parseFlags(strings.Fields(string(out))), nil
}

func parseFlags(fields []string) *Library {
	lib := &Library{Defines: make(map[string]string)}
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case strings.HasPrefix(f, "-I"):
			lib.IncludePaths = append(lib.IncludePaths, f[2:])
		case strings.HasPrefix(f, "-L"):
			lib.LinkPaths = append(lib.LinkPaths, f[2:])
		case strings.HasPrefix(f, "-l"):
			lib.Libs = append(lib.Libs, f[2:])
		case strings.HasPrefix(f, "-Wl,"):
			lib.LdArgs = append(lib.LdArgs, f)
		case f == "-framework" && i+1 < len(fields):
			lib.Frameworks = append(lib.Frameworks, fields[i+1])
			i++
		case strings.HasPrefix(f, "-F"):
			lib.FrameworkPaths = append(lib.FrameworkPaths, f[2:])
		case strings.HasPrefix(f, "-D"):
			k, v, _ := strings.Cut(f[2:], "=")
			lib.Defines[k] = v
		default:
			// Full paths to link files and anything unclassified.
			lib.LinkFiles = append(lib.LinkFiles, f)
		}
	}
	return lib
}
