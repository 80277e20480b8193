package pkgconfig

import (
	"path/filepath"
	"strings"
)

// canonicalize resolves "." and ".." lexically and collapses repeated
// separators, without consulting the filesystem. Symbolic ${...} components
// pass through untouched, which keeps installed documents portable.
func canonicalize(path string) string {
	p := filepath.ToSlash(path)

	var drive string
	if len(p) >= 2 && p[1] == ':' {
		drive = p[:2]
		p = p[2:]
	}
	rooted := strings.HasPrefix(p, "/")

	leadingDot := false
	var stack []string
	for i, c := range strings.Split(p, "/") {
		switch c {
		case "":
			// collapsed separator
		case ".":
			if i == 0 && !rooted && drive == "" {
				leadingDot = true
			}
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, c)
		}
	}

	if len(stack) == 0 {
		if drive != "" {
			return drive
		}
		if leadingDot {
			return "."
		}
		return "/"
	}

	s := strings.Join(stack, "/")
	switch {
	case drive != "" && rooted:
		return drive + "/" + s
	case drive != "":
		return drive + s
	case rooted:
		return "/" + s
	default:
		return s
	}
}
