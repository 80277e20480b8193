package artifact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cabikit/cabi/internal/capi"
)

// DiscoverExtra resolves the configured include and data glob patterns into
// concrete (source, install sub-path) pairs. Asset patterns are rooted at
// rootDir, generated patterns at outDir; generated patterns are skipped when
// outDir is empty.
func (s *Set) DiscoverExtra(install *capi.Install, rootDir, outDir string) error {
	var err error
	s.Include, err = extraTargets(install.Include, rootDir, outDir)
	if err != nil {
		return err
	}
	s.Data, err = extraTargets(install.Data, rootDir, outDir)
	return err
}

func extraTargets(targets []capi.TargetPaths, rootDir, outDir string) ([]FilePair, error) {
	var pairs []FilePair
	for _, t := range targets {
		root := rootDir
		if t.Generated {
			if outDir == "" {
				continue
			}
			root = outDir
		}
		found, err := installPaths(t, root)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, found...)
	}
	return pairs, nil
}

// installPaths expands one glob pattern. The destination sub-path is the
// match's path relative to the pattern's fixed directory part, joined under
// the target's To directory.
func installPaths(t capi.TargetPaths, root string) ([]FilePair, error) {
	pattern := filepath.Join(root, t.From)

	base := pattern
	if i := strings.Index(filepath.ToSlash(t.From), "**"); i >= 0 {
		base = filepath.Join(root, filepath.Dir(filepath.FromSlash(filepath.ToSlash(t.From)[:i])))
	} else {
		base = filepath.Dir(pattern)
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}

	var pairs []FilePair
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(base, m)
		if err != nil {
			continue
		}
		pairs = append(pairs, FilePair{From: m, To: filepath.Join(t.To, rel)})
	}
	return pairs, nil
}
