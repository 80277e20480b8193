package install

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cabikit/cabi/internal/artifact"
	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/target"
	"github.com/cabikit/cabi/internal/ui"
)

// Installer places a built artifact set into the installation layout.
type Installer struct {
	UI *ui.Printer
}

func New(p *ui.Printer) *Installer {
	return &Installer{UI: p}
}

// copyFile copies a regular file preserving its permission bits. Failures
// name both ends of the copy.
func (in *Installer) copyFile(from, to string) error {
	in.UI.Verbose("Copying", fmt.Sprintf("%s to %s", from, to))

	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	return nil
}

// forceSymlink replaces whatever sits at link with a symlink to targetName,
// making repeated installs idempotent.
func forceSymlink(targetName, link string) error {
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("symlink %s -> %s: %w", link, targetName, err)
	}
	if err := os.Symlink(targetName, link); err != nil {
		return fmt.Errorf("symlink %s -> %s: %w", link, targetName, err)
	}
	return nil
}

// unixLibNames is the trio of file names making up a versioned shared
// library install: the canonical linker name, the sover name and the full
// version name.
type unixLibNames struct {
	canonical   string
	withMainVer string
	withFullVer string
}

func newUnixLibNames(family target.Family, lib *capi.Library) unixLibNames {
	name := lib.Name
	v := lib.Version
	sover := lib.Sover()

	switch family {
	case target.FamilyMachO:
		return unixLibNames{
			canonical:   fmt.Sprintf("lib%s.dylib", name),
			withMainVer: fmt.Sprintf("lib%s.%s.dylib", name, sover),
			withFullVer: fmt.Sprintf("lib%s.%d.%d.%d.dylib", name, v.Major, v.Minor, v.Patch),
		}
	default:
		canonical := fmt.Sprintf("lib%s.so", name)
		return unixLibNames{
			canonical:   canonical,
			withMainVer: fmt.Sprintf("%s.%s", canonical, sover),
			withFullVer: fmt.Sprintf("%s.%d.%d.%d", canonical, v.Major, v.Minor, v.Patch),
		}
	}
}

// install copies the shared object under its full version name and lays the
// sover and canonical symlinks over it. Without versioning the canonical
// name is a plain copy.
func (n unixLibNames) install(in *Installer, lib *capi.Library, sharedLib, libdir string) error {
	if !lib.Versioning {
		return in.copyFile(sharedLib, filepath.Join(libdir, n.canonical))
	}
	if err := in.copyFile(sharedLib, filepath.Join(libdir, n.withFullVer)); err != nil {
		return err
	}
	if n.withMainVer != n.withFullVer {
		if err := forceSymlink(n.withFullVer, filepath.Join(libdir, n.withMainVer)); err != nil {
			return err
		}
	}
	return forceSymlink(n.withFullVer, filepath.Join(libdir, n.canonical))
}

// Install copies every artifact in set into the layout described by paths.
// It stops at the first filesystem failure; partial installs are the
// caller's to detect.
func (in *Installer) Install(set *artifact.Set, cfg *capi.Config, paths Paths) error {
	libdir := paths.Libdir
	if cfg.Library.InstallSubdir != "" {
		libdir = filepath.Join(libdir, cfg.Library.InstallSubdir)
	}

	destBin := appendToDestdir(paths.DestDir, paths.Bindir)
	destLib := appendToDestdir(paths.DestDir, libdir)
	destPc := appendToDestdir(paths.DestDir, paths.Pkgconfigdir)
	destInclude := appendToDestdir(paths.DestDir, paths.Includedir)
	destData := appendToDestdir(paths.DestDir, paths.Datadir)

	for _, dir := range []string{destLib, destPc} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	in.UI.Status("Installing", "pkg-config file")
	if err := in.copyFile(set.PkgConfig, filepath.Join(destPc, filepath.Base(set.PkgConfig))); err != nil {
		return err
	}

	if cfg.Header.Enabled && len(set.Include) > 0 {
		in.UI.Status("Installing", "header files")
		if err := in.copyPairs(set.Include, destInclude); err != nil {
			return err
		}
	}

	if len(set.Data) > 0 {
		in.UI.Status("Installing", "data files")
		if err := in.copyPairs(set.Data, destData); err != nil {
			return err
		}
	}

	if set.StaticLib != "" {
		in.UI.Status("Installing", "static library")
		if err := in.copyFile(set.StaticLib, filepath.Join(destLib, set.StaticOutputFileName())); err != nil {
			return err
		}
	}

	if set.SharedLib != "" {
		in.UI.Status("Installing", "shared library")
		switch set.Class.Family {
		case target.FamilyElf, target.FamilyMachO:
			names := newUnixLibNames(set.Class.Family, &cfg.Library)
			if err := names.install(in, &cfg.Library, set.SharedLib, destLib); err != nil {
				return err
			}
		case target.FamilyWindows:
			name := set.SharedOutputFileName()
			if cfg.Library.InstallSubdir == "" {
				if err := os.MkdirAll(destBin, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", destBin, err)
				}
				if err := in.copyFile(set.SharedLib, filepath.Join(destBin, name)); err != nil {
					return err
				}
			} else {
				// A custom subdir marks plugins; they live in libdir.
				if err := in.copyFile(set.SharedLib, filepath.Join(destLib, name)); err != nil {
					return err
				}
			}
			if cfg.Library.ImportLibrary {
				if err := in.copyFile(set.ImportLib, filepath.Join(destLib, filepath.Base(set.ImportLib))); err != nil {
					return err
				}
				if err := in.copyFile(set.Def, filepath.Join(destLib, filepath.Base(set.Def))); err != nil {
					return err
				}
			}
		}
	}

	if set.DebugInfo != "" {
		if err := in.installDebugInfo(set, cfg, destBin, destLib); err != nil {
			return err
		}
	}

	return nil
}

// copyPairs installs glob-discovered files, creating destination
// subdirectories on demand.
func (in *Installer) copyPairs(pairs []artifact.FilePair, destRoot string) error {
	for _, p := range pairs {
		to := filepath.Join(destRoot, p.To)
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(to), err)
		}
		if err := in.copyFile(p.From, to); err != nil {
			return err
		}
	}
	return nil
}

func (in *Installer) installDebugInfo(set *artifact.Set, cfg *capi.Config, destBin, destLib string) error {
	fi, err := os.Stat(set.DebugInfo)
	if os.IsNotExist(err) {
		in.UI.Verbose("Absent", "debugging information")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", set.DebugInfo, err)
	}

	in.UI.Status("Installing", "debugging information")

	dest := set.DebugInfoFileName(destBin, destLib)
	if cfg.Library.InstallSubdir != "" {
		// Plugins keep their debug info next to them in libdir.
		dest = set.DebugInfoFileName(destLib, destLib)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}

	if !fi.IsDir() {
		return in.copyFile(set.DebugInfo, dest)
	}

	// Bundle-form debug info is copied preserving its internal structure.
	return filepath.WalkDir(set.DebugInfo, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(set.DebugInfo, path)
		if err != nil {
			return err
		}
		to := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(to), err)
		}
		return in.copyFile(path, to)
	})
}
