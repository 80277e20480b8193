package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/install"
	"github.com/cabikit/cabi/internal/pipeline"
	"github.com/cabikit/cabi/internal/pkgconfig"
	"github.com/cabikit/cabi/internal/target"
	"github.com/cabikit/cabi/internal/tools"
	"github.com/cabikit/cabi/internal/ui"
)

// commonOpts is the flag surface shared by build and install. It only fills
// in the resolved configuration values the core consumes; no parsing logic
// lives below this layer.
type commonOpts struct {
	name        string
	version     string
	description string

	requires        string
	requiresPrivate string

	headerName   string
	subdirectory string
	noHeader     bool
	prebuiltOnly bool

	libraryType   []string
	noVersioning  bool
	versionSuffix string
	installSubdir string
	importLibrary bool

	targetTriple string
	targetDir    string
	projectDir   string

	destdir      string
	prefix       string
	libdir       string
	includedir   string
	bindir       string
	pkgconfigdir string
	datadir      string

	dlltool    string
	unixNaming bool
	compileCmd string
	verbose    bool
}

func (o *commonOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "Library name (required)")
	f.StringVar(&o.version, "library-version", "0.1.0", "Library version as major.minor.patch")
	f.StringVar(&o.description, "description", "", "pkg-config description")
	f.StringVar(&o.requires, "requires", "", "Comma separated pkg-config Requires entries")
	f.StringVar(&o.requiresPrivate, "requires-private", "", "Comma separated pkg-config Requires.private entries")
	f.StringVar(&o.headerName, "header-name", "", "Header file base name (defaults to the library name)")
	f.StringVar(&o.subdirectory, "header-subdirectory", "", "Header install subdirectory (defaults to the library name)")
	f.BoolVar(&o.noHeader, "no-header", false, "Skip header installation")
	f.BoolVar(&o.prebuiltOnly, "prebuilt-header", false, "Ship the pre-built header from assets/ instead of generating one")
	f.StringSliceVar(&o.libraryType, "library-type", nil, "Library kinds to produce: staticlib, cdylib")
	f.BoolVar(&o.noVersioning, "no-versioning", false, "Disable the versioned shared-library symlink chain")
	f.StringVar(&o.versionSuffix, "version-suffix", "auto", "Sover policy: auto, major, major.minor, major.minor.patch")
	f.StringVar(&o.installSubdir, "install-subdir", "", "Install the library under a libdir subdirectory (plugin mode)")
	f.BoolVar(&o.importLibrary, "import-library", true, "Install the Windows import library and def file")
	f.StringVar(&o.targetTriple, "target", "", "Target triple arch-os[-env] (defaults to the host)")
	f.StringVar(&o.targetDir, "target-dir", "target", "Build output directory")
	f.StringVar(&o.projectDir, "project-dir", ".", "Project directory holding assets")
	f.StringVar(&o.destdir, "destdir", "", "Staging root prepended to every install path")
	f.StringVar(&o.prefix, "prefix", "", "Installation prefix")
	f.StringVar(&o.libdir, "libdir", "", "Library directory (default: prefix-relative platform default)")
	f.StringVar(&o.includedir, "includedir", "", "Header directory")
	f.StringVar(&o.bindir, "bindir", "", "Binary directory")
	f.StringVar(&o.pkgconfigdir, "pkgconfigdir", "", "pkg-config directory (default: libdir/pkgconfig)")
	f.StringVar(&o.datadir, "datadir", "", "Data directory")
	f.StringVar(&o.dlltool, "dlltool", "", "Path to dlltool for windows-gnu import libraries")
	f.BoolVar(&o.unixNaming, "meson-naming", false, "Report Windows artifacts under Unix-style names")
	f.StringVar(&o.compileCmd, "compile-cmd", "", "External build command producing the library artifacts")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.MarkFlagRequired("name")
}

func parsePolicy(s string) (capi.VersionPolicy, error) {
	switch s {
	case "auto", "":
		return capi.PolicyAuto, nil
	case "major":
		return capi.PolicyMajor, nil
	case "major.minor":
		return capi.PolicyMajorMinor, nil
	case "major.minor.patch":
		return capi.PolicyMajorMinorPatch, nil
	default:
		return 0, fmt.Errorf("invalid version-suffix policy %q", s)
	}
}

func (o *commonOpts) kinds() (capi.Kinds, error) {
	if len(o.libraryType) == 0 {
		return capi.Kinds{}, nil
	}
	var k capi.Kinds
	for _, t := range o.libraryType {
		switch t {
		case "staticlib":
			k.Static = true
		case "cdylib":
			k.Shared = true
		default:
			return capi.Kinds{}, fmt.Errorf("invalid library type %q", t)
		}
	}
	return k, nil
}

func orName(s, name string) string {
	if s != "" {
		return s
	}
	return name
}

// resolve turns the flag values into the resolved configuration, target and
// install layout the pipeline consumes.
func (o *commonOpts) resolve() (*capi.Config, target.Target, install.Paths, capi.Kinds, error) {
	var zero install.Paths

	version, err := capi.ParseVersion(o.version)
	if err != nil {
		return nil, target.Target{}, zero, capi.Kinds{}, err
	}
	policy, err := parsePolicy(o.versionSuffix)
	if err != nil {
		return nil, target.Target{}, zero, capi.Kinds{}, err
	}

	tgt := target.Host()
	if o.targetTriple != "" {
		tgt, err = target.ParseTriple(o.targetTriple)
		if err != nil {
			return nil, target.Target{}, zero, capi.Kinds{}, err
		}
	}

	kinds, err := o.kinds()
	if err != nil {
		return nil, target.Target{}, zero, capi.Kinds{}, err
	}
	if !kinds.Static && !kinds.Shared {
		kinds = capi.DefaultKinds(tgt.OS, tgt.Env)
	}

	subdir := o.subdirectory
	if subdir == "" {
		subdir = o.name
	}

	cfg := &capi.Config{
		Header: capi.Header{
			Name:         orName(o.headerName, o.name),
			Subdirectory: subdir,
			Enabled:      !o.noHeader,
			Generation:   !o.prebuiltOnly,
		},
		PkgConfig: capi.PkgConfig{
			Name:            o.name,
			Filename:        o.name,
			Description:     o.description,
			Version:         version.String(),
			Requires:        o.requires,
			RequiresPrivate: o.requiresPrivate,
		},
		Library: capi.Library{
			Name:          o.name,
			Version:       version,
			Versioning:    !o.noVersioning,
			InstallSubdir: o.installSubdir,
			VersionSuffix: policy,
			ImportLibrary: o.importLibrary,
		},
		Install: capi.Install{
			Include: []capi.TargetPaths{
				{From: "assets/capi/include/**/*", To: subdir},
				{From: "capi/include/**/*", To: subdir, Generated: true},
				{From: orName(o.headerName, o.name) + ".h", To: subdir, Generated: true},
			},
		},
	}

	paths := install.DefaultPaths(tgt)
	paths.DestDir = o.destdir
	if o.prefix != "" {
		paths.Prefix = o.prefix
		paths.Libdir = filepath.Join(o.prefix, tgt.DefaultLibdir())
		paths.Includedir = filepath.Join(o.prefix, tgt.DefaultIncludedir())
		paths.Bindir = filepath.Join(o.prefix, "bin")
		paths.Datadir = filepath.Join(o.prefix, tgt.DefaultDatadir())
		paths.Pkgconfigdir = filepath.Join(paths.Libdir, "pkgconfig")
	}
	if o.libdir != "" {
		paths.Libdir = o.libdir
		paths.Pkgconfigdir = filepath.Join(o.libdir, "pkgconfig")
		paths.LibdirOverridden = true
	}
	if o.includedir != "" {
		paths.Includedir = o.includedir
		paths.IncludedirOverridden = true
	}
	if o.bindir != "" {
		paths.Bindir = o.bindir
	}
	if o.pkgconfigdir != "" {
		paths.Pkgconfigdir = o.pkgconfigdir
	}
	if o.datadir != "" {
		paths.Datadir = o.datadir
	}

	return cfg, tgt, paths, kinds, nil
}

// runPipeline executes the build pipeline for the flagged library.
func (o *commonOpts) runPipeline(ctx context.Context) (*pipeline.Result, *capi.Config, install.Paths, *ui.Printer, error) {
	cfg, tgt, paths, kinds, err := o.resolve()
	if err != nil {
		return nil, nil, install.Paths{}, nil, err
	}

	printer := ui.Default(o.verbose)

	var compiler pipeline.Compiler = &pipeline.CommandCompiler{Dir: o.projectDir}
	if o.compileCmd != "" {
		compiler = &pipeline.CommandCompiler{
			Argv: strings.Fields(o.compileCmd),
			Dir:  o.projectDir,
		}
	}

	p := &pipeline.Pipeline{
		UI:       printer,
		Compiler: compiler,
		Tools:    &tools.Invoker{UI: printer, Dlltool: o.dlltool},
		Resolver: &pkgconfig.CLIResolver{},
	}

	res, err := p.Run(ctx, pipeline.Request{
		Config:     cfg,
		Target:     tgt,
		Kinds:      kinds,
		RootPath:   o.projectDir,
		RootOutput: o.targetDir,
		UnixNaming: o.unixNaming,
		Paths:      paths,
	})
	if err != nil {
		return nil, nil, install.Paths{}, nil, err
	}
	return res, cfg, paths, printer, nil
}
