// Package pipeline sequences one library's distribution steps: name the
// expected artifacts, run the external compiler, and regenerate the derived
// artifacts (pkg-config documents, header, def/import-library files) only
// when the fingerprint says something relevant changed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cabikit/cabi/internal/artifact"
	"github.com/cabikit/cabi/internal/capi"
	"github.com/cabikit/cabi/internal/fingerprint"
	"github.com/cabikit/cabi/internal/install"
	"github.com/cabikit/cabi/internal/pkgconfig"
	"github.com/cabikit/cabi/internal/target"
	"github.com/cabikit/cabi/internal/tools"
	"github.com/cabikit/cabi/internal/ui"
)

// CompileRequest is handed to the external compiler boundary.
type CompileRequest struct {
	Config *capi.Config
	Target target.Target
	Kinds  capi.Kinds
	// LeafArgs are the shared-object linker directives for the final link.
	LeafArgs []string
	// ForceRebuild asks for a non-incremental build; set when the cache is
	// pristine and incremental correctness cannot be guaranteed.
	ForceRebuild bool
}

// CompileOutcome is the compiler's synchronous report.
type CompileOutcome struct {
	// Ran is false when the compiler decided everything was up to date.
	Ran bool
	// ReportedLinkLibs is the native system-libraries link-flag line, empty
	// when the compiler reported none.
	ReportedLinkLibs string
}

// Compiler is the external compile boundary. The pipeline never invokes
// build machinery itself.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) (CompileOutcome, error)
}

// HeaderSource provides the C header when header generation is enabled.
// Header text generation itself is external.
type HeaderSource interface {
	Generate(cfg *capi.Config, outPath string) error
}

// Request describes one library build.
type Request struct {
	Config *capi.Config
	Target target.Target
	Kinds  capi.Kinds
	// RootPath is the project directory holding assets.
	RootPath string
	// RootOutput is the build output directory artifacts land in.
	RootOutput string
	// UnixNaming reports Windows artifacts under Unix-style names.
	UnixNaming bool
	Paths      install.Paths
}

// Result is everything the install step needs.
type Result struct {
	Targets    *artifact.Set
	StaticLibs []string
}

// Pipeline carries the external collaborators.
type Pipeline struct {
	UI       *ui.Printer
	Compiler Compiler
	Tools    *tools.Invoker
	Resolver pkgconfig.Resolver
	Headers  HeaderSource
}

// Run executes the full per-library sequence. The external compiler always
// runs; derived-artifact regeneration is skipped when the fingerprint still
// matches.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config
	cfg.Library.ApplyTargetPolicy(req.Target.OS)

	kinds, err := capi.ResolveKinds(req.Kinds, req.Target.OS)
	if err != nil {
		return nil, err
	}
	onlyStatic := !kinds.Shared

	set, err := artifact.New(cfg.Library.Name, req.Target, req.RootOutput, kinds, cfg, req.UnixNaming)
	if err != nil {
		return nil, err
	}

	fp := fingerprint.New(cfg.Library.Name, req.RootOutput, set, cfg.Library, req.Paths)
	_, pristineErr := fp.LoadPrevious()
	pristine := pristineErr != nil

	outcome, err := p.Compiler.Compile(ctx, CompileRequest{
		Config:       cfg,
		Target:       req.Target,
		Kinds:        kinds,
		LeafArgs:     req.Target.SharedObjectLinkArgs(&cfg.Library, req.Paths.Libdir, req.RootOutput),
		ForceRebuild: pristine,
	})
	if err != nil {
		return nil, err
	}

	if err := set.DiscoverExtra(&cfg.Install, req.RootPath, req.RootOutput); err != nil {
		return nil, err
	}

	staticLibs := splitLinkLibs(outcome.ReportedLinkLibs)

	if outcome.Ran && !fp.IsValid() {
		if err := p.regenerate(set, cfg, req, onlyStatic, staticLibs); err != nil {
			return nil, err
		}
		fp.StaticLibs = staticLibs
		if err := fp.Store(); err != nil {
			return nil, err
		}
	} else {
		rec, err := fp.LoadPrevious()
		if err != nil {
			return nil, fmt.Errorf("recover link libraries from cache: %w", err)
		}
		staticLibs = rec.StaticLibs
	}

	return &Result{Targets: set, StaticLibs: staticLibs}, nil
}

// regenerate rebuilds every derived artifact: pkg-config documents, the
// header, the Windows def/import-library pair, and the hyphen-name aliases.
func (p *Pipeline) regenerate(set *artifact.Set, cfg *capi.Config, req Request, onlyStatic bool, staticLibs []string) error {
	pc := pkgconfig.FromInstallPaths(cfg, req.Paths, p.Resolver, p.UI)
	if onlyStatic {
		for _, l := range staticLibs {
			pc.AddLib(l)
		}
	}
	for _, l := range staticLibs {
		pc.AddLibPrivate(l)
	}
	if err := p.buildPCFiles(cfg.PkgConfig.Filename, req.RootOutput, pc); err != nil {
		return err
	}

	if !onlyStatic {
		if err := p.Tools.BuildDefFile(cfg.Library.Name, req.Target, req.RootOutput); err != nil {
			return err
		}
		if err := p.Tools.BuildImportLib(cfg.Library.Name, req.Target, req.RootOutput); err != nil {
			return err
		}
	}

	if cfg.Header.Enabled {
		if err := p.buildHeader(cfg, req); err != nil {
			return err
		}
	}

	return p.aliasUnderscoreArtifacts(set, cfg, req)
}

// buildPCFiles writes the installed and uninstalled document pair.
func (p *Pipeline) buildPCFiles(filename, rootOutput string, pc *pkgconfig.PkgConfig) error {
	p.UI.Status("Building", "pkg-config files")
	if err := writePCFile(filepath.Join(rootOutput, filename+".pc"), pc); err != nil {
		return err
	}
	return writePCFile(filepath.Join(rootOutput, filename+"-uninstalled.pc"), pc.Uninstalled(rootOutput))
}

func writePCFile(path string, pc *pkgconfig.PkgConfig) error {
	if err := os.WriteFile(path, []byte(pc.Render()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// buildHeader obtains the C header: generated through the external header
// source, or copied pre-built from the project's assets directory.
func (p *Pipeline) buildHeader(cfg *capi.Config, req Request) error {
	outPath := filepath.Join(req.RootOutput, cfg.Header.Name+".h")

	if cfg.Header.Generation {
		if p.Headers == nil {
			// Header text generation is external; without a source the
			// build command must have produced the header already.
			if _, err := os.Stat(outPath); err != nil {
				return fmt.Errorf("header %s was not produced and no header source is configured", outPath)
			}
			return nil
		}
		p.UI.Status("Building", "header file")
		return p.Headers.Generate(cfg, outPath)
	}

	p.UI.Status("Building", "pre-built header file")
	src := filepath.Join(req.RootPath, "assets", cfg.Header.Name+".h")
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, outPath, err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, outPath, err)
	}
	return nil
}

// aliasUnderscoreArtifacts copies artifacts the compiler produced under the
// underscore spelling of a hyphenated library name over to their hyphen
// names.
func (p *Pipeline) aliasUnderscoreArtifacts(set *artifact.Set, cfg *capi.Config, req Request) error {
	name := cfg.Library.Name
	if !strings.Contains(name, "-") {
		return nil
	}

	kinds := capi.Kinds{Static: set.StaticLib != "", Shared: set.SharedLib != ""}
	from, err := artifact.New(strings.ReplaceAll(name, "-", "_"), req.Target, req.RootOutput, kinds, cfg, req.UnixNaming)
	if err != nil {
		return err
	}

	for _, pair := range [][2]string{
		{from.StaticLib, set.StaticLib},
		{from.SharedLib, set.SharedLib},
	} {
		if pair[0] == "" || pair[1] == "" {
			continue
		}
		data, err := os.ReadFile(pair[0])
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("copy %s to %s: %w", pair[0], pair[1], err)
		}
		if err := os.WriteFile(pair[1], data, 0o644); err != nil {
			return fmt.Errorf("copy %s to %s: %w", pair[0], pair[1], err)
		}
	}
	return nil
}

// splitLinkLibs splits the compiler's single link-flag line into ordered
// flags.
func splitLinkLibs(line string) []string {
	return strings.Fields(line)
}
