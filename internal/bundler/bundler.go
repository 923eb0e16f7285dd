// Package bundler compiles classified runtime dependencies into
// self-contained ES module artifacts, one per dependency, with cross-package
// externalization so the active framework is never duplicated.
package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/themeforge/themekit/internal/catalog"
	"github.com/themeforge/themekit/internal/classifier"
	"github.com/themeforge/themekit/internal/scanner"
)

// Request names one dependency to bundle, with any sub-exports and CSS
// imports the scanner saw.
type Request struct {
	Name       string
	Version    string
	SubExports []string
	CSSImports []string
}

// FromDetected converts scanner output into bundle requests.
func FromDetected(deps []scanner.DetectedDependency) []Request {
	reqs := make([]Request, 0, len(deps))
	for _, dep := range deps {
		reqs = append(reqs, Request{
			Name:       dep.Name,
			Version:    dep.Version,
			SubExports: dep.SubExports,
			CSSImports: dep.CSSImports,
		})
	}
	return reqs
}

// BundledDependency is the compiled output for one dependency.
type BundledDependency struct {
	Name    string
	Version string

	// MainBundle is the compiled source for the package's primary entry.
	MainBundle string

	// AdditionalExports maps a requested sub-export key to its compiled
	// source, including CSS-derived modules. A sub-export that could not be
	// resolved is absent, never an error.
	AdditionalExports map[string]string
}

// Bundler compiles dependencies installed under a project's node_modules.
type Bundler struct {
	framework   classifier.Framework
	catalog     *catalog.Catalog
	projectRoot string
}

// New creates a bundler rooted at the project directory containing
// node_modules. The root is resolved to an absolute path up front; esbuild
// rejects a relative working directory.
func New(fw classifier.Framework, cat *catalog.Catalog, projectRoot string) *Bundler {
	if abs, err := filepath.Abs(projectRoot); err == nil {
		projectRoot = abs
	}
	return &Bundler{framework: fw, catalog: cat, projectRoot: projectRoot}
}

// Bundle compiles each requested dependency in sequence. Each build runs in
// its own scratch workspace, removed on success and failure alike. One
// dependency's fatal build failure aborts the whole batch; the error carries
// the name@version it belongs to.
//
// When outputDir is non-empty, artifacts are also written to
// outputDir/<name>@<version>/.
func (b *Bundler) Bundle(reqs []Request, outputDir string) ([]BundledDependency, error) {
	bundled := make([]BundledDependency, 0, len(reqs))
	for _, req := range reqs {
		dep, err := b.bundleOne(req)
		if err != nil {
			return nil, fmt.Errorf("%s@%s: %w", req.Name, req.Version, err)
		}
		if outputDir != "" {
			if err := writeArtifacts(outputDir, dep); err != nil {
				return nil, fmt.Errorf("%s@%s: %w", req.Name, req.Version, err)
			}
		}
		bundled = append(bundled, dep)
	}
	return bundled, nil
}

func (b *Bundler) bundleOne(req Request) (BundledDependency, error) {
	dep := BundledDependency{
		Name:              req.Name,
		Version:           req.Version,
		AdditionalExports: make(map[string]string),
	}

	workspace, err := os.MkdirTemp("", "themekit-dep-"+flattenName(req.Name)+"-*")
	if err != nil {
		return dep, fmt.Errorf("failed to create build workspace: %w", err)
	}
	defer func() { _ = os.RemoveAll(workspace) }()

	pkgDir := filepath.Join(b.projectRoot, "node_modules", filepath.FromSlash(req.Name))
	manifest, err := readManifest(pkgDir)
	if err != nil {
		return dep, err
	}

	entry := manifest.mainEntry()
	if entry == "" {
		return dep, fmt.Errorf("package declares no resolvable entry point")
	}

	externals := b.catalog.Externals(b.framework, req.Name)

	main, err := b.compile(filepath.Join(pkgDir, filepath.FromSlash(entry)), externals)
	if err != nil {
		return dep, err
	}
	if main == "" {
		log.Warn().
			Str("package", req.Name).
			Str("entry", entry).
			Msg("Build produced no resolvable main bundle, emitting empty module")
	}
	dep.MainBundle = main

	for _, sub := range req.SubExports {
		b.bundleSubExport(&dep, manifest, pkgDir, workspace, sub, externals)
	}

	for _, cssImport := range req.CSSImports {
		sub := strings.TrimPrefix(cssImport, req.Name+"/")
		b.bundleSubExport(&dep, manifest, pkgDir, workspace, sub, externals)
	}

	return dep, nil
}

// bundleSubExport resolves and compiles one sub-export. Resolution failures
// are warnings: the key is omitted and the dependency build continues.
func (b *Bundler) bundleSubExport(dep *BundledDependency, manifest *packageManifest, pkgDir, workspace, sub string, externals []string) {
	target := b.resolveSubExportFile(manifest, dep.Name, sub)
	if target == "" {
		log.Warn().
			Str("package", dep.Name).
			Str("subExport", sub).
			Msg("Sub-export not present in package export map, skipping")
		return
	}

	resolved := filepath.Join(pkgDir, filepath.FromSlash(target))

	if isStylesheet(target) || scanner.IsCSSPath(sub) {
		module, ok := cssModule(resolved)
		if !ok {
			log.Warn().
				Str("package", dep.Name).
				Str("subExport", sub).
				Str("path", target).
				Msg("Stylesheet not found, skipping sub-export")
			return
		}
		dep.AdditionalExports[sub] = module
		return
	}

	stub := reexportStub(resolved, b.catalog, b.framework, dep.Name, sub)
	stubPath := filepath.Join(workspace, flattenName(sub)+"-entry.js")
	if err := os.WriteFile(stubPath, []byte(stub), 0600); err != nil {
		log.Warn().
			Str("package", dep.Name).
			Str("subExport", sub).
			Err(err).
			Msg("Failed to stage sub-export entry, skipping")
		return
	}

	compiled, err := b.compile(stubPath, externals)
	if err != nil {
		log.Warn().
			Str("package", dep.Name).
			Str("subExport", sub).
			Err(err).
			Msg("Sub-export build failed, skipping")
		return
	}
	dep.AdditionalExports[sub] = compiled
}

// resolveSubExportFile finds the file a sub-export key points at: the
// catalog's table wins, then the package's own export map, then the sub-path
// taken literally within the package.
func (b *Bundler) resolveSubExportFile(manifest *packageManifest, pkg, sub string) string {
	if cfg, ok := b.catalog.Lookup(b.framework, pkg); ok {
		if target, ok := cfg.Exports[sub]; ok {
			return target
		}
	}
	if target := manifest.subExportTarget(sub); target != "" {
		return target
	}
	if info, err := os.Stat(filepath.Join(b.projectRoot, "node_modules", filepath.FromSlash(pkg), filepath.FromSlash(sub))); err == nil && !info.IsDir() {
		return sub
	}
	return ""
}

// reexportStub builds the single-line entry the sub-export compile starts
// from. Catalog entries that require explicit named exports get each binding
// restated; everything else uses a wildcard re-export.
func reexportStub(resolved string, cat *catalog.Catalog, fw classifier.Framework, pkg, sub string) string {
	from := filepath.ToSlash(resolved)
	if names, ok := cat.NamedExports(fw, pkg, sub); ok {
		return fmt.Sprintf("export { %s } from %q;\n", strings.Join(names, ", "), from)
	}
	return fmt.Sprintf("export * from %q;\n", from)
}

// compile runs a single-entry esbuild build producing ES module output, with
// the given packages marked external. An empty result is returned (not an
// error) when the build yields nothing.
func (b *Bundler) compile(entry string, externals []string) (string, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatESModule,
		Platform:    api.PlatformBrowser,
		Target:      api.ESNext,
		// Without an outdir the in-memory output is named "<stdout>" and
		// the .js filter below would never match.
		Outdir:        "dist",
		AbsWorkingDir: b.projectRoot,
		Plugins: []api.Plugin{
			externalsPlugin(externals),
		},
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, buildErr := range result.Errors {
			msgs = append(msgs, buildErr.Text)
		}
		return "", fmt.Errorf("build failed: %s", strings.Join(msgs, "; "))
	}

	for _, out := range result.OutputFiles {
		if strings.HasSuffix(out.Path, ".js") {
			return string(out.Contents), nil
		}
	}
	return "", nil
}

// externalsPlugin marks the given bare packages (and their sub-paths) as
// externally supplied, so a dependency never bundles its own copy of the
// framework.
func externalsPlugin(externals []string) api.Plugin {
	return api.Plugin{
		Name: "framework-externals",
		Setup: func(build api.PluginBuild) {
			if len(externals) == 0 {
				return
			}
			escaped := make([]string, 0, len(externals))
			for _, name := range externals {
				escaped = append(escaped, regexp.QuoteMeta(name))
			}
			filter := fmt.Sprintf(`^(%s)(/.*)?$`, strings.Join(escaped, "|"))
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})
		},
	}
}

// cssModule reads a stylesheet and wraps its raw text as an importable
// module. It tries the path directly, then index.css underneath it.
func cssModule(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		data, err = os.ReadFile(filepath.Join(path, "index.css"))
		if err != nil {
			return "", false
		}
	}

	encoded, err := json.Marshal(string(data))
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("const css = %s;\nexport default css;\n", encoded), true
}

// writeArtifacts persists one bundled dependency under
// outputDir/<name>@<version>/: index.js for the main entry and
// <key>.js per additional export, creating nested directories as needed.
func writeArtifacts(outputDir string, dep BundledDependency) error {
	depDir := filepath.Join(outputDir, fmt.Sprintf("%s@%s", dep.Name, dep.Version))
	if err := os.MkdirAll(depDir, 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(depDir, "index.js"), []byte(dep.MainBundle), 0600); err != nil {
		return fmt.Errorf("failed to write main bundle: %w", err)
	}

	for key, source := range dep.AdditionalExports {
		path := filepath.Join(depDir, filepath.FromSlash(key)+".js")
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", key, err)
		}
		if err := os.WriteFile(path, []byte(source), 0600); err != nil {
			return fmt.Errorf("failed to write sub-export %s: %w", key, err)
		}
	}
	return nil
}

// isStylesheet reports whether a resolved target file is CSS-like.
func isStylesheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css", ".scss", ".sass", ".less":
		return true
	}
	return false
}

// flattenName turns a possibly slash-containing name into a filename-safe
// token.
func flattenName(name string) string {
	name = strings.ReplaceAll(name, "@", "")
	return strings.ReplaceAll(name, "/", "-")
}
