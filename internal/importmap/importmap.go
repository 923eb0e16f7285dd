// Package importmap converts bundled artifacts, or raw name/version pairs
// relayed through a public CDN, into the browser-loadable import map and
// stylesheet map a runtime needs to load a theme.
package importmap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/themeforge/themekit/internal/bundler"
	"github.com/themeforge/themekit/internal/catalog"
	"github.com/themeforge/themekit/internal/cdnrelay"
	"github.com/themeforge/themekit/internal/classifier"
	"github.com/themeforge/themekit/internal/descriptor"
)

// CSSFrameworkPackage is the utility-CSS framework whose presence switches
// on the stylesheet map entry.
const CSSFrameworkPackage = "tailwindcss"

// ImportMap maps bare module specifiers to resolvable URLs, plus stylesheet
// references by name. Only runtime-relevant, non-dev specifiers appear.
type ImportMap struct {
	Imports     map[string]string `json:"imports"`
	Stylesheets map[string]string `json:"stylesheets"`
}

// MarshalIndent renders the import map as stable, indented JSON.
func (m *ImportMap) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import map: %w", err)
	}
	return data, nil
}

// Options control URL construction.
type Options struct {
	// PublicURL is the CDN origin serving uploaded artifacts.
	PublicURL string

	// BasePath is the theme's storage prefix under PublicURL. Empty
	// collapses to no extra path segment.
	BasePath string

	// CDNHost overrides the public package CDN in relay mode.
	CDNHost string
}

// Generator builds import maps using the same classification rules as the
// bundler, so dev-only and framework-external packages are excluded from
// every mode by construction.
type Generator struct {
	framework classifier.Framework
	rules     *classifier.Ruleset
	catalog   *catalog.Catalog
}

// NewGenerator creates an import map generator for a framework.
func NewGenerator(fw classifier.Framework, rules *classifier.Ruleset, cat *catalog.Catalog) *Generator {
	return &Generator{framework: fw, rules: rules, catalog: cat}
}

// GenerateRelay emits one entry per runtime dependency pointing at the
// public package CDN, plus the fixed sub-path entries the catalog recognizes
// for the framework (JSX runtime, DOM client, ...).
func (g *Generator) GenerateRelay(pkg *descriptor.PackageJSON, opts Options) *ImportMap {
	m := newImportMap()

	host := opts.CDNHost
	if host == "" {
		host = cdnrelay.DefaultHost
	}
	host = strings.TrimSuffix(host, "/")

	for _, dep := range g.runtimeDependencies(pkg) {
		base := fmt.Sprintf("%s/%s@%s", host, dep.Name, dep.Version)
		m.Imports[dep.Name] = base
		for _, sub := range g.catalog.RelaySubExports(g.framework, dep.Name) {
			m.Imports[dep.Name+"/"+sub] = base + "/" + sub
		}
	}

	// The framework itself is supplied once by the host page, so its bare
	// specifier never appears here. Its recognized sub-path entries (JSX
	// runtime, DOM client) still have to resolve, and only the CDN can
	// serve them.
	merged := pkg.RuntimeDependencies()
	for _, name := range g.rules.Externals(g.framework) {
		declared, ok := merged[name]
		if !ok {
			continue
		}
		version := descriptor.CleanVersion(declared)
		if version == "" {
			continue
		}
		for _, sub := range g.catalog.RelaySubExports(g.framework, name) {
			m.Imports[name+"/"+sub] = fmt.Sprintf("%s/%s@%s/%s", host, name, version, sub)
		}
	}

	g.addStylesheets(m, pkg, opts)
	return m
}

// GenerateLocal emits entries pointing at locally bundled artifacts under
// the theme's storage prefix. Sub-export and CSS keys use dash-joined
// filenames, matching how slash-containing keys are persisted.
func (g *Generator) GenerateLocal(pkg *descriptor.PackageJSON, bundled []bundler.BundledDependency, opts Options) *ImportMap {
	m := newImportMap()

	for _, dep := range bundled {
		if g.rules.IsDevTooling(dep.Name) || g.rules.IsFrameworkExternal(g.framework, dep.Name) {
			continue
		}
		depPath := fmt.Sprintf("deps/%s@%s", dep.Name, dep.Version)
		m.Imports[dep.Name] = joinURL(opts.PublicURL, opts.BasePath, depPath, "index.js")

		keys := make([]string, 0, len(dep.AdditionalExports))
		for key := range dep.AdditionalExports {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			specifier := dep.Name + "/" + key
			m.Imports[specifier] = joinURL(opts.PublicURL, opts.BasePath, depPath, cdnrelay.FlattenKey(key)+".js")
		}
	}

	g.addStylesheets(m, pkg, opts)
	return m
}

// addStylesheets emits the theme stylesheet entry when the CSS framework is
// declared, in dependencies or devDependencies (case-sensitive).
func (g *Generator) addStylesheets(m *ImportMap, pkg *descriptor.PackageJSON, opts Options) {
	if pkg.HasDependency(CSSFrameworkPackage) {
		m.Stylesheets[CSSFrameworkPackage] = joinURL(opts.PublicURL, opts.BasePath, "theme.css")
	}
}

// runtimeDependencies classifies the descriptor's merged dependency map,
// in name order for deterministic output.
func (g *Generator) runtimeDependencies(pkg *descriptor.PackageJSON) []classifier.Dependency {
	merged := pkg.RuntimeDependencies()
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]classifier.Dependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, classifier.Dependency{Name: name, Version: merged[name]})
	}
	return g.rules.FilterRuntime(g.framework, deps)
}

func newImportMap() *ImportMap {
	return &ImportMap{
		Imports:     make(map[string]string),
		Stylesheets: make(map[string]string),
	}
}

// joinURL joins URL segments with single slashes, dropping empty segments so
// an empty base path never produces a double slash.
func joinURL(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, "/")
}
