// Package catalog holds the static per-framework tables describing which
// sub-paths of well-known packages are addressable and how they must be
// externalized. The tables are read-only and loaded once per process.
package catalog

import (
	"github.com/themeforge/themekit/internal/classifier"
)

// ExportConfig describes the bundling rules for one well-known package.
type ExportConfig struct {
	// Exports maps a sub-path key to the file it resolves to, relative to
	// the package root.
	Exports map[string]string

	// Externals lists bare specifiers that this package's builds must treat
	// as externally supplied, typically the framework main package.
	Externals []string

	// ExplicitNamedExports lists sub-paths whose public API must be
	// restated binding by binding. A wildcard re-export of these files
	// would drag in code the externalization step is supposed to exclude.
	ExplicitNamedExports map[string][]string
}

// Catalog is the full per-framework table.
type Catalog struct {
	entries map[classifier.Framework]map[string]ExportConfig

	// relaySubExports lists the fixed sub-path entries a public CDN import
	// map needs per framework package (JSX runtime, DOM client, ...).
	relaySubExports map[classifier.Framework]map[string][]string

	// serverRuntime names the framework's runtime package and its
	// server-render entry, used by the server bundling mode.
	serverRuntime map[classifier.Framework]ServerRuntime
}

// ServerRuntime describes the package layout the server bundling mode must
// reconstruct for a framework.
type ServerRuntime struct {
	// RuntimePackage is the framework main package (e.g. "react").
	RuntimePackage string
	// RendererPackage supplies server-side rendering (e.g. "react-dom").
	RendererPackage string
	// ServerEntry is the renderer sub-path holding the server entry.
	ServerEntry string
}

var defaultCatalog = newDefaultCatalog()

// Default returns the process-wide catalog.
func Default() *Catalog {
	return defaultCatalog
}

func newDefaultCatalog() *Catalog {
	return &Catalog{
		entries: map[classifier.Framework]map[string]ExportConfig{
			classifier.FrameworkReact: {
				"react": {
					Exports: map[string]string{
						"jsx-runtime":     "jsx-runtime.js",
						"jsx-dev-runtime": "jsx-dev-runtime.js",
					},
				},
				"react-dom": {
					Exports: map[string]string{
						"client": "client.js",
						"server": "server.browser.js",
					},
					Externals: []string{"react", "scheduler"},
					ExplicitNamedExports: map[string][]string{
						// A blind `export *` of client.js re-bundles all of
						// react-dom next to the externalized copy.
						"client": {"createRoot", "hydrateRoot"},
					},
				},
			},
			classifier.FrameworkVue: {
				"vue": {
					Exports: map[string]string{
						"server-renderer": "server-renderer/index.mjs",
					},
				},
				"@vue/server-renderer": {
					Externals: []string{"vue", "@vue/shared"},
				},
			},
			classifier.FrameworkSvelte: {
				"svelte": {
					Exports: map[string]string{
						"store":      "src/runtime/store/index.js",
						"transition": "src/runtime/transition/index.js",
						"animate":    "src/runtime/animate/index.js",
						"motion":     "src/runtime/motion/index.js",
					},
				},
			},
		},
		relaySubExports: map[classifier.Framework]map[string][]string{
			classifier.FrameworkReact: {
				"react":     {"jsx-runtime"},
				"react-dom": {"client"},
			},
			classifier.FrameworkVue: {
				"vue": {"server-renderer"},
			},
			classifier.FrameworkSvelte: {},
		},
		serverRuntime: map[classifier.Framework]ServerRuntime{
			classifier.FrameworkReact: {
				RuntimePackage:  "react",
				RendererPackage: "react-dom",
				ServerEntry:     "server",
			},
			classifier.FrameworkVue: {
				RuntimePackage:  "vue",
				RendererPackage: "@vue/server-renderer",
				ServerEntry:     "",
			},
			classifier.FrameworkSvelte: {
				RuntimePackage:  "svelte",
				RendererPackage: "svelte",
				ServerEntry:     "internal",
			},
		},
	}
}

// Lookup returns the export config for a package under the given framework.
// Packages without an entry are bundled with no extra externalization and no
// sub-exports beyond their own declared export map.
func (c *Catalog) Lookup(fw classifier.Framework, pkg string) (ExportConfig, bool) {
	cfg, ok := c.entries[fw][pkg]
	return cfg, ok
}

// NamedExports returns the explicit binding list for a package sub-export,
// if the catalog requires one.
func (c *Catalog) NamedExports(fw classifier.Framework, pkg, subExport string) ([]string, bool) {
	cfg, ok := c.entries[fw][pkg]
	if !ok {
		return nil, false
	}
	names, ok := cfg.ExplicitNamedExports[subExport]
	return names, ok
}

// Externals returns the extra externals a package's builds must honor.
func (c *Catalog) Externals(fw classifier.Framework, pkg string) []string {
	cfg, ok := c.entries[fw][pkg]
	if !ok {
		return nil
	}
	return cfg.Externals
}

// RelaySubExports returns the fixed sub-path entries a CDN-relayed import
// map should emit for a framework package.
func (c *Catalog) RelaySubExports(fw classifier.Framework, pkg string) []string {
	return c.relaySubExports[fw][pkg]
}

// ServerRuntimeFor returns the server bundling layout for a framework.
func (c *Catalog) ServerRuntimeFor(fw classifier.Framework) ServerRuntime {
	return c.serverRuntime[fw]
}
