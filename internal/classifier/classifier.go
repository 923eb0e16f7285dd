// Package classifier decides which declared packages are real runtime
// externals that the bundler should compile, as opposed to framework
// built-ins or build/test tooling noise.
package classifier

import (
	"strings"

	"github.com/themeforge/themekit/internal/descriptor"
)

// Framework identifies one of the supported UI frameworks.
type Framework string

const (
	FrameworkReact  Framework = "react"
	FrameworkVue    Framework = "vue"
	FrameworkSvelte Framework = "svelte"
)

// Dependency is a raw name/version pair taken from a package descriptor or
// from scanner output.
type Dependency struct {
	Name    string
	Version string
}

// Ruleset holds the static classification tables. It is loaded once at
// process start and never mutated afterwards; all consumers share one
// read-only instance.
type Ruleset struct {
	devExact    map[string]struct{}
	devScopes   []string
	devPrefixes []string
	externals   map[Framework][]string
}

var defaultRuleset = newDefaultRuleset()

// DefaultRuleset returns the process-wide classification tables.
func DefaultRuleset() *Ruleset {
	return defaultRuleset
}

func newDefaultRuleset() *Ruleset {
	devExact := []string{
		// compilers and type tooling
		"typescript", "ts-node", "tsx", "vue-tsc", "svelte-check",
		// linters and formatters
		"eslint", "prettier", "stylelint", "oxlint",
		// bundlers and build infrastructure
		"vite", "webpack", "rollup", "esbuild", "parcel", "turbo", "tsup",
		"terser", "nodemon", "concurrently", "husky", "lint-staged",
		// test runners
		"jest", "vitest", "mocha", "karma", "cypress", "playwright", "jsdom",
		// CSS build tooling
		"postcss", "autoprefixer", "tailwindcss", "sass", "less",
		"cssnano",
	}

	exact := make(map[string]struct{}, len(devExact))
	for _, name := range devExact {
		exact[name] = struct{}{}
	}

	return &Ruleset{
		devExact: exact,
		devScopes: []string{
			"@types/",
			"@testing-library/",
			"@vitejs/",
			"@babel/",
			"@rollup/",
			"@esbuild/",
			"@typescript-eslint/",
			"@eslint/",
			"@playwright/",
			"@storybook/",
			"@tailwindcss/",
			"@sveltejs/",
		},
		devPrefixes: []string{
			"eslint",
			"prettier",
			"vite",
			"vitest",
			"jest",
			"webpack",
			"rollup",
			"babel-",
			"postcss-",
		},
		externals: map[Framework][]string{
			FrameworkReact: {"react", "react-dom", "scheduler"},
			FrameworkVue: {
				"vue",
				"@vue/runtime-dom",
				"@vue/runtime-core",
				"@vue/reactivity",
				"@vue/shared",
				"@vue/server-renderer",
			},
			FrameworkSvelte: {"svelte"},
		},
	}
}

// IsDevTooling reports whether a package name is build/test tooling that must
// never be bundled. Matching is by exact name, recognized scope, or
// recognized name prefix.
func (r *Ruleset) IsDevTooling(name string) bool {
	if _, ok := r.devExact[name]; ok {
		return true
	}
	for _, scope := range r.devScopes {
		if strings.HasPrefix(name, scope) {
			return true
		}
	}
	for _, prefix := range r.devPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IsFrameworkExternal reports whether a package is the active framework's
// runtime (or one of its recognized siblings), supplied once by the host
// page rather than bundled per-component.
func (r *Ruleset) IsFrameworkExternal(fw Framework, name string) bool {
	for _, external := range r.externals[fw] {
		if name == external {
			return true
		}
	}
	return false
}

// Externals returns the framework's external package names.
func (r *Ruleset) Externals(fw Framework) []string {
	return r.externals[fw]
}

// FilterRuntime returns only the dependencies that should be bundled at
// build time, preserving input order. Dev tooling and framework externals
// are dropped; versions are cleaned in place.
func (r *Ruleset) FilterRuntime(fw Framework, deps []Dependency) []Dependency {
	runtime := make([]Dependency, 0, len(deps))
	for _, dep := range deps {
		if r.IsDevTooling(dep.Name) || r.IsFrameworkExternal(fw, dep.Name) {
			continue
		}
		runtime = append(runtime, Dependency{
			Name:    dep.Name,
			Version: descriptor.CleanVersion(dep.Version),
		})
	}
	return runtime
}

// DetectFramework picks the active framework from a merged runtime
// dependency map. React wins ties because mixed projects declare it as a
// peer dependency far more often than the others.
func DetectFramework(runtimeDeps map[string]string) (Framework, bool) {
	for _, fw := range []Framework{FrameworkReact, FrameworkVue, FrameworkSvelte} {
		if _, ok := runtimeDeps[string(fw)]; ok {
			return fw, true
		}
	}
	return FrameworkReact, false
}
