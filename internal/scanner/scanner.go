// Package scanner statically discovers which third-party packages a
// component source tree actually uses, without executing code or running a
// type-checker. The scan is best-effort: unreadable files contribute
// nothing, and extraction is lexical rather than syntactic.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/themeforge/themekit/internal/classifier"
	"github.com/themeforge/themekit/internal/descriptor"
)

// maxFilesVisited caps the total number of files one scan will read,
// bounding cost on pathological local-import graphs.
const maxFilesVisited = 50

// localExtensions are the resolution candidates for relative imports,
// tried in order before the exact path.
var localExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".vue", ".svelte"}

// cssExtensions mark a specifier as a stylesheet reference.
var cssExtensions = []string{".css", ".scss", ".sass", ".less"}

// DetectedDependency is one external package used by a component tree.
type DetectedDependency struct {
	Name    string
	Version string

	// Imports holds every distinct specifier seen, in first-seen order.
	Imports []string

	// SubExports holds the specifier suffixes after the package name,
	// excluding CSS-classified ones.
	SubExports []string

	// HasCSS is true when any specifier was classified as a stylesheet.
	HasCSS bool

	// CSSImports is the subset of Imports classified as CSS.
	CSSImports []string
}

// Scanner walks component entry files and accumulates detections.
type Scanner struct {
	framework classifier.Framework
	rules     *classifier.Ruleset
}

// New creates a scanner for the given framework using the shared
// classification ruleset.
func New(fw classifier.Framework, rules *classifier.Ruleset) *Scanner {
	return &Scanner{framework: fw, rules: rules}
}

// scanState is the arena owned by one Scan call. The visited set and file
// budget are threaded through the traversal explicitly; nothing here is
// shared across invocations.
type scanState struct {
	visited      map[string]struct{}
	filesVisited int
	detected     map[string]*DetectedDependency
	order        []string
}

// Scan reads the entry files (and any local files they reference) and
// returns one DetectedDependency per external package, merged across all
// inputs. Missing or unreadable files are skipped silently.
func (s *Scanner) Scan(entryFiles []string, pkg *descriptor.PackageJSON) []DetectedDependency {
	state := &scanState{
		visited:  make(map[string]struct{}),
		detected: make(map[string]*DetectedDependency),
	}
	merged := pkg.RuntimeDependencies()

	for _, entry := range entryFiles {
		s.walkFile(entry, filepath.Dir(entry), merged, state)
	}

	deps := make([]DetectedDependency, 0, len(state.order))
	for _, name := range state.order {
		deps = append(deps, *state.detected[name])
	}
	return deps
}

func (s *Scanner) walkFile(path, rootDir string, merged map[string]string, state *scanState) {
	if state.filesVisited >= maxFilesVisited {
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if _, seen := state.visited[abs]; seen {
		return
	}
	state.visited[abs] = struct{}{}
	state.filesVisited++

	data, err := os.ReadFile(path)
	if err != nil {
		// Best-effort scan: a missing file contributes nothing.
		log.Debug().Str("file", path).Msg("Skipping unreadable component file")
		return
	}

	for _, occ := range ExtractImports(string(data)) {
		spec := occ.Specifier
		switch {
		case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/"):
			if local := resolveLocal(spec, filepath.Dir(path), rootDir); local != "" {
				s.walkFile(local, rootDir, merged, state)
			}
		case strings.HasPrefix(spec, "node:"):
			// Platform built-in.
		default:
			s.recordBareSpecifier(spec, merged, state)
		}
	}
}

// resolveLocal resolves a relative or absolute import against the scanned
// entry's directory subtree. Paths escaping upward past the subtree root are
// never followed.
func resolveLocal(spec, fromDir, rootDir string) string {
	var resolved string
	if strings.HasPrefix(spec, "/") {
		resolved = filepath.Join(rootDir, spec)
	} else {
		resolved = filepath.Clean(filepath.Join(fromDir, spec))
	}

	rel, err := filepath.Rel(rootDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}

	for _, ext := range localExtensions {
		candidate := resolved + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if info, err := os.Stat(resolved); err == nil && !info.IsDir() {
		return resolved
	}
	return ""
}

func (s *Scanner) recordBareSpecifier(spec string, merged map[string]string, state *scanState) {
	name, subPath := SplitPackage(spec)
	if name == "" {
		return
	}

	declared, ok := merged[name]
	if !ok {
		// Imported but never declared, so not a candidate for bundling.
		return
	}
	version := descriptor.CleanVersion(declared)
	if version == "" {
		return
	}

	if s.rules.IsFrameworkExternal(s.framework, name) || s.rules.IsDevTooling(name) {
		return
	}

	dep, ok := state.detected[name]
	if !ok {
		dep = &DetectedDependency{Name: name, Version: version}
		state.detected[name] = dep
		state.order = append(state.order, name)
	}

	if !containsString(dep.Imports, spec) {
		dep.Imports = append(dep.Imports, spec)
	}

	if subPath == "" {
		return
	}
	if IsCSSPath(subPath) {
		dep.HasCSS = true
		if !containsString(dep.CSSImports, spec) {
			dep.CSSImports = append(dep.CSSImports, spec)
		}
	} else if !containsString(dep.SubExports, subPath) {
		dep.SubExports = append(dep.SubExports, subPath)
	}
}

// SplitPackage splits a bare specifier into package name and sub-path,
// treating a scoped `@scope/name` as a two-segment unit.
func SplitPackage(spec string) (name, subPath string) {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return "", ""
		}
		return strings.Join(parts[:2], "/"), strings.Join(parts[2:], "/")
	}
	return parts[0], strings.Join(parts[1:], "/")
}

// IsCSSPath classifies a sub-path as a stylesheet reference: either a
// stylesheet file extension or a `css`/`styles` path segment. The segment
// heuristic is deliberately loose; a code-bearing sub-path literally named
// `styles` will be misclassified.
func IsCSSPath(subPath string) bool {
	for _, ext := range cssExtensions {
		if strings.HasSuffix(subPath, ext) {
			return true
		}
	}
	for _, segment := range strings.Split(subPath, "/") {
		if segment == "css" || segment == "styles" {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
