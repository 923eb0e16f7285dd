// Package descriptor provides the validated package description consumed by
// the bundling pipeline. Structural validation of package.json happens in the
// validation layer before a PackageJSON ever reaches this code.
package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PackageJSON is the subset of a component project's package.json that the
// pipeline reads.
type PackageJSON struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	Themekit         *ThemekitMeta     `json:"themekit,omitempty"`
}

// ThemekitMeta is the themekit namespace inside package.json.
type ThemekitMeta struct {
	Theme *ThemeMeta `json:"theme,omitempty"`
}

// ThemeMeta carries the theme identity declared by the project.
type ThemeMeta struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Load reads and parses a package.json from disk.
func Load(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package descriptor: %w", err)
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package descriptor: %w", err)
	}

	return &pkg, nil
}

// RuntimeDependencies merges dependencies and peerDependencies into one map.
// Regular dependencies take precedence when a name appears in both.
func (p *PackageJSON) RuntimeDependencies() map[string]string {
	merged := make(map[string]string, len(p.Dependencies)+len(p.PeerDependencies))
	for name, version := range p.PeerDependencies {
		merged[name] = version
	}
	for name, version := range p.Dependencies {
		merged[name] = version
	}
	return merged
}

// HasDependency reports whether name appears in dependencies or
// devDependencies. Matching is case-sensitive.
func (p *PackageJSON) HasDependency(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// ThemeIdentity resolves the theme's name and display name. The themekit
// metadata wins only when both fields are present and non-empty; otherwise
// the package's own name serves as both.
func (p *PackageJSON) ThemeIdentity() (name, displayName string) {
	if p.Themekit != nil && p.Themekit.Theme != nil {
		theme := p.Themekit.Theme
		if theme.Name != "" && theme.DisplayName != "" {
			return theme.Name, theme.DisplayName
		}
	}
	return p.Name, p.Name
}

// CleanVersion strips range prefix characters from a declared version so it
// can address a concrete package on a CDN. ">=" collapses to "="; leading
// "^", "~", "<" and ">" are dropped. Bare versions pass through unchanged,
// which makes cleaning idempotent.
func CleanVersion(version string) string {
	version = strings.TrimSpace(version)
	if after, ok := strings.CutPrefix(version, ">="); ok {
		return "=" + after
	}
	return strings.TrimLeft(version, "^~<>")
}
