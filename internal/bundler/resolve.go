package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// packageManifest is the slice of an installed package's package.json the
// bundler needs for entry resolution.
type packageManifest struct {
	Name    string                     `json:"name"`
	Version string                     `json:"version"`
	Exports map[string]json.RawMessage `json:"-"`
	Module  string                     `json:"module"`
	Main    string                     `json:"main"`
}

// manifestEnvelope exists because "exports" can be a bare string, a
// conditions object or a sub-path map; it has to be decoded by hand.
type manifestEnvelope struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Exports json.RawMessage `json:"exports"`
	Module  string          `json:"module"`
	Main    string          `json:"main"`
}

func readManifest(pkgDir string) (*packageManifest, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read package manifest: %w", err)
	}

	var env manifestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse package manifest: %w", err)
	}

	m := &packageManifest{
		Name:    env.Name,
		Version: env.Version,
		Module:  env.Module,
		Main:    env.Main,
		Exports: map[string]json.RawMessage{},
	}

	if len(env.Exports) > 0 {
		switch env.Exports[0] {
		case '{':
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(env.Exports, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse export map: %w", err)
			}
			// A conditions object at the top level describes the "." entry.
			if isConditionsObject(raw) {
				m.Exports["."] = env.Exports
			} else {
				m.Exports = raw
			}
		case '"':
			m.Exports["."] = env.Exports
		}
	}

	return m, nil
}

// isConditionsObject distinguishes {"import": ...} from {".": ..., "./x": ...}.
func isConditionsObject(raw map[string]json.RawMessage) bool {
	for key := range raw {
		if strings.HasPrefix(key, ".") {
			return false
		}
	}
	return true
}

// exportConditions is the preference order when an export target is a
// conditions object.
var exportConditions = []string{"import", "module", "browser", "default"}

// resolveExportTarget walks an export map value down to a concrete relative
// file path, following the import/module/browser/default condition order.
func resolveExportTarget(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var target string
		if err := json.Unmarshal(raw, &target); err != nil {
			return ""
		}
		return target
	case '{':
		var conditions map[string]json.RawMessage
		if err := json.Unmarshal(raw, &conditions); err != nil {
			return ""
		}
		for _, cond := range exportConditions {
			if nested, ok := conditions[cond]; ok {
				if target := resolveExportTarget(nested); target != "" {
					return target
				}
			}
		}
	}
	return ""
}

// mainEntry resolves the package's primary entry file, preferring the
// declared export map over the legacy module/main fields.
func (m *packageManifest) mainEntry() string {
	if raw, ok := m.Exports["."]; ok {
		if target := resolveExportTarget(raw); target != "" {
			return target
		}
	}
	if m.Module != "" {
		return m.Module
	}
	return m.Main
}

// subExportTarget resolves a sub-path key ("client", "css", ...) through the
// package's export map. Returns "" when the export map has no usable entry.
func (m *packageManifest) subExportTarget(subExport string) string {
	if raw, ok := m.Exports["./"+subExport]; ok {
		if target := resolveExportTarget(raw); target != "" {
			return target
		}
	}
	return ""
}
