package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "caret range", input: "^11.0.0", expected: "11.0.0"},
		{name: "tilde range", input: "~1.2.3", expected: "1.2.3"},
		{name: "greater or equal", input: ">=1.2.3", expected: "=1.2.3"},
		{name: "less than", input: "<2.0.0", expected: "2.0.0"},
		{name: "greater than", input: ">1.0.0", expected: "1.0.0"},
		{name: "bare version", input: "18.2.0", expected: "18.2.0"},
		{name: "surrounding whitespace", input: "  ^3.4.1 ", expected: "3.4.1"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanVersion(tt.input))
		})
	}
}

// Cleaning an already-cleaned version must not change it again, so cached
// cleaned values can be re-cleaned safely.
func TestCleanVersion_Idempotent(t *testing.T) {
	inputs := []string{"^11.0.0", "~1.2.3", ">=1.2.3", "<2.0.0", "18.2.0", "=5.0.0"}
	for _, input := range inputs {
		once := CleanVersion(input)
		assert.Equal(t, once, CleanVersion(once), "input %q", input)
	}
}

func TestRuntimeDependencies_DependenciesWinOverPeers(t *testing.T) {
	pkg := &PackageJSON{
		Dependencies: map[string]string{
			"swiper": "^11.0.0",
			"clsx":   "^2.0.0",
		},
		PeerDependencies: map[string]string{
			"swiper": "^10.0.0",
			"react":  "^18.0.0",
		},
	}

	merged := pkg.RuntimeDependencies()
	assert.Len(t, merged, 3)
	assert.Equal(t, "^11.0.0", merged["swiper"])
	assert.Equal(t, "^2.0.0", merged["clsx"])
	assert.Equal(t, "^18.0.0", merged["react"])
}

func TestHasDependency(t *testing.T) {
	pkg := &PackageJSON{
		Dependencies:    map[string]string{"tailwindcss": "^3.4.0"},
		DevDependencies: map[string]string{"vitest": "^1.0.0"},
	}

	assert.True(t, pkg.HasDependency("tailwindcss"))
	assert.True(t, pkg.HasDependency("vitest"))
	assert.False(t, pkg.HasDependency("Tailwindcss"), "matching is case-sensitive")
	assert.False(t, pkg.HasDependency("swiper"))
}

func TestThemeIdentity(t *testing.T) {
	tests := []struct {
		name        string
		pkg         PackageJSON
		wantName    string
		wantDisplay string
	}{
		{
			name: "full theme metadata",
			pkg: PackageJSON{
				Name: "my-components",
				Themekit: &ThemekitMeta{Theme: &ThemeMeta{
					Name:        "aurora",
					DisplayName: "Aurora Theme",
				}},
			},
			wantName:    "aurora",
			wantDisplay: "Aurora Theme",
		},
		{
			name: "missing display name falls back to package name",
			pkg: PackageJSON{
				Name:     "my-components",
				Themekit: &ThemekitMeta{Theme: &ThemeMeta{Name: "aurora"}},
			},
			wantName:    "my-components",
			wantDisplay: "my-components",
		},
		{
			name:        "no themekit block",
			pkg:         PackageJSON{Name: "my-components"},
			wantName:    "my-components",
			wantDisplay: "my-components",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, display := tt.pkg.ThemeIdentity()
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantDisplay, display)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	content := `{
		"name": "demo-theme",
		"version": "1.0.0",
		"dependencies": {"swiper": "^11.0.0"},
		"themekit": {"theme": {"name": "demo", "displayName": "Demo"}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	pkg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo-theme", pkg.Name)
	assert.Equal(t, "^11.0.0", pkg.Dependencies["swiper"])

	name, display := pkg.ThemeIdentity()
	assert.Equal(t, "demo", name)
	assert.Equal(t, "Demo", display)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read package descriptor")

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse package descriptor")
}
