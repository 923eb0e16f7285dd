package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/themeforge/themekit/internal/catalog"
	"github.com/themeforge/themekit/internal/classifier"
)

// installPackage lays out a fake installed package under the project's
// node_modules.
func installPackage(t *testing.T, projectRoot, name string, files map[string]string) {
	t.Helper()
	pkgDir := filepath.Join(projectRoot, "node_modules", filepath.FromSlash(name))
	for rel, content := range files {
		path := filepath.Join(pkgDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestBundler(projectRoot string) *Bundler {
	return New(classifier.FrameworkReact, catalog.Default(), projectRoot)
}

func TestBundle_MainEntry(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "greeter", map[string]string{
		"package.json": `{"name": "greeter", "version": "1.0.0", "main": "index.js"}`,
		"index.js":     `export function greet(name) { return "hi " + name; }`,
	})

	bundled, err := newTestBundler(root).Bundle([]Request{{Name: "greeter", Version: "1.0.0"}}, "")
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	if len(bundled) != 1 {
		t.Fatalf("Expected 1 bundled dependency, got %d", len(bundled))
	}
	if !strings.Contains(bundled[0].MainBundle, "greet") {
		t.Errorf("Expected compiled main bundle to contain 'greet', got:\n%s", bundled[0].MainBundle)
	}
}

func TestBundle_RelativeProjectRoot(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "greeter", map[string]string{
		"package.json": `{"name": "greeter", "version": "1.0.0", "main": "index.js"}`,
		"index.js":     `export function greet(name) { return "hi " + name; }`,
	})
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })

	// "." is what the CLI passes when no project dir argument is given.
	bundled, err := newTestBundler(".").Bundle([]Request{{Name: "greeter", Version: "1.0.0"}}, "")
	if err != nil {
		t.Fatalf("Bundle with relative project root failed: %v", err)
	}
	if !strings.Contains(bundled[0].MainBundle, "greet") {
		t.Errorf("Expected compiled main bundle to contain 'greet', got:\n%s", bundled[0].MainBundle)
	}
}

func TestBundle_SubExport(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "greeter", map[string]string{
		"package.json": `{
			"name": "greeter", "version": "1.0.0",
			"exports": {".": "./index.js", "./extra": {"import": "./extra.js"}}
		}`,
		"index.js": `export const main = 1;`,
		"extra.js": `export const extra = 2;`,
	})

	reqs := []Request{{Name: "greeter", Version: "1.0.0", SubExports: []string{"extra"}}}
	bundled, err := newTestBundler(root).Bundle(reqs, "")
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	compiled, ok := bundled[0].AdditionalExports["extra"]
	if !ok {
		t.Fatal("Expected 'extra' sub-export to be compiled")
	}
	if !strings.Contains(compiled, "extra") {
		t.Errorf("Expected sub-export output to contain 'extra', got:\n%s", compiled)
	}
}

func TestBundle_CSSImport(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "slider", map[string]string{
		"package.json": `{
			"name": "slider", "version": "2.0.0",
			"exports": {".": "./index.js", "./css": "./css"}
		}`,
		"index.js":      `export const slider = 1;`,
		"css/index.css": `.slider { color: red; }`,
	})

	reqs := []Request{{Name: "slider", Version: "2.0.0", CSSImports: []string{"slider/css"}}}
	bundled, err := newTestBundler(root).Bundle(reqs, "")
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	module, ok := bundled[0].AdditionalExports["css"]
	if !ok {
		t.Fatal("Expected 'css' export to be present")
	}
	if !strings.Contains(module, "export default css") {
		t.Errorf("Expected a default-exporting CSS module, got:\n%s", module)
	}
	if !strings.Contains(module, ".slider") {
		t.Errorf("Expected stylesheet text to be embedded, got:\n%s", module)
	}
}

func TestBundle_UnresolvableSubExportSkipped(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "greeter", map[string]string{
		"package.json": `{"name": "greeter", "version": "1.0.0", "main": "index.js"}`,
		"index.js":     `export const main = 1;`,
	})

	reqs := []Request{{Name: "greeter", Version: "1.0.0", SubExports: []string{"nope"}}}
	bundled, err := newTestBundler(root).Bundle(reqs, "")
	if err != nil {
		t.Fatalf("Expected sub-export failure to be non-fatal, got: %v", err)
	}
	if _, ok := bundled[0].AdditionalExports["nope"]; ok {
		t.Error("Expected unresolvable sub-export to be omitted")
	}
}

func TestBundle_MissingPackageIsFatal(t *testing.T) {
	root := t.TempDir()

	_, err := newTestBundler(root).Bundle([]Request{{Name: "ghost", Version: "1.0.0"}}, "")
	if err == nil {
		t.Fatal("Expected error for missing package")
	}
	if !strings.Contains(err.Error(), "ghost@1.0.0") {
		t.Errorf("Expected error to carry name@version, got: %v", err)
	}
}

func TestBundle_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "dist", "deps")
	installPackage(t, root, "greeter", map[string]string{
		"package.json": `{"name": "greeter", "version": "1.0.0", "main": "index.js"}`,
		"index.js":     `export const main = 1;`,
	})

	_, err := newTestBundler(root).Bundle([]Request{{Name: "greeter", Version: "1.0.0"}}, outDir)
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "greeter@1.0.0", "index.js")); err != nil {
		t.Errorf("Expected main artifact on disk: %v", err)
	}
}

func TestWriteArtifacts_NestedKeys(t *testing.T) {
	outDir := t.TempDir()
	dep := BundledDependency{
		Name:       "widgets",
		Version:    "3.1.0",
		MainBundle: "export {};",
		AdditionalExports: map[string]string{
			"internal/client": "export const c = 1;",
		},
	}

	if err := writeArtifacts(outDir, dep); err != nil {
		t.Fatalf("writeArtifacts failed: %v", err)
	}

	nested := filepath.Join(outDir, "widgets@3.1.0", "internal", "client.js")
	data, err := os.ReadFile(nested)
	if err != nil {
		t.Fatalf("Expected nested sub-export file: %v", err)
	}
	if string(data) != "export const c = 1;" {
		t.Errorf("Unexpected nested artifact contents: %q", string(data))
	}
}

func TestCompile_ExternalsStayExternal(t *testing.T) {
	root := t.TempDir()
	entry := filepath.Join(root, "entry.js")
	source := `import { useState } from "react"; export const hook = useState;`
	if err := os.WriteFile(entry, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	b := newTestBundler(root)

	// Unresolvable without externalization.
	if _, err := b.compile(entry, nil); err == nil {
		t.Error("Expected build failure when the import cannot resolve")
	}

	out, err := b.compile(entry, []string{"react"})
	if err != nil {
		t.Fatalf("compile with externals failed: %v", err)
	}
	if !strings.Contains(out, `"react"`) {
		t.Errorf("Expected external import to survive in output, got:\n%s", out)
	}
}

func TestReexportStub(t *testing.T) {
	cat := catalog.Default()

	stub := reexportStub("/pkg/client.js", cat, classifier.FrameworkReact, "react-dom", "client")
	if !strings.Contains(stub, "createRoot") || !strings.Contains(stub, "hydrateRoot") {
		t.Errorf("Expected explicit named exports for react-dom/client, got: %q", stub)
	}
	if strings.Contains(stub, "export *") {
		t.Errorf("Expected no wildcard for react-dom/client, got: %q", stub)
	}

	stub = reexportStub("/pkg/modules.js", cat, classifier.FrameworkReact, "swiper", "modules")
	if !strings.HasPrefix(stub, "export * from") {
		t.Errorf("Expected wildcard re-export for uncataloged sub-path, got: %q", stub)
	}
}

func TestFlattenName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "swiper", expected: "swiper"},
		{input: "swiper/css/navigation", expected: "swiper-css-navigation"},
		{input: "@vue/runtime-dom", expected: "vue-runtime-dom"},
	}
	for _, tt := range tests {
		if got := flattenName(tt.input); got != tt.expected {
			t.Errorf("flattenName(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestBundleForServer_RuntimeMissing(t *testing.T) {
	root := t.TempDir()

	result, err := newTestBundler(root).BundleForServer(
		[]Request{{Name: "swiper", Version: "11.0.0"}},
		filepath.Join(root, "server"),
	)
	if err != nil {
		t.Fatalf("Expected missing runtime to be non-fatal, got: %v", err)
	}
	if result.Root != "" {
		t.Errorf("Expected empty server bundle, got root %q", result.Root)
	}
}

func TestBundleForServer_SelfRenderingRuntime(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "svelte", map[string]string{
		"package.json": `{
			"name": "svelte", "version": "4.2.0",
			"exports": {".": "./index.js", "./internal": "./internal.js"}
		}`,
		"index.js":    `export const VERSION = "4.2.0";`,
		"internal.js": `export function render() { return ""; }`,
	})

	outDir := filepath.Join(root, "server")
	b := New(classifier.FrameworkSvelte, catalog.Default(), root)
	result, err := b.BundleForServer([]Request{{Name: "svelte", Version: "4.2.0"}}, outDir)
	if err != nil {
		t.Fatalf("BundleForServer failed: %v", err)
	}
	if result.Root != outDir {
		t.Errorf("Expected root %q, got %q", outDir, result.Root)
	}

	// Runtime and renderer are the same package, so the server entry lands
	// next to the runtime bundle.
	for _, rel := range []string{
		"node_modules/svelte/index.js",
		"node_modules/svelte/internal.js",
		"node_modules/svelte/package.json",
	} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("Expected server artifact %s: %v", rel, err)
		}
	}
}

func TestBundleForServer_EmitsRuntimeTree(t *testing.T) {
	root := t.TempDir()
	installPackage(t, root, "react", map[string]string{
		"package.json": `{"name": "react", "version": "18.2.0", "main": "index.js"}`,
		"index.js":     `export const version = "18.2.0";`,
	})
	installPackage(t, root, "react-dom", map[string]string{
		"package.json": `{"name": "react-dom", "version": "18.2.0", "main": "index.js"}`,
		"index.js":     `import { version } from "react"; export const domVersion = version;`,
		// The catalog resolves the "server" sub-export to this file.
		"server.browser.js": `import { version } from "react"; export function renderToString() { return version; }`,
	})

	outDir := filepath.Join(root, "server")
	result, err := newTestBundler(root).BundleForServer(
		[]Request{{Name: "react", Version: "18.2.0"}},
		outDir,
	)
	if err != nil {
		t.Fatalf("BundleForServer failed: %v", err)
	}
	if result.Root != outDir {
		t.Errorf("Expected root %q, got %q", outDir, result.Root)
	}

	for _, rel := range []string{
		"node_modules/react/index.js",
		"node_modules/react/package.json",
		"node_modules/react-dom/index.js",
		"node_modules/react-dom/server.js",
		"node_modules/react-dom/package.json",
	} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("Expected server artifact %s: %v", rel, err)
		}
	}
}
