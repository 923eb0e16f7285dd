package bundler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// ServerBundle is the result of reconstructing the framework runtime for
// server-side rendering.
type ServerBundle struct {
	// Root is the directory holding the node_modules-shaped tree, empty
	// when nothing was bundled.
	Root string
}

// BundleForServer reconstructs a node_modules-shaped directory containing
// the framework runtime and its server-render entry, suitable for direct
// execution by a server process instead of being loaded as an ES module.
//
// The runtime package must be present among the requests; otherwise the
// result is empty and a warning is logged.
func (b *Bundler) BundleForServer(reqs []Request, outputDir string) (ServerBundle, error) {
	runtime := b.catalog.ServerRuntimeFor(b.framework)

	var runtimeReq *Request
	for i := range reqs {
		if reqs[i].Name == runtime.RuntimePackage {
			runtimeReq = &reqs[i]
			break
		}
	}
	if runtimeReq == nil {
		log.Warn().
			Str("runtime", runtime.RuntimePackage).
			Msg("Runtime package not among bundle inputs, skipping server bundle")
		return ServerBundle{}, nil
	}

	modulesDir := filepath.Join(outputDir, "node_modules")

	// When the framework serves its own renderer (svelte), the server entry
	// lives inside the runtime package itself.
	runtimeEntry := ""
	if runtime.RendererPackage == runtime.RuntimePackage {
		runtimeEntry = runtime.ServerEntry
	}
	if err := b.emitServerPackage(modulesDir, runtime.RuntimePackage, runtimeEntry, nil); err != nil {
		return ServerBundle{}, fmt.Errorf("%s: %w", runtime.RuntimePackage, err)
	}

	if runtime.RendererPackage != runtime.RuntimePackage {
		externals := []string{runtime.RuntimePackage}
		if err := b.emitServerPackage(modulesDir, runtime.RendererPackage, runtime.ServerEntry, externals); err != nil {
			return ServerBundle{}, fmt.Errorf("%s: %w", runtime.RendererPackage, err)
		}
	}

	return ServerBundle{Root: outputDir}, nil
}

// emitServerPackage compiles one package for the node platform and writes it
// under modulesDir with a minimal manifest so a server process can require
// it in place.
func (b *Bundler) emitServerPackage(modulesDir, pkg, serverEntry string, externals []string) error {
	pkgDir := filepath.Join(b.projectRoot, "node_modules", filepath.FromSlash(pkg))
	manifest, err := readManifest(pkgDir)
	if err != nil {
		return err
	}

	entry := manifest.mainEntry()
	if entry == "" {
		return fmt.Errorf("package declares no resolvable entry point")
	}

	main, err := b.compileForServer(filepath.Join(pkgDir, filepath.FromSlash(entry)), externals)
	if err != nil {
		return err
	}

	outDir := filepath.Join(modulesDir, filepath.FromSlash(pkg))
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create server package directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "index.js"), []byte(main), 0600); err != nil {
		return fmt.Errorf("failed to write server bundle: %w", err)
	}

	files := map[string]string{"main": "index.js"}

	if serverEntry != "" {
		target := b.resolveSubExportFile(manifest, pkg, serverEntry)
		if target == "" {
			log.Warn().
				Str("package", pkg).
				Str("subExport", serverEntry).
				Msg("Server entry not present in package export map, skipping")
		} else {
			compiled, err := b.compileForServer(filepath.Join(pkgDir, filepath.FromSlash(target)), externals)
			if err != nil {
				return err
			}
			name := flattenName(serverEntry) + ".js"
			if err := os.WriteFile(filepath.Join(outDir, name), []byte(compiled), 0600); err != nil {
				return fmt.Errorf("failed to write server entry: %w", err)
			}
			files[serverEntry] = name
		}
	}

	return writeServerManifest(outDir, pkg, manifest.Version, files)
}

func (b *Bundler) compileForServer(entry string, externals []string) (string, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Platform:      api.PlatformNode,
		Target:        api.ESNext,
		AbsWorkingDir: b.projectRoot,
		Plugins: []api.Plugin{
			externalsPlugin(externals),
		},
	})

	if len(result.Errors) > 0 {
		return "", fmt.Errorf("server build failed: %s", result.Errors[0].Text)
	}
	for _, out := range result.OutputFiles {
		return string(out.Contents), nil
	}
	return "", nil
}

// writeServerManifest emits the minimal package.json the server runtime tree
// needs for module resolution.
func writeServerManifest(outDir, name, version string, files map[string]string) error {
	manifest := fmt.Sprintf(
		"{\n  \"name\": %q,\n  \"version\": %q,\n  \"type\": \"module\",\n  \"main\": %q\n}\n",
		name, version, files["main"],
	)
	if err := os.WriteFile(filepath.Join(outDir, "package.json"), []byte(manifest), 0600); err != nil {
		return fmt.Errorf("failed to write server manifest: %w", err)
	}
	return nil
}
