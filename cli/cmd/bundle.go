package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/themeforge/themekit/internal/bundler"
	"github.com/themeforge/themekit/internal/catalog"
	"github.com/themeforge/themekit/internal/cdnrelay"
	"github.com/themeforge/themekit/internal/classifier"
	"github.com/themeforge/themekit/internal/descriptor"
	"github.com/themeforge/themekit/internal/importmap"
	"github.com/themeforge/themekit/internal/scanner"
	"github.com/themeforge/themekit/internal/uploadmeta"
)

var (
	bundleEntries   []string
	bundleOutDir    string
	bundleRelay     bool
	bundleDownload  bool
	bundleServer    bool
	bundleFramework string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [project-dir]",
	Short: "Bundle a component project's dependencies into theme artifacts",
	Long: `Bundle scans the project's component sources for third-party imports,
compiles each runtime dependency into a self-contained ES module artifact
(or relays it through a public CDN with --relay), and writes the import map
and upload metadata the theme runtime needs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringSliceVar(&bundleEntries, "entry", nil,
		"component entry files to scan (default src/index.*)")
	bundleCmd.Flags().StringVar(&bundleOutDir, "out", "dist",
		"output directory for artifacts and manifests")
	bundleCmd.Flags().BoolVar(&bundleRelay, "relay", false,
		"point the import map at a public CDN instead of bundling locally")
	bundleCmd.Flags().BoolVar(&bundleDownload, "download", false,
		"with --relay, also download the relayed modules into the output directory")
	bundleCmd.Flags().BoolVar(&bundleServer, "server", false,
		"also reconstruct the framework runtime for server-side rendering")
	bundleCmd.Flags().StringVar(&bundleFramework, "framework", "",
		"override framework detection: react, vue or svelte")
}

func runBundle(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	profile, err := activeProfile()
	if err != nil {
		return err
	}

	pkg, err := descriptor.Load(filepath.Join(projectDir, "package.json"))
	if err != nil {
		return err
	}

	rules := classifier.DefaultRuleset()
	fw, err := resolveFramework(pkg)
	if err != nil {
		return err
	}
	log.Info().Str("framework", string(fw)).Str("theme", pkg.Name).Msg("Bundling theme")

	entries := bundleEntries
	if len(entries) == 0 {
		entries = defaultEntries(projectDir)
	}

	detected := scanner.New(fw, rules).Scan(entries, pkg)
	log.Info().Int("dependencies", len(detected)).Msg("Scan complete")

	creds := uploadmeta.Credentials{
		Environment: uploadmeta.Environment(profile.Environment),
		Developer:   profile.Developer,
		WebsiteID:   profile.WebsiteID,
	}
	// Artifacts upload under the versioned storage key, so URLs embed it too.
	basePath := uploadmeta.BuildR2Path(pkg, creds)

	cat := catalog.Default()
	gen := importmap.NewGenerator(fw, rules, cat)
	opts := importmap.Options{
		PublicURL: profile.PublicURL,
		BasePath:  basePath,
		CDNHost:   profile.CDNHost,
	}

	var manifest *importmap.ImportMap
	var bundled []bundler.BundledDependency

	if bundleRelay {
		manifest = gen.GenerateRelay(pkg, opts)

		if bundleDownload {
			var dlOpts []cdnrelay.Option
			if profile.CDNHost != "" {
				dlOpts = append(dlOpts, cdnrelay.WithBaseURL(profile.CDNHost))
			}
			d := cdnrelay.NewDownloader(dlOpts...)
			bundled, err = d.Download(cmd.Context(), bundler.FromDetected(detected), filepath.Join(bundleOutDir, "deps"))
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
		}
	} else {
		b := bundler.New(fw, cat, projectDir)
		bundled, err = b.Bundle(bundler.FromDetected(detected), filepath.Join(bundleOutDir, "deps"))
		if err != nil {
			return fmt.Errorf("bundling failed: %w", err)
		}
		manifest = gen.GenerateLocal(pkg, bundled, opts)

		if bundleServer {
			serverDir := filepath.Join(bundleOutDir, "server")
			if _, err := b.BundleForServer(bundler.FromDetected(detected), serverDir); err != nil {
				return fmt.Errorf("server bundling failed: %w", err)
			}
		}
	}

	dependencies := make(map[string]string, len(detected))
	for _, dep := range detected {
		dependencies[dep.Name] = dep.Version
	}

	meta := uploadmeta.Build(pkg, creds, &uploadmeta.Options{
		ImportMap:    manifest,
		Dependencies: dependencies,
	})

	if err := writeManifests(bundleOutDir, manifest, meta); err != nil {
		return err
	}

	printSummary(detected, bundled)
	log.Info().Str("r2Path", meta.R2Path).Msg("Theme bundle ready for upload")
	return nil
}

func resolveFramework(pkg *descriptor.PackageJSON) (classifier.Framework, error) {
	switch bundleFramework {
	case "":
		fw, ok := classifier.DetectFramework(pkg.RuntimeDependencies())
		if !ok {
			log.Warn().Msg("No framework runtime declared, assuming react")
		}
		return fw, nil
	case "react":
		return classifier.FrameworkReact, nil
	case "vue":
		return classifier.FrameworkVue, nil
	case "svelte":
		return classifier.FrameworkSvelte, nil
	default:
		return "", fmt.Errorf("unknown framework '%s'", bundleFramework)
	}
}

// defaultEntries guesses the project's component entry file when none is
// given explicitly.
func defaultEntries(projectDir string) []string {
	for _, candidate := range []string{
		"src/index.tsx", "src/index.ts", "src/index.jsx", "src/index.js",
		"src/index.vue", "src/index.svelte",
	} {
		path := filepath.Join(projectDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return []string{path}
		}
	}
	return nil
}

func writeManifests(outDir string, manifest *importmap.ImportMap, meta uploadmeta.UploadMetadata) error {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	mapJSON, err := manifest.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "import-map.json"), mapJSON, 0600); err != nil {
		return fmt.Errorf("failed to write import map: %w", err)
	}

	metaJSON, err := meta.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "upload-metadata.json"), metaJSON, 0600); err != nil {
		return fmt.Errorf("failed to write upload metadata: %w", err)
	}
	return nil
}

// printSummary renders a per-dependency table: what was detected, what was
// compiled and how large it came out.
func printSummary(detected []scanner.DetectedDependency, bundled []bundler.BundledDependency) {
	sizes := make(map[string]int, len(bundled))
	extras := make(map[string]int, len(bundled))
	for _, dep := range bundled {
		sizes[dep.Name] = len(dep.MainBundle)
		extras[dep.Name] = len(dep.AdditionalExports)
	}

	sorted := make([]scanner.DetectedDependency, len(detected))
	copy(sorted, detected)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Dependency", "Version", "Sub-exports", "CSS", "Bundle size"})
	for _, dep := range sorted {
		size := "-"
		if s, ok := sizes[dep.Name]; ok {
			size = formatBytes(s)
		}
		css := "no"
		if dep.HasCSS {
			css = "yes"
		}
		subCount := len(dep.SubExports) + len(dep.CSSImports)
		if compiled, ok := extras[dep.Name]; ok {
			subCount = compiled
		}
		table.Append([]string{
			dep.Name,
			dep.Version,
			fmt.Sprintf("%d", subCount),
			css,
			size,
		})
	}
	table.Render()
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
