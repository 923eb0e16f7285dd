// Package cdnrelay fetches prebuilt dependency modules from a public package
// CDN instead of compiling them locally. Downloads run sequentially, one
// dependency at a time, sub-exports after the main entry.
package cdnrelay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/themeforge/themekit/internal/bundler"
)

// DefaultHost is the public package CDN.
const DefaultHost = "https://esm.sh"

const userAgent = "themekit-cli/1.0"

// Downloader pulls dependency modules from the CDN.
type Downloader struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the downloader.
type Option func(*Downloader)

// WithBaseURL points the downloader at a different CDN host.
func WithBaseURL(baseURL string) Option {
	return func(d *Downloader) {
		d.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = client
	}
}

// NewDownloader creates a CDN downloader.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		baseURL: DefaultHost,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches each requested dependency's main entry and sub-exports.
// A failed main-entry download is fatal for the batch; a failed sub-export
// download is a warning and the key is omitted. When outputDir is non-empty,
// fetched modules are persisted with slash-containing sub-export keys
// converted to dash-joined filenames.
func (d *Downloader) Download(ctx context.Context, reqs []bundler.Request, outputDir string) ([]bundler.BundledDependency, error) {
	bundled := make([]bundler.BundledDependency, 0, len(reqs))

	for _, req := range reqs {
		dep := bundler.BundledDependency{
			Name:              req.Name,
			Version:           req.Version,
			AdditionalExports: make(map[string]string),
		}

		main, err := d.fetch(ctx, fmt.Sprintf("%s/%s@%s", d.baseURL, req.Name, req.Version))
		if err != nil {
			log.Error().
				Str("package", req.Name).
				Str("version", req.Version).
				Err(err).
				Msg("Failed to download main export from CDN")
			return nil, fmt.Errorf("failed to download %s from CDN: %w", req.Name, err)
		}
		dep.MainBundle = main

		subPaths := make([]string, 0, len(req.SubExports)+len(req.CSSImports))
		subPaths = append(subPaths, req.SubExports...)
		for _, cssImport := range req.CSSImports {
			subPaths = append(subPaths, strings.TrimPrefix(cssImport, req.Name+"/"))
		}

		for _, sub := range subPaths {
			source, err := d.fetch(ctx, fmt.Sprintf("%s/%s@%s/%s", d.baseURL, req.Name, req.Version, sub))
			if err != nil {
				log.Warn().
					Str("subExport", req.Name+"/"+sub).
					Err(err).
					Msg("Failed to download sub-export from CDN, skipping")
				continue
			}
			dep.AdditionalExports[FlattenKey(sub)] = source
		}

		if outputDir != "" {
			if err := persist(outputDir, dep); err != nil {
				return nil, fmt.Errorf("failed to persist %s: %w", req.Name, err)
			}
		}

		bundled = append(bundled, dep)
	}

	return bundled, nil
}

func (d *Downloader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// persist writes downloaded modules under outputDir/<name>@<version>/ using
// flat, dash-joined filenames.
func persist(outputDir string, dep bundler.BundledDependency) error {
	depDir := filepath.Join(outputDir, fmt.Sprintf("%s@%s", dep.Name, dep.Version))
	if err := os.MkdirAll(depDir, 0750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(depDir, "index.js"), []byte(dep.MainBundle), 0600); err != nil {
		return err
	}
	for key, source := range dep.AdditionalExports {
		if err := os.WriteFile(filepath.Join(depDir, key+".js"), []byte(source), 0600); err != nil {
			return err
		}
	}
	return nil
}

// FlattenKey converts a slash-containing sub-export path into the dash-joined
// form used for CDN-mode artifact keys and filenames.
func FlattenKey(sub string) string {
	return strings.ReplaceAll(sub, "/", "-")
}
