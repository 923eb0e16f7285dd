// Package uploadmeta derives the per-environment storage key and the
// upload-ready metadata record for a built theme. The network upload itself
// belongs to an external collaborator consuming the Uploader interface.
package uploadmeta

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/themeforge/themekit/internal/descriptor"
	"github.com/themeforge/themekit/internal/importmap"
)

// Environment scopes where a theme's artifacts are stored.
type Environment string

const (
	EnvLocal   Environment = "local"
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// defaultDeveloper is used for local-environment paths when no developer
// identifier is configured.
const defaultDeveloper = "unknown"

// Credentials identify where a theme belongs. They come from the CLI
// profile; authentication tokens are handled elsewhere.
type Credentials struct {
	Environment Environment
	Developer   string
	WebsiteID   string
}

// UploadMetadata is the record handed to the upload collaborator.
type UploadMetadata struct {
	Environment  string               `json:"environment"`
	Developer    string               `json:"developer,omitempty"`
	WebsiteID    string               `json:"websiteId"`
	ThemeName    string               `json:"themeName"`
	DisplayName  string               `json:"displayName"`
	Version      string               `json:"version"`
	R2Path       string               `json:"r2Path"`
	ImportMap    *importmap.ImportMap `json:"importMap,omitempty"`
	Stylesheets  map[string]string    `json:"stylesheets,omitempty"`
	Dependencies map[string]string    `json:"dependencies,omitempty"`
}

// Options carry the optional manifest pieces attached to the metadata.
type Options struct {
	ImportMap    *importmap.ImportMap
	Dependencies map[string]string
}

// Uploader pushes built artifacts and their metadata to object storage.
// Implementations live outside this module.
type Uploader interface {
	Upload(ctx context.Context, meta UploadMetadata, artifactDir string) error
}

// BuildR2Path derives the deterministic storage key
// "<environment>/<developer?>/<websiteId>/<themeName>/<version>". The
// developer segment appears only in the local environment, defaulting to
// "unknown" when unset. Empty segments never produce doubled or dangling
// slashes.
func BuildR2Path(pkg *descriptor.PackageJSON, creds Credentials) string {
	themeName, _ := pkg.ThemeIdentity()
	return joinSegments(
		string(creds.Environment),
		developerSegment(creds),
		creds.WebsiteID,
		themeName,
		pkg.Version,
	)
}

// GetThemeBasePath is BuildR2Path without the trailing version segment. The
// two always agree except for that one segment.
func GetThemeBasePath(pkg *descriptor.PackageJSON, creds Credentials) string {
	themeName, _ := pkg.ThemeIdentity()
	return joinSegments(
		string(creds.Environment),
		developerSegment(creds),
		creds.WebsiteID,
		themeName,
	)
}

// Build assembles the upload-ready metadata record.
func Build(pkg *descriptor.PackageJSON, creds Credentials, opts *Options) UploadMetadata {
	themeName, displayName := pkg.ThemeIdentity()

	meta := UploadMetadata{
		Environment: string(creds.Environment),
		Developer:   developerSegment(creds),
		WebsiteID:   creds.WebsiteID,
		ThemeName:   themeName,
		DisplayName: displayName,
		Version:     pkg.Version,
		R2Path:      BuildR2Path(pkg, creds),
	}

	if opts != nil {
		meta.ImportMap = opts.ImportMap
		meta.Dependencies = opts.Dependencies
		if opts.ImportMap != nil && len(opts.ImportMap.Stylesheets) > 0 {
			meta.Stylesheets = opts.ImportMap.Stylesheets
		}
	}

	return meta
}

// MarshalIndent renders the metadata as indented JSON for handoff.
func (m UploadMetadata) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload metadata: %w", err)
	}
	return data, nil
}

// developerSegment returns the developer path segment: present only in the
// local environment, "unknown" when unset there, absent everywhere else.
func developerSegment(creds Credentials) string {
	if creds.Environment != EnvLocal {
		return ""
	}
	if creds.Developer == "" {
		return defaultDeveloper
	}
	return creds.Developer
}

func joinSegments(segments ...string) string {
	nonEmpty := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment != "" {
			nonEmpty = append(nonEmpty, segment)
		}
	}
	return strings.Join(nonEmpty, "/")
}
