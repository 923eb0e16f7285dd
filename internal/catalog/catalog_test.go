package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/themeforge/themekit/internal/classifier"
)

func TestLookup(t *testing.T) {
	cat := Default()

	cfg, ok := cat.Lookup(classifier.FrameworkReact, "react")
	assert.True(t, ok)
	assert.Equal(t, "jsx-runtime.js", cfg.Exports["jsx-runtime"])
	assert.Equal(t, "jsx-dev-runtime.js", cfg.Exports["jsx-dev-runtime"])

	cfg, ok = cat.Lookup(classifier.FrameworkSvelte, "svelte")
	assert.True(t, ok)
	assert.Equal(t, "src/runtime/store/index.js", cfg.Exports["store"])

	// Unknown packages bundle with their own declared export map only.
	_, ok = cat.Lookup(classifier.FrameworkReact, "swiper")
	assert.False(t, ok)

	// Entries do not leak across frameworks.
	_, ok = cat.Lookup(classifier.FrameworkVue, "react")
	assert.False(t, ok)
}

func TestNamedExports(t *testing.T) {
	cat := Default()

	names, ok := cat.NamedExports(classifier.FrameworkReact, "react-dom", "client")
	assert.True(t, ok)
	assert.Equal(t, []string{"createRoot", "hydrateRoot"}, names)

	_, ok = cat.NamedExports(classifier.FrameworkReact, "react-dom", "server")
	assert.False(t, ok)

	_, ok = cat.NamedExports(classifier.FrameworkReact, "react", "jsx-runtime")
	assert.False(t, ok)
}

func TestExternals(t *testing.T) {
	cat := Default()

	assert.Equal(t, []string{"react", "scheduler"}, cat.Externals(classifier.FrameworkReact, "react-dom"))
	assert.Equal(t, []string{"vue", "@vue/shared"}, cat.Externals(classifier.FrameworkVue, "@vue/server-renderer"))
	assert.Nil(t, cat.Externals(classifier.FrameworkReact, "react"))
	assert.Nil(t, cat.Externals(classifier.FrameworkReact, "swiper"))
}

func TestRelaySubExports(t *testing.T) {
	cat := Default()

	assert.Equal(t, []string{"jsx-runtime"}, cat.RelaySubExports(classifier.FrameworkReact, "react"))
	assert.Equal(t, []string{"client"}, cat.RelaySubExports(classifier.FrameworkReact, "react-dom"))
	assert.Equal(t, []string{"server-renderer"}, cat.RelaySubExports(classifier.FrameworkVue, "vue"))
	assert.Empty(t, cat.RelaySubExports(classifier.FrameworkSvelte, "svelte"))
}

func TestServerRuntimeFor(t *testing.T) {
	cat := Default()

	rt := cat.ServerRuntimeFor(classifier.FrameworkReact)
	assert.Equal(t, "react", rt.RuntimePackage)
	assert.Equal(t, "react-dom", rt.RendererPackage)
	assert.Equal(t, "server", rt.ServerEntry)

	rt = cat.ServerRuntimeFor(classifier.FrameworkVue)
	assert.Equal(t, "@vue/server-renderer", rt.RendererPackage)
}
