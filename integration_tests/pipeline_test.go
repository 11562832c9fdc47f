//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpipe/internal/assets"
	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/isolate"
	"github.com/conneroisu/assetpipe/internal/manifest"
	"github.com/conneroisu/assetpipe/internal/testutils"
	"github.com/conneroisu/assetpipe/internal/web"
)

const pipelineManifest = `
javascript:
  - files: [js/jquery, js/app]
    name: application
  - files: [js/users]
    scope: users
    sub_scopes: [index]
css:
  - files: [css/site]
    name: site
asset_groups:
  accounts:
    css:
      - files: [css/users]
        scope: users
`

// newPipeline builds an environment from a project seeded with the
// standard assets and the pipeline manifest.
func newPipeline(t *testing.T) (*assets.Environment, string) {
	t.Helper()
	projectDir := testutils.CreateTempProject(t)
	testutils.CreateStandardAssets(t, projectDir)
	cfg := testutils.CreateTestConfig(projectDir)
	testutils.CreateTestManifest(t, projectDir, pipelineManifest)

	env, err := assets.NewEnvironment(assets.EnvironmentConfig{
		CacheDir:    cfg.Assets.CacheDir,
		Minify:      cfg.Assets.Minify,
		SearchRoots: cfg.Assets.SearchRoots,
		Builtins:    true,
		Executor:    isolate.NewInProcess(bundle.NewDigestCache(bundle.DefaultDigestExpiration, bundle.DefaultCleanupInterval)),
	})
	require.NoError(t, err)

	m, err := manifest.Load(cfg.Assets.Manifest)
	require.NoError(t, err)
	require.NoError(t, m.Apply(env))
	require.NoError(t, env.LoadAssetGroup("accounts"))

	return env, projectDir
}

func TestPipelineIntegration_BuildAndRender(t *testing.T) {
	env, projectDir := newPipeline(t)
	ctx := context.Background()

	before, err := env.Render(ctx, assets.TypeJavaScript, assets.Scope{})
	require.NoError(t, err)
	assert.Equal(t,
		`<script type="text/javascript" src="/js/jquery.js"></script>`+"\n"+
			`<script type="text/javascript" src="/js/app.js"></script>`,
		before)

	for _, typ := range []string{assets.TypeJavaScript, assets.TypeCSS} {
		require.NoError(t, env.Build(ctx, typ))
	}

	after, err := env.Render(ctx, assets.TypeJavaScript, assets.Scope{ID: "users", SubID: "index"})
	require.NoError(t, err)
	assert.Contains(t, after, `src="/application.min.js"`)
	assert.NotContains(t, after, `/js/jquery.js`)

	css, err := os.ReadFile(filepath.Join(projectDir, "public", "minified", "site.min.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", string(css))

	users, err := env.Render(ctx, assets.TypeCSS, assets.Scope{ID: "users"})
	require.NoError(t, err)
	assert.Contains(t, users, `href="/site.min.css"`)
	assert.Contains(t, users, `.min.css"`)
}

func TestPipelineIntegration_RebuildIsIdempotent(t *testing.T) {
	env, projectDir := newPipeline(t)
	ctx := context.Background()

	require.NoError(t, env.Build(ctx, assets.TypeCSS))
	target := filepath.Join(projectDir, "public", "minified", "site.min.css")
	first, err := os.Stat(target)
	require.NoError(t, err)

	require.NoError(t, env.Build(ctx, assets.TypeCSS))
	second, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())

	removed, err := env.Clean()
	require.NoError(t, err)
	assert.Contains(t, removed, target)
	assert.NoFileExists(t, target)
}

func TestPipelineIntegration_ScopedRequests(t *testing.T) {
	env, _ := newPipeline(t)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(web.Middleware(web.RoutePatternScope))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_ = web.Tags(env, assets.TypeJavaScript).Render(r.Context(), w)
		})
		r.Get("/users/index", func(w http.ResponseWriter, r *http.Request) {
			_ = web.Tags(env, assets.TypeJavaScript).Render(r.Context(), w)
		})
	})

	server := httptest.NewServer(r)
	defer server.Close()

	get := func(path string) string {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.NotContains(t, get("/"), "/js/users.js")
	assert.Contains(t, get("/users/index"), `src="/js/users.js"`)
}
