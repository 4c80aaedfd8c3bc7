package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtools/benchpress/internal/assets"
	"github.com/benchtools/benchpress/internal/buildconfig"
	"github.com/benchtools/benchpress/internal/logger"
)

const indexTemplate = `<!doctype html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<div id="app"></div>
{{range .Scripts}}<script type="module" src="{{.}}"></script>
{{end}}</body>
</html>
`

// newBuiltServer builds a small project and returns a dev server over it,
// with /api proxied to the given backend URL.
func newBuiltServer(t *testing.T, backendURL string) *Server {
	t.Helper()
	return newBuiltServerTemplate(t, backendURL, "index.html")
}

func newBuiltServerTemplate(t *testing.T, backendURL, templateName string) *Server {
	t.Helper()

	appDir := filepath.Join(t.TempDir(), "myapp")
	base := filepath.Join(appDir, "frontend")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "src"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(base, "src", "main.js"), []byte(`console.log("dev");`), 0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(base, templateName), []byte(indexTemplate), 0o600))

	cfg := &buildconfig.BuildConfiguration{
		BasePath:       base,
		EntryPointGlob: "src/main.*",
		DevServer: buildconfig.DevServer{
			Port: 8080,
			ProxyRules: []buildconfig.ProxyRule{
				{Prefix: "/api", Target: backendURL},
			},
		},
		PathAliases: map[string]string{"@": filepath.Join(base, "src")},
		BuildOutput: buildconfig.BuildOutput{
			OutputDirectory:  filepath.Join(appDir, "public", "frontend"),
			CleanBeforeBuild: true,
			TargetPlatform:   "es2020",
			SourceMapMode:    buildconfig.SourceMapNone,
		},
	}

	pipeline, err := assets.NewWithTemplate(cfg, filepath.Join(base, templateName))
	require.NoError(t, err)
	require.NoError(t, pipeline.Build())

	return New(cfg, pipeline, logger.Setup(false))
}

func TestServer_Handler_ServesBuiltAssets(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:0")

	handler, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public/frontend/main.js", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev")
}

func TestServer_Handler_RendersEntryPage(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:0")

	handler, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="/public/frontend/main.js"`)
}

func TestServer_Handler_RendersCustomTemplateName(t *testing.T) {
	s := newBuiltServerTemplate(t, "http://127.0.0.1:0", "shell.html")

	handler, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="/public/frontend/main.js"`)
}

func TestServer_Handler_DuplicateProxyPrefix(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:0")
	s.cfg.DevServer.ProxyRules = append(s.cfg.DevServer.ProxyRules,
		buildconfig.ProxyRule{Prefix: "/api", Target: "http://127.0.0.1:9200"})

	_, err := s.Handler()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate proxy rule /api")
}

func TestServer_Handler_SPAFallback(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:0")

	handler, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="app">`)
}

func TestServer_Handler_ProxiesBackendRoutes(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("frappe:" + r.URL.Path))
	}))
	defer backend.Close()

	s := newBuiltServer(t, backend.URL)

	handler, err := s.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/method/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frappe:/api/method/ping", rec.Body.String())
}

func TestServer_WaitForBackend_Reachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer backend.Close()

	s := newBuiltServer(t, backend.URL)
	require.NoError(t, s.waitForBackend(context.Background()))
}

func TestServer_WaitForBackend_GivesUpOnCancel(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.Error(t, s.waitForBackend(ctx))
}

func TestServer_WaitForBackend_NoRules(t *testing.T) {
	s := newBuiltServer(t, "http://127.0.0.1:0")
	s.cfg.DevServer.ProxyRules = nil
	require.NoError(t, s.waitForBackend(context.Background()))
}
