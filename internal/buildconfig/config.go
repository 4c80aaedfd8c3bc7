package buildconfig

import "path/filepath"

// SourceMapMode controls how source maps are emitted for built assets.
type SourceMapMode string

const (
	// SourceMapNone disables source map generation. Always used on CI so
	// published artifacts are not bloated with (or leak) inline maps.
	SourceMapNone SourceMapMode = "none"
	// SourceMapInline embeds the source map directly in the emitted bundle.
	SourceMapInline SourceMapMode = "inline"
)

// ProxyRule forwards dev-server requests matching Prefix to Target.
type ProxyRule struct {
	// Prefix is the URL path prefix to match, e.g. "/api".
	Prefix string `json:"prefix"`
	// Target is the backend base URL, e.g. "http://127.0.0.1:8000".
	Target string `json:"target"`
	// WebSocket marks rules that carry upgraded connections (socket.io).
	WebSocket bool `json:"websocket,omitempty"`
}

// DevServer holds the dev-server settings of a resolved configuration.
type DevServer struct {
	// Port the dev server listens on.
	Port int `json:"port"`
	// ProxyRules forward backend routes to the site's web server, in the
	// order they should be mounted.
	ProxyRules []ProxyRule `json:"proxyRules"`
}

// BuildOutput describes where and how built assets are written.
type BuildOutput struct {
	// OutputDirectory is always computed from the app directory layout,
	// never configured directly: <app>/public/frontend next to the
	// frontend project.
	OutputDirectory string `json:"outputDirectory"`
	// CleanBeforeBuild empties OutputDirectory before each build.
	CleanBeforeBuild bool `json:"cleanBeforeBuild"`
	// TargetPlatform names the minimum supported runtime (es2015..esnext).
	TargetPlatform string `json:"targetPlatform"`
	// SourceMapMode is none on CI and inline everywhere else.
	SourceMapMode SourceMapMode `json:"sourceMapMode"`
}

// BuildConfiguration is the fully resolved configuration handed to the asset
// pipeline and dev server. It is constructed once per invocation by
// Resolver.Resolve and never mutated afterwards.
type BuildConfiguration struct {
	// BasePath is the absolute path of the frontend project directory.
	BasePath string `json:"basePath"`
	// EntryPointGlob locates build entry points relative to BasePath.
	EntryPointGlob string `json:"entryPointGlob"`
	// Plugins names the build extensions to activate, in order. Names are
	// opaque here; the asset pipeline maps them to implementations.
	Plugins []string `json:"plugins"`
	// DevServer settings.
	DevServer DevServer `json:"devServer"`
	// PathAliases maps import prefixes to absolute directories,
	// e.g. "@" -> <BasePath>/src.
	PathAliases map[string]string `json:"pathAliases"`
	// BuildOutput settings.
	BuildOutput BuildOutput `json:"buildOutput"`
	// DependencyPrebundleHints lists packages to eagerly bundle for fast
	// dev-server cold starts.
	DependencyPrebundleHints []string `json:"dependencyPrebundleHints"`
}

// AppDir returns the app directory containing the frontend project,
// i.e. the parent of BasePath.
func (c *BuildConfiguration) AppDir() string {
	return filepath.Dir(c.BasePath)
}

// SourceDir returns the directory the "@" alias points at.
func (c *BuildConfiguration) SourceDir() string {
	return filepath.Join(c.BasePath, "src")
}

// defaults returns the fixed portion of the configuration before overrides,
// environment overlay, and computed paths are applied.
func defaults() *BuildConfiguration {
	return &BuildConfiguration{
		EntryPointGlob: "src/main.*",
		Plugins:        []string{"env"},
		DevServer: DevServer{
			Port: 8080,
		},
		BuildOutput: BuildOutput{
			CleanBeforeBuild: true,
			TargetPlatform:   "es2015",
		},
		DependencyPrebundleHints: []string{
			"feather-icons",
			"showdown",
			"engine.io-client",
		},
	}
}

// proxyPrefixes are the backend routes the dev server forwards to the site's
// web server. Everything else is served by the dev server itself.
var proxyPrefixes = []string{"/app", "/api", "/assets", "/files", "/login", "/private"}
