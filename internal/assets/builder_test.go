package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtools/benchpress/internal/buildconfig"
)

// newProject lays out a frontend project with the given source files and
// returns a configuration pointing at it.
func newProject(t *testing.T, files map[string]string) *buildconfig.BuildConfiguration {
	t.Helper()

	appDir := filepath.Join(t.TempDir(), "myapp")
	base := filepath.Join(appDir, "frontend")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "src"), 0o755))

	for name, content := range files {
		path := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return &buildconfig.BuildConfiguration{
		BasePath:       base,
		EntryPointGlob: "src/main.*",
		Plugins:        []string{"env"},
		PathAliases: map[string]string{
			"@": filepath.Join(base, "src"),
		},
		DevServer: buildconfig.DevServer{Port: 8080},
		BuildOutput: buildconfig.BuildOutput{
			OutputDirectory:  filepath.Join(appDir, "public", "frontend"),
			CleanBeforeBuild: true,
			TargetPlatform:   "es2017",
			SourceMapMode:    buildconfig.SourceMapInline,
		},
	}
}

func TestPipeline_Build(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/main.js": `import { greet } from "@/util.js";
import { target } from "benchpress:env";
greet(target);
`,
		"src/util.js": `export function greet(name) { console.log("hello " + name); }
`,
	})

	p := New(cfg)
	require.NoError(t, p.Build())

	outDir := cfg.BuildOutput.OutputDirectory
	bundle, err := os.ReadFile(filepath.Join(outDir, "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(bundle), "hello ")
	assert.Contains(t, string(bundle), "es2017")
	// Inline mode embeds the map in the bundle itself.
	assert.Contains(t, string(bundle), "sourceMappingURL=data:application/json")

	_, err = os.Stat(filepath.Join(outDir, "meta.json"))
	require.NoError(t, err)

	entries, err := p.EntryPoints()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.js"}, entries)

	scripts, entrypoint, err := p.LoadScripts("src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/public/frontend/main.js", entrypoint)
	assert.Contains(t, scripts, "/public/frontend/main.js")
}

func TestPipeline_Build_NoSourceMapOnCI(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/main.js": `console.log("ci build");`,
	})
	cfg.BuildOutput.SourceMapMode = buildconfig.SourceMapNone

	require.NoError(t, New(cfg).Build())

	bundle, err := os.ReadFile(filepath.Join(cfg.BuildOutput.OutputDirectory, "main.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(bundle), "sourceMappingURL")
}

func TestPipeline_Build_CleansOutputDirectory(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/main.js": `console.log("fresh");`,
	})

	stale := filepath.Join(cfg.BuildOutput.OutputDirectory, "stale.js")
	require.NoError(t, os.MkdirAll(cfg.BuildOutput.OutputDirectory, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	require.NoError(t, New(cfg).Build())

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_Build_KeepsOutputWhenCleanDisabled(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/main.js": `console.log("fresh");`,
	})
	cfg.BuildOutput.CleanBeforeBuild = false

	stale := filepath.Join(cfg.BuildOutput.OutputDirectory, "stale.js")
	require.NoError(t, os.MkdirAll(cfg.BuildOutput.OutputDirectory, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	require.NoError(t, New(cfg).Build())

	_, err := os.Stat(stale)
	require.NoError(t, err)
}

func TestPipeline_Build_NoEntryPoints(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/other.js": `console.log("not an entry");`,
	})
	cfg.EntryPointGlob = "src/main.*"

	err := New(cfg).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry points")
}

func TestPipeline_Build_UnknownTarget(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"src/main.js": `console.log("x");`,
	})
	cfg.BuildOutput.TargetPlatform = "es5000"

	err := New(cfg).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target platform")
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected api.Target
		wantErr  bool
	}{
		{
			name:     "es2015",
			input:    "es2015",
			expected: api.ES2015,
		},
		{
			name:     "uppercase accepted",
			input:    "ES2020",
			expected: api.ES2020,
		},
		{
			name:     "esnext",
			input:    "esnext",
			expected: api.ESNext,
		},
		{
			name:    "unknown",
			input:   "java8",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := parseTarget(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target)
		})
	}
}

func TestScriptURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "relative output path",
			input:    "../public/frontend/main.js",
			expected: "/public/frontend/main.js",
		},
		{
			name:     "chunk in subdirectory",
			input:    "../public/frontend/chunks/chunk-ABC123.js",
			expected: "/public/frontend/chunks/chunk-ABC123.js",
		},
		{
			name:     "path without marker",
			input:    "main.js",
			expected: "/public/frontend/main.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scriptURL(tt.input))
		})
	}
}

func TestLoadScripts_WalksChunkImports(t *testing.T) {
	p := New(newProject(t, nil))
	p.metadata = &BuildMetadata{
		Outputs: map[string]OutputInfo{
			"../public/frontend/main.js": {
				EntryPoint: "src/main.js",
				Imports:    []ImportInfo{{Path: "../public/frontend/chunk-a.js"}},
			},
			"../public/frontend/chunk-a.js": {
				Imports: []ImportInfo{{Path: "../public/frontend/chunk-b.js"}},
			},
			"../public/frontend/chunk-b.js": {},
		},
	}

	scripts, entrypoint, err := p.LoadScripts("src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/public/frontend/main.js", entrypoint)
	assert.Equal(t, []string{
		"/public/frontend/main.js",
		"/public/frontend/chunk-a.js",
		"/public/frontend/chunk-b.js",
	}, scripts)
}

func TestLoadScripts_NotBuilt(t *testing.T) {
	_, _, err := New(newProject(t, nil)).LoadScripts("src/main.js")
	require.Error(t, err)
}

func TestResolvePlugins_UnknownSkipped(t *testing.T) {
	cfg := newProject(t, nil)
	cfg.Plugins = []string{"env", "left-pad-accelerator"}

	plugins := resolvePlugins(cfg)
	require.Len(t, plugins, 1)
	assert.Equal(t, "env", plugins[0].Name)
}
