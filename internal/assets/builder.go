package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/benchtools/benchpress/internal/buildconfig"
)

// assetMountPath is the URL prefix built assets are served under. It mirrors
// the fixed public/frontend tail of the output directory.
const assetMountPath = "/public/frontend/"

// Build runs esbuild with the resolved configuration and caches the bundle
// metadata for script loading.
func (p *Pipeline) Build() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buildID := uuid.NewString()

	entryPoints, err := filepath.Glob(filepath.Join(p.cfg.BasePath, p.cfg.EntryPointGlob))
	if err != nil {
		return err
	}
	if len(entryPoints) == 0 {
		return fmt.Errorf("no entry points match %s under %s", p.cfg.EntryPointGlob, p.cfg.BasePath)
	}

	target, err := parseTarget(p.cfg.BuildOutput.TargetPlatform)
	if err != nil {
		return err
	}

	outDir := p.cfg.BuildOutput.OutputDirectory
	if p.cfg.BuildOutput.CleanBeforeBuild {
		if err := os.RemoveAll(outDir); err != nil {
			return fmt.Errorf("cleaning output directory: %w", err)
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	log.Info().
		Str("build_id", buildID).
		Strs("entrypoints", entryPoints).
		Str("outdir", outDir).
		Str("sourcemap", string(p.cfg.BuildOutput.SourceMapMode)).
		Msg("Building assets")

	result := api.Build(api.BuildOptions{
		AbsWorkingDir: p.cfg.BasePath,
		EntryPoints:   entryPoints,
		Bundle:        true,
		Splitting:     true,
		Write:         true,
		Outdir:        outDir,
		Format:        api.FormatESModule,
		Target:        target,
		Alias:         p.cfg.PathAliases,
		Plugins:       resolvePlugins(p.cfg),
		TreeShaking:   api.TreeShakingTrue,
		Sourcemap:     sourceMap(p.cfg.BuildOutput.SourceMapMode),
		Metafile:      true,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("build_id", buildID).Str("error", msg.Text).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Debug().Str("build_id", buildID).Str("file", file.Path).Msg("Built file")
	}

	if err := os.WriteFile(filepath.Join(outDir, "meta.json"), []byte(result.Metafile), 0o600); err != nil {
		return err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}

	p.metadata = &metadata
	log.Info().Str("build_id", buildID).Int("outputs", len(metadata.Outputs)).Msg("Build complete")
	return nil
}

// sourceMap maps the configuration's source-map mode onto esbuild's.
func sourceMap(mode buildconfig.SourceMapMode) api.SourceMap {
	if mode == buildconfig.SourceMapInline {
		return api.SourceMapInline
	}
	return api.SourceMapNone
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func parseTarget(name string) (api.Target, error) {
	target, ok := targets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unsupported target platform %q", name)
	}
	return target, nil
}

// EntryPoints returns the entry-point source paths recorded in the last build,
// sorted for determinism.
func (p *Pipeline) EntryPoints() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}

	var entries []string
	for _, info := range p.metadata.Outputs {
		if info.EntryPoint != "" {
			entries = append(entries, info.EntryPoint)
		}
	}
	sort.Strings(entries)
	return entries, nil
}

// LoadScripts returns the ordered list of script URLs needed for the given
// entrypoint and the URL of the entrypoint bundle itself.
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", errors.New("assets not built yet, call Build() first")
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			entrypoint := scriptURL(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", fmt.Errorf("entrypoint %s not found in build metadata", entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, scriptURL(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// scriptURL rewrites a metafile output path into the URL it is served under.
// Metafile paths are relative to the project base, so the output directory
// shows up as ../public/frontend/...; the fixed public/frontend tail is the
// mount point.
func scriptURL(outputPath string) string {
	if idx := strings.Index(outputPath, "public/frontend/"); idx >= 0 {
		return "/" + outputPath[idx:]
	}
	return assetMountPath + strings.TrimLeft(outputPath, "./")
}

// Handler returns an http.HandlerFunc that renders the given template with
// the script tags for an entrypoint.
func (p *Pipeline) Handler(templateName, title, entryPointPath string, contextFn func(ctx context.Context) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.tmpl == nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		scripts, _, err := p.LoadScripts(entryPointPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load scripts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if contextFn == nil {
			contextFn = func(ctx context.Context) any {
				return nil
			}
		}

		data := map[string]any{
			"Title":   title,
			"Scripts": scripts,
			"Context": contextFn(r.Context()),
		}

		if err := p.tmpl.ExecuteTemplate(w, templateName, data); err != nil {
			log.Error().Err(err).Msg("Failed to render template")
		}
	}
}
