package assets

import (
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// prebundleDir is where eagerly bundled dependencies land, relative to the
// project base.
const prebundleDir = "node_modules/.benchpress"

// Prebundle eagerly bundles each hinted dependency into the prebundle cache
// so dev-server cold starts don't pay for resolving deep package graphs.
// Hints are best effort: a dependency that cannot be bundled (not installed,
// CommonJS-only oddities) is logged and skipped.
func (p *Pipeline) Prebundle() error {
	if len(p.cfg.DependencyPrebundleHints) == 0 {
		return nil
	}

	cacheDir := filepath.Join(p.cfg.BasePath, prebundleDir)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	for _, dep := range p.cfg.DependencyPrebundleHints {
		result := api.Build(api.BuildOptions{
			AbsWorkingDir: p.cfg.BasePath,
			EntryPoints:   []string{dep},
			Bundle:        true,
			Write:         true,
			Outdir:        cacheDir,
			Format:        api.FormatESModule,
			LogLevel:      api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			log.Warn().Str("dependency", dep).Str("error", result.Errors[0].Text).Msg("Prebundle skipped")
			continue
		}
		log.Debug().Str("dependency", dep).Msg("Prebundled")
	}

	return nil
}
