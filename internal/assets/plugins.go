package assets

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/benchtools/benchpress/internal/buildconfig"
)

// pluginFactories maps configuration plugin names to implementations. Names
// are opaque to the resolver; unknown ones are skipped with a warning so a
// configuration written for a newer benchpress still builds here.
var pluginFactories = map[string]func(cfg *buildconfig.BuildConfiguration) api.Plugin{
	"env": envPlugin,
}

func resolvePlugins(cfg *buildconfig.BuildConfiguration) []api.Plugin {
	plugins := make([]api.Plugin, 0, len(cfg.Plugins))
	for _, name := range cfg.Plugins {
		factory, ok := pluginFactories[name]
		if !ok {
			log.Warn().Str("plugin", name).Msg("Unknown plugin, skipping")
			continue
		}
		plugins = append(plugins, factory(cfg))
	}
	return plugins
}

// envPlugin serves a virtual "benchpress:env" module exposing build-time
// facts, so application code can branch on them without process.env shims.
func envPlugin(cfg *buildconfig.BuildConfiguration) api.Plugin {
	return api.Plugin{
		Name: "env",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^benchpress:env$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: "benchpress-env"}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "benchpress-env"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := fmt.Sprintf(
						"export const target = %q;\nexport const sourcemap = %q;\nexport const devServerPort = %d;\n",
						cfg.BuildOutput.TargetPlatform,
						cfg.BuildOutput.SourceMapMode,
						cfg.DevServer.Port,
					)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}
