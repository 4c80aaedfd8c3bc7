package commands

import (
	"github.com/benchtools/benchpress/internal/buildconfig"
)

type Globals struct {
	Debug   bool
	Version string
}

// ResolveFlags are shared by every command that needs a resolved build
// configuration.
type ResolveFlags struct {
	Base       string `help:"path to the frontend project directory" default:"." env:"BENCHPRESS_BASE"`
	SiteConfig string `help:"path to common_site_config.json (defaults to the bench sites directory)" env:"BENCHPRESS_SITE_CONFIG"`
	Overrides  string `help:"path to the overrides file (defaults to <base>/benchpress.yaml)" env:"BENCHPRESS_OVERRIDES"`
}

// Resolve runs the configuration resolver over the flags.
func (f *ResolveFlags) Resolve() (*buildconfig.BuildConfiguration, error) {
	return buildconfig.NewResolver(buildconfig.Options{
		BasePath:       f.Base,
		SiteConfigPath: f.SiteConfig,
		OverridesPath:  f.Overrides,
	}).Resolve()
}
