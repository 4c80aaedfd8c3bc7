package commands

import (
	"fmt"

	"github.com/benchtools/benchpress/internal/assets"
	"github.com/benchtools/benchpress/internal/logger"
)

type BuildCmd struct {
	ResolveFlags `embed:""`

	Prebundle bool `help:"eagerly bundle hinted dependencies" default:"true" negatable:""`
}

func (c *BuildCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, err := c.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve build configuration: %w", err)
	}

	log.Info().
		Str("version", globals.Version).
		Str("base", cfg.BasePath).
		Str("outdir", cfg.BuildOutput.OutputDirectory).
		Msg("Building frontend assets")

	pipeline := assets.New(cfg)

	if c.Prebundle {
		if err := pipeline.Prebundle(); err != nil {
			return fmt.Errorf("failed to prebundle dependencies: %w", err)
		}
	}

	return pipeline.Build()
}
