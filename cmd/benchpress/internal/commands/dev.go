package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/benchtools/benchpress/internal/assets"
	"github.com/benchtools/benchpress/internal/devserver"
	"github.com/benchtools/benchpress/internal/logger"
)

type DevCmd struct {
	ResolveFlags `embed:""`

	Template string `help:"HTML shell template, relative to the project" default:"index.html"`
	Watch    bool   `help:"rebuild when source files change" default:"true" negatable:""`
}

func (c *DevCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, err := c.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve build configuration: %w", err)
	}

	log.Info().
		Str("version", globals.Version).
		Int("port", cfg.DevServer.Port).
		Str("backend", cfg.DevServer.ProxyRules[0].Target).
		Msg("Starting dev server")

	pipeline, err := assets.NewWithTemplate(cfg, filepath.Join(cfg.BasePath, c.Template))
	if err != nil {
		return fmt.Errorf("failed to load shell template: %w", err)
	}

	if err := pipeline.Prebundle(); err != nil {
		return fmt.Errorf("failed to prebundle dependencies: %w", err)
	}
	if err := pipeline.Build(); err != nil {
		return fmt.Errorf("failed to build assets: %w", err)
	}

	srv := devserver.New(cfg, pipeline, log)

	if c.Watch {
		watcher := devserver.NewWatcher(cfg.SourceDir(), srv.Rebuild, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Watcher stopped")
			}
		}()
	}

	return srv.Start(ctx)
}
