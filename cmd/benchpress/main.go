package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/benchtools/benchpress/cmd/benchpress/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Build   commands.BuildCmd  `cmd:"" help:"Build frontend assets once"`
		Dev     commands.DevCmd    `cmd:"" help:"Start the dev server with backend proxying and watch mode"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration as JSON"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
