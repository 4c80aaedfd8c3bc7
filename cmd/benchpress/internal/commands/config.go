package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type ConfigCmd struct {
	ResolveFlags `embed:""`

	// out is swappable for tests.
	out io.Writer
}

func (c *ConfigCmd) Run(globals *Globals) error {
	cfg, err := c.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve build configuration: %w", err)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
