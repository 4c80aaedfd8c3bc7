package buildconfig

import (
	"errors"
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// overridesFile is the schema of the optional benchpress.yaml next to the
// frontend project. It can tune the dev server and pipeline but never the
// computed output directory or the CI source-map rule, which are applied
// after the merge.
type overridesFile struct {
	Port      int             `yaml:"port"`
	Entry     string          `yaml:"entry"`
	Target    string          `yaml:"target"`
	Clean     *bool           `yaml:"clean"`
	Plugins   []string        `yaml:"plugins"`
	Prebundle []string        `yaml:"prebundle"`
	Proxy     []proxyOverride `yaml:"proxy"`
}

type proxyOverride struct {
	Prefix    string `yaml:"prefix"`
	Target    string `yaml:"target"`
	WebSocket bool   `yaml:"websocket"`
}

// applyOverrides merges benchpress.yaml into cfg. A missing file is fine; a
// present but unreadable or malformed one is an error, since silently
// ignoring it would mask typos.
func applyOverrides(cfg *BuildConfiguration, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading overrides %s: %w", path, err)
	}

	var o overridesFile
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parsing overrides %s: %w", path, err)
	}

	partial := BuildConfiguration{
		EntryPointGlob: o.Entry,
		Plugins:        o.Plugins,
		DevServer: DevServer{
			Port: o.Port,
		},
		BuildOutput: BuildOutput{
			TargetPlatform: o.Target,
		},
		DependencyPrebundleHints: o.Prebundle,
	}
	for _, p := range o.Proxy {
		partial.DevServer.ProxyRules = append(partial.DevServer.ProxyRules, ProxyRule(p))
	}

	if err := mergo.Merge(cfg, partial, mergo.WithOverride); err != nil {
		return fmt.Errorf("merging overrides %s: %w", path, err)
	}

	// mergo skips zero values, so an explicit clean: false needs its own
	// pointer field.
	if o.Clean != nil {
		cfg.BuildOutput.CleanBeforeBuild = *o.Clean
	}

	return nil
}
