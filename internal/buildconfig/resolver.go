package buildconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Options configures a Resolver. BasePath is the only required field: the
// location of the configuration is an explicit input, never inferred from the
// process working directory.
type Options struct {
	// BasePath is the frontend project directory (the one containing src/).
	BasePath string
	// SiteConfigPath overrides the default location of
	// common_site_config.json (<bench>/sites/common_site_config.json).
	SiteConfigPath string
	// OverridesPath overrides the default location of benchpress.yaml
	// (<BasePath>/benchpress.yaml). The file is optional either way.
	OverridesPath string
	// Environment replaces the process environment, for tests. Nil means
	// use the real one.
	Environment map[string]string
}

// Resolver produces a BuildConfiguration from the bench layout, the shared
// site configuration, and the process environment.
type Resolver struct {
	opts Options
}

// NewResolver returns a resolver for the given options.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// envOverlay is the environment-derived slice of the configuration.
type envOverlay struct {
	CI       string `env:"CI"`
	Port     int    `env:"BENCHPRESS_PORT"`
	SitesDir string `env:"BENCHPRESS_SITES_DIR"`
}

// ciActive reports whether the continuous-integration signal is set. CI
// providers disagree on the value ("true", "1", "yes"), so any value that is
// not an explicit false counts as active.
func (e envOverlay) ciActive() bool {
	if e.CI == "" {
		return false
	}
	if b, err := strconv.ParseBool(e.CI); err == nil {
		return b
	}
	return true
}

// Resolve computes the full configuration. Resolution is all-or-nothing: on
// any error no partial configuration is returned. It reads the filesystem and
// environment but has no other side effects, and the same inputs always
// produce the same configuration.
func (r *Resolver) Resolve() (*BuildConfiguration, error) {
	base, err := r.resolveBasePath()
	if err != nil {
		return nil, err
	}

	overlay, err := r.parseEnv()
	if err != nil {
		return nil, err
	}

	site, err := readSiteConfig(r.siteConfigPath(base, overlay))
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := applyOverrides(cfg, r.overridesPath(base)); err != nil {
		return nil, err
	}
	if overlay.Port != 0 {
		cfg.DevServer.Port = overlay.Port
	}

	cfg.BasePath = base
	cfg.PathAliases = map[string]string{
		"@": filepath.Join(base, "src"),
	}
	cfg.DevServer.ProxyRules = proxyRules(site, cfg.DevServer.ProxyRules)

	// Computed and environment-bound fields are applied after overrides so
	// no override file can violate them.
	cfg.BuildOutput.OutputDirectory = filepath.Join(filepath.Dir(base), "public", "frontend")
	if overlay.ciActive() {
		cfg.BuildOutput.SourceMapMode = SourceMapNone
	} else {
		cfg.BuildOutput.SourceMapMode = SourceMapInline
	}

	return cfg, nil
}

// resolveBasePath validates the frontend project directory and the bench
// layout around it.
func (r *Resolver) resolveBasePath() (string, error) {
	if r.opts.BasePath == "" {
		return "", fmt.Errorf("%w: base path is required", ErrLayout)
	}

	base, err := filepath.Abs(r.opts.BasePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLayout, err)
	}

	info, err := os.Stat(base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLayout, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrLayout, base)
	}

	// The output directory is a sibling public/ tree inside the app
	// directory, so the project must actually live inside one.
	if filepath.Dir(base) == base {
		return "", fmt.Errorf("%w: %s has no parent app directory", ErrLayout, base)
	}

	srcDir := filepath.Join(base, "src")
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: missing source directory %s", ErrLayout, srcDir)
	}

	return base, nil
}

func (r *Resolver) parseEnv() (envOverlay, error) {
	var overlay envOverlay
	opts := env.Options{}
	if r.opts.Environment != nil {
		opts.Environment = r.opts.Environment
	}
	if err := env.ParseWithOptions(&overlay, opts); err != nil {
		return envOverlay{}, fmt.Errorf("parsing environment: %w", err)
	}
	return overlay, nil
}

// siteConfigPath locates common_site_config.json. The default follows the
// bench convention of <bench>/apps/<app>/frontend next to <bench>/sites.
func (r *Resolver) siteConfigPath(base string, overlay envOverlay) string {
	if r.opts.SiteConfigPath != "" {
		return r.opts.SiteConfigPath
	}
	if overlay.SitesDir != "" {
		return filepath.Join(overlay.SitesDir, "common_site_config.json")
	}
	return filepath.Join(base, "..", "..", "..", "sites", "common_site_config.json")
}

func (r *Resolver) overridesPath(base string) string {
	if r.opts.OverridesPath != "" {
		return r.opts.OverridesPath
	}
	return filepath.Join(base, "benchpress.yaml")
}

// proxyRules derives the dev-server forwarding table from the site's web
// server port. Extra prefixes from the overrides file are applied last and
// replace a standard rule with the same prefix, so the table never holds two
// rules for one prefix.
func proxyRules(site *siteConfig, extra []ProxyRule) []ProxyRule {
	target := fmt.Sprintf("http://127.0.0.1:%d", *site.WebserverPort)

	rules := make([]ProxyRule, 0, len(proxyPrefixes)+len(extra)+1)
	for _, prefix := range proxyPrefixes {
		rules = append(rules, ProxyRule{Prefix: prefix, Target: target})
	}

	// Benches run socketio on webserver_port+1000 unless the site config
	// says otherwise.
	socketPort := *site.WebserverPort + 1000
	if site.SocketIOPort != nil {
		socketPort = *site.SocketIOPort
	}
	rules = append(rules, ProxyRule{
		Prefix:    "/socket.io",
		Target:    fmt.Sprintf("http://127.0.0.1:%d", socketPort),
		WebSocket: true,
	})

	for _, rule := range extra {
		if rule.Target == "" {
			rule.Target = target
		}
		rules = upsertRule(rules, rule)
	}

	return rules
}

// upsertRule replaces the rule with the same prefix, or appends.
func upsertRule(rules []ProxyRule, rule ProxyRule) []ProxyRule {
	for i := range rules {
		if rules[i].Prefix == rule.Prefix {
			rules[i] = rule
			return rules
		}
	}
	return append(rules, rule)
}
