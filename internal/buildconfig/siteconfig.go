package buildconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// siteConfig is the subset of common_site_config.json the resolver cares
// about. The file is shared by every app in the bench, so unknown fields are
// expected and ignored.
type siteConfig struct {
	WebserverPort *int `json:"webserver_port"`
	SocketIOPort  *int `json:"socketio_port"`
}

// readSiteConfig loads and validates the shared site configuration. Every
// failure mode wraps ErrSiteConfig so callers can classify it without
// inspecting the message.
func readSiteConfig(path string) (*siteConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSiteConfig, path, err)
	}
	defer f.Close()

	var cfg siteConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrSiteConfig, path, err)
	}

	if cfg.WebserverPort == nil {
		return nil, fmt.Errorf("%w: %s is missing required field webserver_port", ErrSiteConfig, path)
	}
	if *cfg.WebserverPort <= 0 || *cfg.WebserverPort > 65535 {
		return nil, fmt.Errorf("%w: webserver_port %d is out of range", ErrSiteConfig, *cfg.WebserverPort)
	}

	return &cfg, nil
}
