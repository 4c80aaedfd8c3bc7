package buildconfig

import "errors"

// Resolution errors. Both are unrecoverable: the configuration is
// deterministic, so a retry without fixing the underlying input would fail
// identically. Callers are expected to let them propagate and abort startup.
var (
	// ErrSiteConfig indicates the shared site configuration file is
	// missing, unreadable, malformed, or lacks the webserver_port field.
	ErrSiteConfig = errors.New("invalid site configuration")
	// ErrLayout indicates the expected bench directory layout around the
	// frontend project is absent, so paths like the output directory
	// cannot be computed.
	ErrLayout = errors.New("unexpected project layout")
)
