package devserver

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/benchtools/benchpress/internal/buildconfig"
)

// newProxyHandler creates a reverse proxy handler that forwards requests
// matching one rule to the site's web server.
func newProxyHandler(rule buildconfig.ProxyRule, log zerolog.Logger) (http.Handler, error) {
	u, err := url.Parse(rule.Target)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	if rule.WebSocket {
		// Upgraded connections must not be buffered.
		proxy.FlushInterval = -1
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("prefix", rule.Prefix).Str("target", rule.Target).Msg("Backend unreachable")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}

	return proxy, nil
}
