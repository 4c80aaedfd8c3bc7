package devserver

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// backendWaitTimeout bounds how long the dev server waits for the site web
// server to come up before giving up.
const backendWaitTimeout = 30 * time.Second

// waitForBackend blocks until the first proxy target accepts TCP connections.
// The dev server is useless without its backend, so starting before the web
// server is up would just turn every page load into a 502.
func (s *Server) waitForBackend(ctx context.Context) error {
	rules := s.cfg.DevServer.ProxyRules
	if len(rules) == 0 {
		return nil
	}

	u, err := url.Parse(rules[0].Target)
	if err != nil {
		return err
	}

	s.log.Info().Str("backend", u.Host).Msg("Waiting for backend")

	operation := func() (struct{}, error) {
		conn, err := net.DialTimeout("tcp", u.Host, time.Second)
		if err != nil {
			return struct{}{}, err
		}
		_ = conn.Close()
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(backendWaitTimeout),
	)
	if err != nil {
		return fmt.Errorf("backend %s did not become reachable: %w", u.Host, err)
	}

	s.log.Info().Str("backend", u.Host).Msg("Backend is up")
	return nil
}
