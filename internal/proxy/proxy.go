// Package proxy picks an egress proxy for extraction requests, optionally probing it first.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/url"
	"time"

	"titan/internal/errs"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"
	defaultTLSPort   = "443"
)

// Manager handles proxy selection and health checking.
type Manager struct {
	log           *slog.Logger
	proxies       []*url.URL
	healthCheck   bool
	healthTimeout time.Duration
}

// New validates the proxy URLs and returns a manager. An empty list yields a manager that hands out no proxy.
func New(log *slog.Logger, proxyURLs []string, healthCheck bool, healthTimeout time.Duration) (*Manager, error) {
	parsed := make([]*url.URL, 0, len(proxyURLs))

	for _, raw := range proxyURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url %q: %w", raw, err)
		}

		if u.Scheme == "" || u.Hostname() == "" {
			return nil, fmt.Errorf("proxy url %q: scheme and host required", raw)
		}

		if defaultPort(u.Scheme) == "" {
			return nil, fmt.Errorf("proxy url %q: unsupported scheme %q", raw, u.Scheme)
		}

		parsed = append(parsed, u)
	}

	return &Manager{
		log:           log.With(slog.String("package", "proxy")),
		proxies:       parsed,
		healthCheck:   healthCheck,
		healthTimeout: healthTimeout,
	}, nil
}

// GetProxy returns a random proxy URL, or "" when none are configured.
// With health checks on, proxies are probed in random order and the first reachable one wins.
func (m *Manager) GetProxy(ctx context.Context) (string, error) {
	if len(m.proxies) == 0 {
		return "", nil
	}

	if !m.healthCheck {
		return m.proxies[rand.IntN(len(m.proxies))].String(), nil
	}

	for _, idx := range rand.Perm(len(m.proxies)) {
		u := m.proxies[idx]
		if err := m.probe(ctx, u); err != nil {
			m.log.WarnContext(ctx, "proxy unhealthy", slog.String("proxy", u.Redacted()), slog.Any("error", err))

			continue
		}

		return u.String(), nil
	}

	return "", errs.ErrNoProxiesAvailable
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.proxies)
}

// probe opens and closes a TCP connection to the proxy.
func (m *Manager) probe(ctx context.Context, u *url.URL) error {
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.healthTimeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(checkCtx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return fmt.Errorf("dial proxy: %w", err)
	}

	return conn.Close()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "socks5", "socks5h", "socks4", "socks4a":
		return defaultSOCKSPort
	case "http":
		return defaultHTTPPort
	case "https":
		return defaultTLSPort
	default:
		return ""
	}
}
