// Package httpclient builds the HTTP client used to replay probe requests.
//
// The client never follows redirects: a 3xx from the target is itself an
// observation and must reach the classifier untouched.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/dvat-tool/dvat/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total per-request timeout (default: 5s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an optional http, https, socks5 or socks5h proxy URL
	Proxy string

	// MaxIdleConnsPerHost bounds pooled connections to one target (default: 2)
	MaxIdleConnsPerHost int

	// DisableKeepAlives forces a fresh connection for every probe
	DisableKeepAlives bool
}

// DefaultConfig returns the probe defaults: 5s timeout, verified TLS,
// keep-alives on. Phases are strictly sequential so a tiny pool suffices.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.RequestTimeout,
		MaxIdleConnsPerHost: 2,
	}
}

// New creates a probe client. It returns an error only when the proxy URL
// cannot be used.
func New(cfg Config) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.RequestTimeout
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 2
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       duration.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   duration.TLSHandshake,
		ExpectContinueTimeout: duration.ExpectContinue,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
		},
	}

	if err := applyProxy(transport, cfg.Proxy); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Redirects are observations, not instructions
			return http.ErrUseLastResponse
		},
	}, nil
}

// applyProxy wires cfg.Proxy into the transport. HTTP(S) proxies use the
// standard CONNECT path; SOCKS proxies replace the dialer.
func applyProxy(transport *http.Transport, raw string) error {
	pc, err := ParseProxyURL(raw)
	if err != nil {
		return err
	}
	if pc == nil {
		return nil
	}

	if !pc.IsSOCKS {
		transport.Proxy = http.ProxyURL(pc.URL)
		return nil
	}

	d, err := CreateSOCKSDialer(pc, duration.DialTimeout)
	if err != nil {
		return err
	}
	transport.DialContext = d.DialContext
	return nil
}
