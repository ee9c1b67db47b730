package httpclient

// Supported proxy schemes:
//   - http://   HTTP CONNECT proxy (Burp, ZAP)
//   - https://  HTTPS CONNECT proxy
//   - socks5:// SOCKS5 proxy (local DNS resolution)
//   - socks5h:// SOCKS5 proxy with remote DNS resolution

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ProxyConfig holds a parsed proxy URL.
type ProxyConfig struct {
	URL         *url.URL
	Scheme      string
	Host        string
	Port        string
	IsSOCKS     bool
	IsDNSRemote bool
}

// ParseProxyURL validates and parses a proxy URL string.
// Returns nil, nil if proxyURL is empty (no proxy configured).
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}

	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q (supported: http, https, socks5, socks5h)", ErrInvalidProxy, scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	return &ProxyConfig{
		URL:         parsed,
		Scheme:      scheme,
		Host:        host,
		Port:        port,
		IsSOCKS:     strings.HasPrefix(scheme, "socks"),
		IsDNSRemote: scheme == "socks5h",
	}, nil
}

// Address returns the proxy address in host:port format
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer is an interface for dialers that support context
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type timeoutDialer struct {
	dialer  proxy.ContextDialer
	timeout time.Duration
}

func (t *timeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	conn, err := t.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProxyConnect, err)
	}
	return conn, nil
}

// CreateSOCKSDialer creates a SOCKS5 dialer from ProxyConfig.
// socks5h relies on passing hostnames through, which the x/net dialer does.
func CreateSOCKSDialer(config *ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidProxy)
	}

	proxyURL := &url.URL{
		Scheme: "socks5",
		Host:   config.Address(),
		User:   config.URL.User,
	}

	d, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: dialer lacks context support", ErrInvalidProxy)
	}

	return &timeoutDialer{dialer: cd, timeout: timeout}, nil
}
