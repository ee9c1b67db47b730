package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvat-tool/dvat/pkg/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, duration.RequestTimeout, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	assert.Nil(t, tr.Proxy)
}

func TestNew_DoesNotFollowRedirects(t *testing.T) {
	var followed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/next" {
			followed = true
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	c, err := New(DefaultConfig())
	require.NoError(t, err)

	resp, err := c.Get(srv.URL + "/start")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/next", resp.Header.Get("Location"))
	assert.False(t, followed)
}

func TestNew_HTTPProxy(t *testing.T) {
	c, err := New(Config{Proxy: "http://127.0.0.1:8080"})
	require.NoError(t, err)
	tr := c.Transport.(*http.Transport)
	require.NotNil(t, tr.Proxy)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", u.Host)
}

func TestNew_SOCKSProxy(t *testing.T) {
	c, err := New(Config{Proxy: "socks5://127.0.0.1:1080"})
	require.NoError(t, err)
	tr := c.Transport.(*http.Transport)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := New(Config{Proxy: "ftp://127.0.0.1:21"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProxy))
}

func TestParseProxyURL(t *testing.T) {
	tests := []struct {
		in      string
		scheme  string
		addr    string
		socks   bool
		remote  bool
		wantErr bool
	}{
		{in: "", scheme: ""},
		{in: "127.0.0.1:8080", scheme: "http", addr: "127.0.0.1:8080"},
		{in: "http://burp", scheme: "http", addr: "burp:8080"},
		{in: "https://proxy.local", scheme: "https", addr: "proxy.local:8443"},
		{in: "socks5://tor", scheme: "socks5", addr: "tor:1080", socks: true},
		{in: "SOCKS5H://tor:9050", scheme: "socks5h", addr: "tor:9050", socks: true, remote: true},
		{in: "gopher://x", wantErr: true},
		{in: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pc, err := ParseProxyURL(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProxy)
				return
			}
			require.NoError(t, err)
			if tt.scheme == "" {
				assert.Nil(t, pc)
				return
			}
			assert.Equal(t, tt.scheme, pc.Scheme)
			assert.Equal(t, tt.addr, pc.Address())
			assert.Equal(t, tt.socks, pc.IsSOCKS)
			assert.Equal(t, tt.remote, pc.IsDNSRemote)
		})
	}
}
