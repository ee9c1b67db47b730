package waf

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header http.Header
		want   []string
	}{
		{"cf-ray raw key", http.Header{"CF-RAY": {"abc"}}, []string{Cloudflare}},
		{"cloudflare server", http.Header{"Server": {"CloudFlare"}}, []string{Cloudflare}},
		{"amzn request id", http.Header{"X-Amzn-Requestid": {"1"}}, []string{AWS}},
		{"cloudfront via", http.Header{"Via": {"1.1 abc.cloudfront.net (CloudFront)"}}, []string{AWS}},
		{"akamai header name", http.Header{"X-Akamai-Transformed": {"9"}}, []string{Akamai}},
		{"akamai only in value", http.Header{"Server": {"AkamaiGHost"}}, []string{}},
		{"iinfo", http.Header{"X-Iinfo": {"1-2-3"}}, []string{Imperva}},
		{"incap cookie value", http.Header{"Set-Cookie": {"incap_ses_123=abc; path=/"}}, []string{Imperva}},
		{
			"multiple vendors",
			http.Header{"Cf-Ray": {"x"}, "Via": {"cloudfront"}, "X-Iinfo": {"y"}},
			[]string{AWS, Cloudflare, Imperva},
		},
		{"no vendor", http.Header{"Server": {"nginx"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.header)
			assert.Equal(t, tt.want, got.List())
		})
	}
}

func TestFingerprint_EmptyIsNonNil(t *testing.T) {
	t.Parallel()
	for _, h := range []http.Header{nil, {}} {
		got := Fingerprint(h)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestVendors_Union(t *testing.T) {
	t.Parallel()
	var acc Vendors
	acc = acc.Union(NewVendors(Cloudflare))
	acc = acc.Union(NewVendors(Cloudflare, Akamai))
	acc = acc.Union(nil)

	assert.Equal(t, []string{Akamai, Cloudflare}, acc.List())
	assert.True(t, acc.Has(Akamai))
	assert.Equal(t, "Akamai, Cloudflare", acc.String())
	assert.Equal(t, "None", Vendors{}.String())
}

func TestVendors_CloneIsIndependent(t *testing.T) {
	t.Parallel()
	a := NewVendors(Imperva)
	b := a.Clone()
	b[Akamai] = struct{}{}
	assert.False(t, a.Has(Akamai))
	assert.NotNil(t, Vendors(nil).Clone())
}

func BenchmarkFingerprint(b *testing.B) {
	h := http.Header{
		"Server":          {"cloudflare"},
		"Cf-Ray":          {"7f1234abcdef-IAD"},
		"Cf-Cache-Status": {"DYNAMIC"},
		"Content-Type":    {"text/html; charset=utf-8"},
		"X-Request-Id":    {"req-abcdef-123456"},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Fingerprint(h)
	}
}
