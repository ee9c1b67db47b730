// Package waf recognises protection vendors from response headers.
//
// Detection is passive and best effort: a vendor that strips its headers
// goes unnoticed, and that is acceptable.
package waf

import (
	"net/http"
	"strings"
)

// Vendor labels reported by Fingerprint.
const (
	Cloudflare = "Cloudflare"
	AWS        = "AWS WAF / CloudFront"
	Akamai     = "Akamai"
	Imperva    = "Imperva"
)

// Signature is one vendor rule. Match receives headers with lowercased names
// and values, multiple values joined by ", ".
type Signature struct {
	Vendor string
	Match  func(h map[string]string) bool
}

// signatures are evaluated independently; one response may match several.
var signatures = []Signature{
	{
		Vendor: Cloudflare,
		Match: func(h map[string]string) bool {
			_, ray := h["cf-ray"]
			return ray || strings.Contains(h["server"], "cloudflare")
		},
	},
	{
		Vendor: AWS,
		Match: func(h map[string]string) bool {
			_, id := h["x-amzn-requestid"]
			return id || strings.Contains(h["via"], "cloudfront")
		},
	},
	{
		Vendor: Akamai,
		Match: func(h map[string]string) bool {
			return anyName(h, "akamai")
		},
	},
	{
		Vendor: Imperva,
		Match: func(h map[string]string) bool {
			if _, ok := h["x-iinfo"]; ok {
				return true
			}
			if anyName(h, "incap_ses") {
				return true
			}
			for _, v := range h {
				if strings.Contains(v, "incap_ses") {
					return true
				}
			}
			return false
		},
	},
}

func anyName(h map[string]string, sub string) bool {
	for k := range h {
		if strings.Contains(k, sub) {
			return true
		}
	}
	return false
}

// normalize lowercases header names and values. http.Header built by hand
// may carry non-canonical keys, so names are folded here rather than
// trusting Get.
func normalize(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k, vs := range header {
		k = strings.ToLower(k)
		v := strings.ToLower(strings.Join(vs, ", "))
		if prev, ok := out[k]; ok && prev != "" {
			v = prev + ", " + v
		}
		out[k] = v
	}
	return out
}

// Fingerprint returns the vendors recognised in header. The result is never
// nil; no match yields an empty set.
func Fingerprint(header http.Header) Vendors {
	found := make(Vendors)
	if len(header) == 0 {
		return found
	}
	h := normalize(header)
	for _, sig := range signatures {
		if sig.Match(h) {
			found[sig.Vendor] = struct{}{}
		}
	}
	return found
}
