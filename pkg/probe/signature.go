package probe

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Signature hashes the shape of a response: its status and the sorted set
// of header names. Values are ignored so per-request IDs and dates do not
// produce new shapes. A WAF block page usually differs from the origin's
// responses in both.
func Signature(status int, header http.Header) uint32 {
	names := make([]string, 0, len(header))
	for k := range header {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(strconv.Itoa(status))
	for _, n := range names {
		b.WriteByte('\n')
		b.WriteString(n)
	}
	return murmur3.Sum32([]byte(b.String()))
}

// rateLimitHeaderPrefixes identify throttling metadata on a response.
var rateLimitHeaderPrefixes = []string{"x-ratelimit", "ratelimit", "x-rate-limit"}

// HasRateLimitHeaders reports whether header advertises rate limiting.
func HasRateLimitHeaders(header http.Header) bool {
	for k := range header {
		lk := strings.ToLower(k)
		if lk == "retry-after" {
			return true
		}
		for _, p := range rateLimitHeaderPrefixes {
			if strings.HasPrefix(lk, p) {
				return true
			}
		}
	}
	return false
}
