// Package probe classifies HTTP outcomes and runs the rate-paced request
// loop of a single assessment phase.
package probe

import "net/http"

// Event is the category of one attempted request.
type Event string

const (
	Allowed     Event = "ALLOWED"
	ClientError Event = "CLIENT_ERROR"
	ServerError Event = "SERVER_ERROR"
	WAFBlock    Event = "WAF_BLOCK"
	RateLimit   Event = "RATE_LIMIT"
	Timeout     Event = "TIMEOUT"
	Error       Event = "ERROR"

	// Unknown is never recorded for a request. It is the dominant event of
	// a phase that recorded nothing.
	Unknown Event = "UNKNOWN"
)

// Events returns every recordable event in dominance tie-break order.
func Events() []Event {
	return []Event{RateLimit, WAFBlock, ServerError, ClientError, Allowed, Timeout, Error}
}

// Defensive reports whether e signals active protection.
func (e Event) Defensive() bool {
	switch e {
	case RateLimit, WAFBlock, Timeout:
		return true
	}
	return false
}

// ClassifyStatus maps a response status code to its event. Redirects are
// not followed upstream, so 3xx lands here as Allowed.
func ClassifyStatus(status int) Event {
	switch {
	case status == http.StatusTooManyRequests:
		return RateLimit
	case status == http.StatusForbidden:
		return WAFBlock
	case status >= 500:
		return ServerError
	case status >= 400:
		return ClientError
	default:
		return Allowed
	}
}

// Counts tallies events for one phase.
type Counts map[Event]int

// Get returns the count for e; missing events count zero.
func (c Counts) Get(e Event) int { return c[e] }

// Total returns the sum of all counts.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Dominant returns the event with the highest count, ties broken by
// Events() order. An empty or all-zero tally yields Unknown.
func (c Counts) Dominant() Event {
	best, bestN := Unknown, 0
	for _, e := range Events() {
		if n := c[e]; n > bestN {
			best, bestN = e, n
		}
	}
	return best
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
