package request

import "strings"

// Header is a single name/value pair with the name's case preserved.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Lookups are case-insensitive; the
// original spelling and insertion order are kept for replay.
type Headers []Header

// Get returns the value for name, matched case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, kv := range h {
		if strings.EqualFold(kv.Name, name) {
			return kv.Value, true
		}
	}
	return "", false
}

// Has reports whether a header named name exists.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Set returns a copy of h with name set to value. An existing header keeps
// its position and spelling; a new one is appended.
func (h Headers) Set(name, value string) Headers {
	out := h.Clone()
	for i := range out {
		if strings.EqualFold(out[i].Name, name) {
			out[i].Value = value
			return out
		}
	}
	return append(out, Header{Name: name, Value: value})
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}
