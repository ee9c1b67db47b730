package waf

import (
	"sort"
	"strings"

	"github.com/dvat-tool/dvat/pkg/jsonutil"
)

// Vendors is a set of vendor labels.
type Vendors map[string]struct{}

// NewVendors returns a set holding names.
func NewVendors(names ...string) Vendors {
	v := make(Vendors, len(names))
	for _, n := range names {
		v[n] = struct{}{}
	}
	return v
}

// Union adds every vendor in other to v and returns v. A nil receiver is
// replaced by a fresh set.
func (v Vendors) Union(other Vendors) Vendors {
	if v == nil {
		v = make(Vendors, len(other))
	}
	for n := range other {
		v[n] = struct{}{}
	}
	return v
}

// Has reports whether name is in the set.
func (v Vendors) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// List returns the vendors sorted by name.
func (v Vendors) List() []string {
	out := make([]string, 0, len(v))
	for n := range v {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy; nil clones to an empty set.
func (v Vendors) Clone() Vendors {
	return make(Vendors, len(v)).Union(v)
}

// String joins the sorted vendor names, or returns "None".
func (v Vendors) String() string {
	if len(v) == 0 {
		return "None"
	}
	return strings.Join(v.List(), ", ")
}

// MarshalJSON encodes the set as a sorted array.
func (v Vendors) MarshalJSON() ([]byte, error) {
	return jsonutil.Marshal(v.List())
}

// UnmarshalJSON decodes an array of vendor names.
func (v *Vendors) UnmarshalJSON(data []byte) error {
	var names []string
	if err := jsonutil.Unmarshal(data, &names); err != nil {
		return err
	}
	*v = NewVendors(names...)
	return nil
}
