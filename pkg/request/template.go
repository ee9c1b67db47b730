// Package request holds the immutable request template replayed against
// every target, the bearer-token rotation set, and the loaders that build
// both from flags and files.
package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dvat-tool/dvat/pkg/defaults"
)

// Template describes what is sent to every target. It is read-only once
// built; per-target copies are made with ForTarget.
type Template struct {
	Method  string
	Headers Headers
	Body    string
	Path    string

	// URL is empty on the base template and set by ForTarget.
	URL string
}

// NewTemplate builds a template from flag values. POST templates without a
// Content-Type get application/json.
func NewTemplate(method string, headers Headers, body, path string) (Template, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = defaults.MethodGET
	}
	if method != defaults.MethodGET && method != defaults.MethodPOST {
		return Template{}, fmt.Errorf("%w: %q (use GET or POST)", ErrUnsupportedMethod, method)
	}
	if path == "" {
		path = defaults.DefaultPath
	}

	headers = headers.Clone()
	if method == defaults.MethodPOST && !headers.Has("Content-Type") {
		headers = headers.Set("Content-Type", defaults.ContentTypeJSON)
	}

	return Template{
		Method:  method,
		Headers: headers,
		Body:    body,
		Path:    path,
	}, nil
}

// ForTarget returns a copy of t bound to url.
func (t Template) ForTarget(url string) Template {
	c := t
	c.Headers = t.Headers.Clone()
	c.URL = url
	return c
}

// HeadersFor returns the headers for the request at index, with the
// Authorization header rotated from creds when creds is non-empty.
func (t Template) HeadersFor(creds Credentials, index int) Headers {
	token, ok := creds.At(index)
	if !ok {
		return t.Headers
	}
	return t.Headers.Set("Authorization", "Bearer "+token)
}

// Build creates the HTTP request for index. The template must have been
// bound to a URL with ForTarget.
func (t Template) Build(ctx context.Context, creds Credentials, index int) (*http.Request, error) {
	var body io.Reader
	if t.Body != "" {
		body = strings.NewReader(t.Body)
	}

	req, err := http.NewRequestWithContext(ctx, t.Method, t.URL, body)
	if err != nil {
		return nil, err
	}

	for _, h := range t.HeadersFor(creds, index) {
		if strings.EqualFold(h.Name, "Host") {
			req.Host = h.Value
			continue
		}
		name := h.Name
		if transportManaged[http.CanonicalHeaderKey(name)] {
			name = http.CanonicalHeaderKey(name)
		}
		// Direct map assignment keeps the captured spelling on the wire.
		req.Header[name] = []string{h.Value}
	}
	return req, nil
}

// transportManaged lists headers net/http looks up by canonical key. Under
// any other spelling the transport would add its own value next to ours.
var transportManaged = map[string]bool{
	"User-Agent":        true,
	"Connection":        true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Accept-Encoding":   true,
}

// Credentials is an ordered set of bearer tokens. Request i uses
// tokens[i mod len]; an empty set injects nothing.
type Credentials []string

// At returns the token for request index.
func (c Credentials) At(index int) (string, bool) {
	if len(c) == 0 || index < 0 {
		return "", false
	}
	return c[index%len(c)], true
}

// Len returns the number of tokens.
func (c Credentials) Len() int { return len(c) }
