package request

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvat-tool/dvat/pkg/defaults"
)

// strippedPrefixes are response-cycle artifacts that must not be replayed
// from a capture.
var strippedPrefixes = []string{"content-length", "accept-encoding"}

// readLines returns the lines of path with surrounding whitespace removed,
// skipping blank lines.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileLoad, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileLoad, path, err)
	}
	return out, nil
}

// LoadHeaders reads "Key: Value" lines. Lines without a colon are ignored and
// the first colon splits name from value. An empty path yields no headers.
func LoadHeaders(path string) (Headers, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var h Headers
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h = h.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h, nil
}

// LoadPaths reads one path per line. Without a file it falls back to single,
// or to "/" when single is empty too.
func LoadPaths(path, single string) ([]string, error) {
	if path != "" {
		return readLines(path)
	}
	if single != "" {
		return []string{single}, nil
	}
	return []string{defaults.DefaultPath}, nil
}

// LoadTokens reads one bearer token per line. An empty path yields an empty
// credential set.
func LoadTokens(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return Credentials(lines), nil
}

// LoadRaw parses the captured raw HTTP request in path.
func LoadRaw(path string) (Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %w", ErrFileLoad, err)
	}
	defer f.Close()

	t, err := ParseRaw(f)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseRaw parses a raw HTTP request as exported by an intercepting proxy:
// a request line, headers up to the first blank line, then the body.
// Content-Length and Accept-Encoding headers are dropped.
func ParseRaw(r io.Reader) (Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %w", ErrFileLoad, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	parts := strings.Fields(lines[0])
	if len(parts) < 2 {
		return Template{}, fmt.Errorf("%w: request line %q", ErrMalformedRaw, lines[0])
	}

	t := Template{
		Method: strings.ToUpper(parts[0]),
		Path:   parts[1],
	}

	i := 1
	for ; i < len(lines) && strings.TrimSpace(lines[i]) != ""; i++ {
		name, value, ok := strings.Cut(lines[i], ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if hasStrippedPrefix(name) {
			continue
		}
		t.Headers = t.Headers.Set(name, strings.TrimSpace(value))
	}

	if i+1 < len(lines) {
		t.Body = strings.TrimRight(strings.Join(lines[i+1:], "\n"), "\n")
	}
	return t, nil
}

func hasStrippedPrefix(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range strippedPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// BuildTargets returns the target URLs. A direct URL wins; otherwise each
// path is joined to domain:port with https chosen iff port is 443.
func BuildTargets(url, domain string, port int, paths []string) []string {
	if url != "" {
		return []string{url}
	}
	scheme := "http"
	if port == defaults.HTTPSPort {
		scheme = "https"
	}
	targets := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		targets = append(targets, fmt.Sprintf("%s://%s:%d%s", scheme, domain, port, p))
	}
	return targets
}
