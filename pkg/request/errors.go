package request

import "errors"

// Sentinel errors for request loading.
var (
	// ErrFileLoad indicates a referenced headers, paths, tokens or raw
	// request file is missing or unreadable.
	ErrFileLoad = errors.New("request: cannot load file")

	// ErrMalformedRaw indicates a captured raw request has no usable
	// request line.
	ErrMalformedRaw = errors.New("request: malformed raw request")

	// ErrUnsupportedMethod indicates a method other than GET or POST.
	ErrUnsupportedMethod = errors.New("request: unsupported method")
)
