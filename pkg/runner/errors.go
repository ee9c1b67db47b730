package runner

import "errors"

// ErrNotStarted marks a target that was never launched because the context
// ended first.
var ErrNotStarted = errors.New("runner: target not started")
