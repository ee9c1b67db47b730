package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates the configuration is syntactically
	// or semantically invalid (bad YAML, conflicting options, etc.).
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingTarget indicates neither -url nor -domain with -port was
	// given.
	ErrMissingTarget = errors.New("config: use -url OR -domain + -port")

	// ErrConfigFile indicates the -config file could not be read.
	ErrConfigFile = errors.New("config: cannot read config file")
)
