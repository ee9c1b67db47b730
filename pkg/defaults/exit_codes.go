package defaults

// Exit codes for the CLI.
const (
	ExitSuccess     = 0   // Clean exit, or vulnerable targets without -fail-on-vulnerable
	ExitUserError   = 1   // Invalid arguments, configuration or unreadable input files
	ExitVulnerable  = 2   // At least one target looked unprotected (only with -fail-on-vulnerable)
	ExitInterrupted = 130 // Run stopped by SIGINT or SIGTERM
)
