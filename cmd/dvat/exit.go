package main

import (
	"fmt"
	"os"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/ui"
)

// exitWithError prints a formatted error message and exits with
// defaults.ExitUserError. Only use it before the first request is sent.
func exitWithError(format string, args ...any) {
	ui.PrintError(fmt.Sprintf(format, args...))
	os.Exit(defaults.ExitUserError)
}
