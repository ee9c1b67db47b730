package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dvat-tool/dvat/pkg/defaults"
)

// Version information - these can be overridden at build time via ldflags:
// go build -ldflags "-X github.com/dvat-tool/dvat/pkg/ui.Version=1.0.0"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

// UserAgent returns the User-Agent sent when the request template sets none.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", defaults.ToolName, Version)
}

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses most output)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

const bannerArt = `
  ██████╗ ██╗   ██╗ █████╗ ████████╗
  ██╔══██╗██║   ██║██╔══██╗╚══██╔══╝
  ██║  ██║██║   ██║███████║   ██║
  ██║  ██║╚██╗ ██╔╝██╔══██║   ██║
  ██████╔╝ ╚████╔╝ ██║  ██║   ██║
  ╚═════╝   ╚═══╝  ╚═╝  ╚═╝   ╚═╝
`

const asciiBanner = `
  ____  __     __ _    _____
 |  _ \ \ \   / // \  |_   _|
 | | | | \ \ / // _ \   | |
 | |_| |  \ V // ___ \  | |
 |____/    \_//_/   \_\ |_|
`

const bannerSeparator = "------------------------------------------------------------"

// PrintBanner writes the banner, version and usage notice to w.
func PrintBanner(w io.Writer) {
	if IsSilent() {
		return
	}
	art := asciiBanner
	if UnicodeTerminal() {
		art = bannerArt
	}
	for _, line := range strings.Split(art, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "  Defensive Vulnerability Assessment Tool  %s\n", VersionStyle.Render("v"+Version))
	fmt.Fprintln(w, DividerStyle.Render(bannerSeparator))
	fmt.Fprintln(w, WarningStyle.Render("  "+Icon("⚠ ", "[!] ")+"Authorized testing only. Misuse is illegal."))
	fmt.Fprintln(w, DividerStyle.Render(bannerSeparator))
	fmt.Fprintln(w)
}

// PrintVersion writes the one-line version string.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "DVAT version %s (commit %s, built %s)\n", Version, Commit, BuildDate)
}

const examplesText = `# Full URL (GET)
dvat -url https://example.com/login

# Full URL (POST)
dvat -url https://example.com/api/login \
  -method POST -data '{"user":"test","pass":"test"}'

# Domain + Port
dvat -domain example.com -port 8080

# Domain + Port + Path
dvat -domain example.com -port 443 -path /login

# Multiple Paths
dvat -domain example.com -port 443 -paths-file paths.txt

# Captured Request Replay
dvat -domain example.com -port 443 -request-file request.txt

# Increase Stress Rate, anchored cadence
dvat -url https://example.com -rate 20 -schedule cadence

# Machine-readable output plus latency charts
dvat -url https://example.com -format json -o report.json -chart-dir charts/

# Expose Prometheus metrics while the run is in progress
dvat -url https://example.com -metrics-port 9090
`

// PrintExamples writes the usage examples to w.
func PrintExamples(w io.Writer) {
	fmt.Fprintln(w, SectionStyle.Render("DVAT EXAMPLES"))
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("=", len("DVAT EXAMPLES"))))
	fmt.Fprintln(w)
	fmt.Fprint(w, examplesText)
	fmt.Fprintln(w)
	fmt.Fprintln(w, WarningStyle.Render(Icon("⚠ ", "[!] ")+"Authorized testing only"))
}

// PrintDivider prints a stylized divider (to stderr)
func PrintDivider() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, DividerStyle.Render(bannerSeparator))
}

// PrintSection prints a section header (to stderr)
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintConfigLine prints a single config line
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		ConfigLabelStyle.Render(key+":"),
		ConfigValueStyle.Render(value),
	)
}

// PrintHelp prints contextual help (to stderr)
func PrintHelp(text string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, HelpStyle.Render("  [i] "+text))
}

// PrintSuccess prints a success message (to stderr)
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, ProtectedStyle.Render("  [+] "+message))
}

// PrintError prints an error message (to stderr). It is never silenced.
func PrintError(message string) {
	fmt.Fprintln(os.Stderr, VulnerableStyle.Render("  [X] "+message))
}

// PrintWarning prints a warning message (to stderr)
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, WarningStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message (to stderr)
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n", SpinnerStyle.Render("*"), message)
}
