// Package config parses DVAT's command line and optional YAML file.
//
// Every YAML key is the name of a flag. Values from the file fill in flags
// that were not given explicitly, so the command line always wins.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/pacing"
)

// Output formats accepted by -format.
const (
	FormatConsole     = "console"
	FormatJSON        = "json"
	FormatJSONL       = "jsonl"
	FormatCSV         = "csv"
	FormatMarkdown    = "markdown"
	FormatTextSummary = "text-summary"
	FormatTemplate    = "template"
)

// Formats returns every accepted -format value.
func Formats() []string {
	return []string{FormatConsole, FormatJSON, FormatJSONL, FormatCSV, FormatMarkdown, FormatTextSummary, FormatTemplate}
}

// Config holds all CLI configuration options
type Config struct {
	// Target settings
	URL       string // Full URL (http/https)
	Domain    string // Domain or IP, combined with Port
	Port      int
	Path      string // Single path
	PathsFile string // File with one path per line

	// Request settings
	Method      string
	Data        string // Request body
	HeadersFile string
	RequestFile string // Captured raw HTTP request to replay
	TokensFile  string // Bearer tokens, one per line

	// Phase settings (durations in whole seconds, rates in requests/second)
	BaselineDuration int
	BaselineRate     float64
	StressDuration   int
	StressRate       float64
	Schedule         string
	Concurrency      int // Targets assessed at once

	// Network settings
	TimeoutSec float64
	Proxy      string
	Insecure   bool

	// Output settings
	Format          string
	OutputFile      string
	ChartDir        string
	Template        string // Template file for -format template
	IncludeRequests bool   // Per-request lines in JSONL output
	MetricsPort     int
	OTelEndpoint    string
	OTelInsecure    bool

	Verbose          bool
	Silent           bool
	NoColor          bool
	FailOnVulnerable bool

	ShowVersion  bool
	ShowExamples bool
	ConfigFile   string
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec * float64(time.Second))
}

// Policy returns the parsed scheduling policy. Call after Validate.
func (c *Config) Policy() pacing.Policy {
	p, _ := pacing.ParsePolicy(c.Schedule)
	return p
}

// NewFlagSet returns a flag set bound to cfg, with defaults filled in.
func NewFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	// === TARGET ===
	fs.StringVar(&cfg.URL, "url", "", "Full URL (http/https)")
	fs.StringVar(&cfg.Domain, "domain", "", "Domain or IP")
	fs.IntVar(&cfg.Port, "port", 0, "Port number")
	fs.StringVar(&cfg.Path, "path", "", "Single path")
	fs.StringVar(&cfg.PathsFile, "paths-file", "", "Multiple paths file")

	// === REQUEST ===
	fs.StringVar(&cfg.Method, "method", defaults.MethodGET, "HTTP method: GET or POST")
	fs.StringVar(&cfg.Data, "data", "", "POST body")
	fs.StringVar(&cfg.HeadersFile, "headers-file", "", "Headers file (Key: Value per line)")
	fs.StringVar(&cfg.RequestFile, "request-file", "", "Captured raw HTTP request to replay")
	fs.StringVar(&cfg.TokensFile, "tokens-file", "", "Bearer tokens, rotated per request")

	// === PHASES ===
	fs.IntVar(&cfg.BaselineDuration, "baseline-duration", defaults.BaselineDurationSec, "Baseline phase duration in seconds")
	fs.Float64Var(&cfg.BaselineRate, "baseline-rate", defaults.BaselineRate, "Baseline requests per second")
	fs.IntVar(&cfg.StressDuration, "duration", defaults.StressDurationSec, "Stress phase duration in seconds")
	fs.Float64Var(&cfg.StressRate, "rate", defaults.StressRate, "Stress requests per second")
	fs.StringVar(&cfg.Schedule, "schedule", string(pacing.Interval), "Pacing policy: "+policyNames())
	fs.IntVar(&cfg.Concurrency, "concurrency", defaults.ConcurrencyMinimal, "Targets assessed in parallel")

	// === NETWORK ===
	fs.Float64Var(&cfg.TimeoutSec, "timeout", defaults.RequestTimeoutSec, "Per-request timeout in seconds")
	fs.StringVar(&cfg.Proxy, "proxy", "", "HTTP or SOCKS5 proxy URL")
	fs.BoolVar(&cfg.Insecure, "insecure", false, "Skip TLS certificate verification")

	// === OUTPUT ===
	fs.StringVar(&cfg.Format, "format", FormatConsole, "Output format: "+strings.Join(Formats(), ","))
	fs.StringVar(&cfg.OutputFile, "o", "", "Output file (default stdout)")
	fs.StringVar(&cfg.ChartDir, "chart-dir", "", "Write latency_target_<n>.pdf charts into this directory")
	fs.StringVar(&cfg.Template, "template", "", "Template file for -format template")
	fs.BoolVar(&cfg.IncludeRequests, "include-requests", false, "Write every request in JSONL output")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", "", "Export traces to this OTLP gRPC endpoint")
	fs.BoolVar(&cfg.OTelInsecure, "otel-insecure", false, "Use a plaintext OTLP connection")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Debug logging and per-phase detail")
	fs.BoolVar(&cfg.Silent, "silent", false, "Only print the report")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&cfg.FailOnVulnerable, "fail-on-vulnerable", false, "Exit 2 when any target is potentially vulnerable")

	// === MISC ===
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version")
	fs.BoolVar(&cfg.ShowExamples, "examples", false, "Show usage examples")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML file with flag defaults")

	return fs
}

func policyNames() string {
	names := make([]string, 0, 3)
	for _, p := range pacing.Policies() {
		names = append(names, string(p))
	}
	return strings.Join(names, ",")
}

// Parse parses args (without the program name). It loads -config when set
// but does not validate; call Validate once -version and -examples have
// been handled.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := NewFlagSet(defaults.ToolName, cfg)
	if output != nil {
		fs.SetOutput(output)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrInvalidConfig, fs.Arg(0))
	}

	if cfg.ConfigFile != "" {
		if err := applyFile(fs, cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFile sets every flag named in the YAML file that was not given on
// the command line.
func applyFile(fs *flag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigFile, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if key == "config" || fs.Lookup(key) == nil {
			return fmt.Errorf("%w: %s: unknown key %q", ErrInvalidConfig, path, key)
		}
		if explicit[key] {
			continue
		}
		val := values[key]
		if val == nil {
			continue
		}
		if err := fs.Set(key, fmt.Sprint(val)); err != nil {
			return fmt.Errorf("%w: %s: %s: %w", ErrInvalidConfig, path, key, err)
		}
	}
	return nil
}

// Validate checks the target rules and value ranges. Errors wrap
// ErrMissingTarget or ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch {
	case c.URL != "":
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			invalid("-url must be an absolute http or https URL, got %q", c.URL)
		}
	case c.Domain != "" && c.Port != 0:
		if c.Port < 1 || c.Port > 65535 {
			invalid("-port must be 1-65535, got %d", c.Port)
		}
	default:
		return ErrMissingTarget
	}

	if m := strings.ToUpper(c.Method); m != defaults.MethodGET && m != defaults.MethodPOST {
		invalid("-method must be GET or POST, got %q", c.Method)
	}
	if c.BaselineDuration < 0 || c.StressDuration < 0 {
		invalid("phase durations must not be negative")
	}
	if c.BaselineRate < 0 || c.StressRate < 0 {
		invalid("rates must not be negative")
	}
	if _, err := pacing.ParsePolicy(c.Schedule); err != nil {
		invalid("-schedule: %v", err)
	}
	if c.Concurrency < defaults.ConcurrencyMinimal || c.Concurrency > defaults.ConcurrencyMax {
		invalid("-concurrency must be %d-%d, got %d", defaults.ConcurrencyMinimal, defaults.ConcurrencyMax, c.Concurrency)
	}
	if c.TimeoutSec <= 0 {
		invalid("-timeout must be positive")
	}
	if !slices.Contains(Formats(), c.Format) {
		invalid("-format must be one of %s, got %q", strings.Join(Formats(), ","), c.Format)
	}
	if c.Format == FormatTemplate && c.Template == "" {
		invalid("-format template needs -template")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		invalid("-metrics-port must be 0-65535, got %d", c.MetricsPort)
	}
	if c.Verbose && c.Silent {
		invalid("-verbose and -silent are mutually exclusive")
	}

	return errors.Join(errs...)
}
