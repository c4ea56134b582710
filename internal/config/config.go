package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"

	"github.com/faultmaven/faultmaven-smoke/internal/models"
)

type Configuration struct {
	Gateway   Gateway `mapstructure:"gateway" debugmap:"visible"`
	Report    Report  `mapstructure:"report" debugmap:"visible"`
	LogFormat string  `mapstructure:"logFormat" default:"console" debugmap:"visible"`
	LogLevel  string  `mapstructure:"logLevel" default:"warn" debugmap:"visible"`
}

// Gateway holds the target gateway and the identity the checks act as.
type Gateway struct {
	APIURL string `mapstructure:"apiUrl" default:"http://localhost:8090" debugmap:"visible"`
	// Timeout and AgentTimeout are in seconds.
	Timeout      float64 `mapstructure:"timeout" default:"30" debugmap:"visible"`
	AgentTimeout float64 `mapstructure:"agentTimeout" default:"60" debugmap:"visible"`
	UserID       string  `mapstructure:"userId" default:"smoke_test_user" debugmap:"visible"`
	AuthSecret   string  `mapstructure:"authSecret" debugmap:"hidden"`
}

type Report struct {
	Path    string   `mapstructure:"path" debugmap:"visible"`
	NoColor bool     `mapstructure:"noColor" debugmap:"visible"`
	Skip    []string `mapstructure:"skip" debugmap:"visible"`
}

// NewConfigurationWithDefaults returns a configuration populated from the
// struct tag defaults.
func NewConfigurationWithDefaults() *Configuration {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		// tags are static, a failure here is a programming error
		panic(fmt.Sprintf("invalid configuration defaults: %v", err))
	}
	return cfg
}

func (g Gateway) RequestTimeout() time.Duration {
	return secondsToDuration(g.Timeout)
}

func (g Gateway) AgentRequestTimeout() time.Duration {
	return secondsToDuration(g.AgentTimeout)
}

func (g Gateway) BaseURL() string {
	return strings.TrimRight(g.APIURL, "/")
}

// SkippedPhases returns the phases excluded from the run.
func (r Report) SkippedPhases() map[models.PhaseKey]bool {
	skipped := make(map[models.PhaseKey]bool, len(r.Skip))
	for _, s := range r.Skip {
		if k, ok := models.ParsePhaseKey(strings.TrimSpace(s)); ok {
			skipped[k] = true
		}
	}
	return skipped
}

// Validate reports every invalid field at once.
func (c *Configuration) Validate() error {
	var errs []error

	u, err := url.Parse(c.Gateway.APIURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("failed to parse api url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("invalid api url %q: scheme must be http or https", c.Gateway.APIURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("invalid api url %q: missing host", c.Gateway.APIURL))
	}

	if c.Gateway.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Gateway.Timeout))
	}
	if c.Gateway.AgentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent timeout must be positive, got %v", c.Gateway.AgentTimeout))
	}
	if c.Gateway.UserID == "" {
		errs = append(errs, errors.New("user id is empty"))
	}

	for _, s := range c.Report.Skip {
		if _, ok := models.ParsePhaseKey(strings.TrimSpace(s)); !ok {
			errs = append(errs, fmt.Errorf("unknown phase %q in skip list", s))
		}
	}
	if c.Report.Path != "" {
		switch strings.ToLower(filepath.Ext(c.Report.Path)) {
		case ".json", ".xlsx":
		default:
			errs = append(errs, fmt.Errorf("unsupported report format %q: use .json or .xlsx", c.Report.Path))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be console or json", c.LogFormat))
	}

	return errors.Join(errs...)
}

// DebugMap returns the configuration as a map suitable for structured logging.
// Secrets are masked.
func (c *Configuration) DebugMap() map[string]any {
	secret := ""
	if c.Gateway.AuthSecret != "" {
		secret = "(sensitive)"
	}
	return map[string]any{
		"gateway.apiUrl":       c.Gateway.APIURL,
		"gateway.timeout":      c.Gateway.Timeout,
		"gateway.agentTimeout": c.Gateway.AgentTimeout,
		"gateway.userId":       c.Gateway.UserID,
		"gateway.authSecret":   secret,
		"report.path":          c.Report.Path,
		"report.noColor":       c.Report.NoColor,
		"report.skip":          c.Report.Skip,
		"logFormat":            c.LogFormat,
		"logLevel":             c.LogLevel,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
