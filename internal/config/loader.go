package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	FlagAPIURL       = "api-url"
	FlagTimeout      = "timeout"
	FlagAgentTimeout = "agent-timeout"
	FlagUserID       = "user-id"
	FlagAuthSecret   = "auth-secret"
	FlagReport       = "report"
	FlagSkip         = "skip"
	FlagNoColor      = "no-color"
	FlagLogLevel     = "log-level"
	FlagLogFormat    = "log-format"
	FlagConfig       = "config"
)

// flagKeys maps configuration keys to the flags that set them.
var flagKeys = map[string]string{
	"gateway.apiUrl":       FlagAPIURL,
	"gateway.timeout":      FlagTimeout,
	"gateway.agentTimeout": FlagAgentTimeout,
	"gateway.userId":       FlagUserID,
	"gateway.authSecret":   FlagAuthSecret,
	"report.path":          FlagReport,
	"report.skip":          FlagSkip,
	"report.noColor":       FlagNoColor,
	"logLevel":             FlagLogLevel,
	"logFormat":            FlagLogFormat,
}

// RegisterFlags adds the configuration flags to fs. Flag defaults come from
// the struct tag defaults so both sources agree.
func RegisterFlags(fs *pflag.FlagSet) {
	d := NewConfigurationWithDefaults()

	fs.String(FlagAPIURL, d.Gateway.APIURL, "API Gateway URL")
	fs.Float64(FlagTimeout, d.Gateway.Timeout, "Request timeout in seconds")
	fs.Float64(FlagAgentTimeout, d.Gateway.AgentTimeout, "Timeout in seconds for the AI agent query")
	fs.String(FlagUserID, d.Gateway.UserID, "User the checks act as")
	fs.String(FlagAuthSecret, d.Gateway.AuthSecret, "HS256 secret used to sign a bearer token for the user (optional)")
	fs.String(FlagReport, d.Report.Path, "Write the results to a .json or .xlsx file")
	fs.StringSlice(FlagSkip, d.Report.Skip, "Checks to leave out: health, liveness, readiness, case, evidence, agent, knowledge")
	fs.Bool(FlagNoColor, d.Report.NoColor, "Disable colored output")
	fs.String(FlagLogLevel, d.LogLevel, "Log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.LogFormat, "Log format: console or json")
	fs.String(FlagConfig, "", "Path to a YAML configuration file")
}

// Load builds the configuration from, in order of precedence, the flags in fs,
// the optional config file named by --config and the defaults.
func Load(fs *pflag.FlagSet) (*Configuration, error) {
	v := viper.New()

	if f := fs.Lookup(FlagConfig); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}

	cfg := NewConfigurationWithDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
