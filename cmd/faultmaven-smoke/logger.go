package main

import (
	"strings"

	"go.uber.org/zap"

	"github.com/faultmaven/faultmaven-smoke/internal/config"
)

// newLogger builds the process logger. Logs go to stderr so they never
// interleave with the report on stdout.
func newLogger(cfg *config.Configuration) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewDevelopmentConfig()
	if strings.ToLower(cfg.LogFormat) == "json" {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}
