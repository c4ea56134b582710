package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faultmaven/faultmaven-smoke/internal/config"
	"github.com/faultmaven/faultmaven-smoke/internal/gateway"
	"github.com/faultmaven/faultmaven-smoke/internal/models"
	"github.com/faultmaven/faultmaven-smoke/internal/report"
	"github.com/faultmaven/faultmaven-smoke/internal/smoke"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitSetup   = 2

	envPrefix = "SMOKE"
)

var errChecksFailed = errors.New("one or more checks failed")

// execute runs the command and maps its outcome to a process exit code:
// 0 when every check passed, 1 when a check failed or the run was
// interrupted, 2 when the run could not be set up.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errChecksFailed):
		return exitFailure
	default:
		fmt.Fprintf(stderr, "❌ Setup error: %v\n", err)
		return exitSetup
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faultmaven-smoke",
		Short: "FaultMaven E2E Smoke Test - Happy Path Validation",
		Long: `Validates a deployed FaultMaven stack through its API gateway:
health checks, case creation, evidence upload, an AI agent query
and a knowledge base search.

Every flag can also be set with an environment variable, e.g.
SMOKE_API_URL or SMOKE_TIMEOUT.

Exit codes:
  0  all checks passed
  1  one or more checks failed, or the run was interrupted
  2  setup or configuration error`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cobrautil.CommandStack(cobrautil.SyncViperPreRunE(envPrefix)),
		RunE:              run,
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	undo := zap.ReplaceGlobals(logger)
	defer func() {
		_ = logger.Sync()
		undo()
	}()

	zap.S().Debugw("configuration loaded", "config", cfg.DebugMap())

	if cfg.Report.NoColor {
		color.NoColor = true
	}

	rc := &models.RunContext{
		APIURL:       cfg.Gateway.BaseURL(),
		Timeout:      cfg.Gateway.RequestTimeout(),
		AgentTimeout: cfg.Gateway.AgentRequestTimeout(),
		RunID:        uuid.NewString(),
		UserID:       cfg.Gateway.UserID,
	}

	opts := []gateway.ClientOption{
		gateway.WithTimeout(rc.Timeout),
		gateway.WithAgentTimeout(rc.AgentTimeout),
		gateway.WithRequestID(rc.RunID),
	}
	if cfg.Gateway.AuthSecret != "" {
		ts, err := gateway.NewHMACTokenSource(cfg.Gateway.AuthSecret, cfg.Gateway.UserID)
		if err != nil {
			return fmt.Errorf("failed to create token source: %w", err)
		}
		opts = append(opts, gateway.WithTokenSource(ts))
	}
	client := gateway.NewClient(rc.APIURL, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := report.NewReporter(cmd.OutOrStdout())
	rc.StartedAt = reporter.StartedAt()

	ok := smoke.NewRunner(client, reporter, rc, smoke.WithSkip(cfg.Report.SkippedPhases())).Run(ctx)

	if cfg.Report.Path != "" {
		if err := report.Export(cfg.Report.Path, reporter.Document(rc.RunID, rc.APIURL)); err != nil {
			zap.S().Errorw("failed to export report", "path", cfg.Report.Path, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "❌ Failed to write report %s: %v\n", cfg.Report.Path, err)
			ok = false
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "📄 Report written to %s\n", cfg.Report.Path)
		}
	}

	if !ok {
		return errChecksFailed
	}
	return nil
}
