package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/config"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool

	// loaded by the root PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hitdesk",
	Short: "Compose and send API requests against your workspaces.",
	Long: `hitdesk composes HTTP requests from template files, resolves {{variables}}
from the active environment, applies auth and sends them. Every send is
recorded in history and, when signed in, synchronized with the workspace
backend.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadRootConfig,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		code := ExitFailure
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		if ee == nil || ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITDESK_CONFIG", ""), "Path to config file (env: HITDESK_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITDESK_VERBOSE", false), "Verbose output and debug logging (env: HITDESK_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITDESK_QUIET", false), "Only log errors (env: HITDESK_QUIET)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITDESK_NO_COLOR", false), "Disable colored output (env: HITDESK_NO_COLOR)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func loadRootConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("failed to load config: %w", err))
	}
	overrides := &config.Config{}
	if cmd.Flags().Changed("verbose") || verboseFlag {
		overrides.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") || noColorFlag {
		overrides.NoColor = config.BoolPtr(noColorFlag)
	}
	if url := getEnvString("HITDESK_BACKEND_URL", ""); url != "" {
		overrides.BackendURL = url
	}
	if dir := getEnvString("HITDESK_DATA_DIR", ""); dir != "" {
		overrides.DataDir = dir
	}
	cfg = loaded.Merge(overrides)
	logger = newLogger(cfg.GetVerbose(), quietFlag)
	slog.SetDefault(logger)
	return nil
}

func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
