package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/abdul-hamid-achik/hitdesk/packages/template"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <template>",
	Short: "Send the request described by a template file",
	Long: `Send the request described by a YAML or JSON template file.

Variables resolve against the active environment, overridden in turn by the
template's own variables, HITDESK_VAR_* environment variables, --env-file
and --var flags.

Examples:
  hitdesk send users.yaml
  hitdesk send users.yaml --var base_url=http://localhost:8080
  hitdesk send users.yaml --view headers
  hitdesk send users.yaml --output json
  hitdesk send users.yaml --apply-auth
  hitdesk send users.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: sendCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	systemVarPrefix = "HITDESK_VAR_"
)

var (
	envFileFlag   string
	varFlags      []string
	outputFlag    string
	viewFlag      string
	watchFlag     bool
	applyAuthFlag bool
	timeoutFlag   string
	proxyFlag     string
	insecureFlag  bool
)

func init() {
	sendCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITDESK_ENV_FILE", ""), "Path to .env or YAML file with extra variables (env: HITDESK_ENV_FILE)")
	sendCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable (key=value), may be repeated")
	sendCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITDESK_OUTPUT", "console"), "Output format: console, json (env: HITDESK_OUTPUT)")
	sendCmd.Flags().StringVar(&viewFlag, "view", getEnvString("HITDESK_VIEW", "body"), "Response view: body, headers, raw (env: HITDESK_VIEW)")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the template and send again when it changes")
	sendCmd.Flags().BoolVar(&applyAuthFlag, "apply-auth", false, "Write the template's auth into its headers before sending")
	sendCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITDESK_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m); none by default (env: HITDESK_TIMEOUT)")
	sendCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITDESK_PROXY", ""), "Proxy URL for HTTP requests (env: HITDESK_PROXY)")
	sendCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITDESK_INSECURE", false), "Disable SSL certificate validation (env: HITDESK_INSECURE)")
}

// outcomeFormatter is implemented by the console and JSON formatters.
type outcomeFormatter interface {
	FormatOutcome(out *runner.Outcome)
}

type jsonOutcome struct{ f *output.JSONFormatter }

func (j jsonOutcome) FormatOutcome(out *runner.Outcome) {
	if err := j.f.FormatOutcome(out); err != nil {
		logger.Error("failed to write output", "error", err)
	}
}

func sendCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	file, err := template.Load(path)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	view, err := output.ParseView(viewFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	overrides, err := parseVarFlags(varFlags)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	var clientOpts []hithttp.ClientOption
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid timeout: %w", err))
		}
		clientOpts = append(clientOpts, hithttp.WithTimeout(d))
	}
	if proxyFlag != "" {
		clientOpts = append(clientOpts, hithttp.WithProxy(proxyFlag))
	}
	if insecureFlag {
		clientOpts = append(clientOpts, hithttp.WithValidateSSL(false))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{clientOpts: clientOpts, view: view})
	if err != nil {
		return err
	}
	defer a.Close()
	a.loadIfSignedIn(ctx)

	envFile := envFileFlag
	if envFile == "" {
		envFile = cfg.EnvFile
	}
	extra, err := sendVariables(file, envFile, overrides)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	session := runner.NewSession(a.client, a.state,
		runner.WithBuilder(a.builder),
		runner.WithRecorder(a.recorder),
		runner.WithSynchronizer(a.syncer),
		runner.WithVariables(extra),
		runner.WithLogger(logger),
	)
	session.SetTemplate(file.Template)
	session.SetAuth(file.EffectiveAuth())

	var formatter outcomeFormatter = a.console
	if strings.EqualFold(outputFlag, "json") {
		formatter = jsonOutcome{f: output.NewJSONFormatter(output.JSONWithWriter(cmd.OutOrStdout()))}
	}

	if applyAuthFlag {
		file.Template = session.ApplyAuthToHeaders()
		if err := file.Save(path); err != nil {
			return fmt.Errorf("failed to save template: %w", err)
		}
		logger.Info("applied auth to headers", "file", path)
	}

	out, err := session.Send(ctx)
	if err != nil {
		return err
	}
	formatter.FormatOutcome(out)

	if !watchFlag {
		if out.Result.Failure != nil {
			return withExitCode(ExitNetworkError, nil)
		}
		return nil
	}
	return watchTemplate(ctx, cmd, path, session, formatter)
}

// sendVariables layers the template's variables, HITDESK_VAR_* process
// variables, the env file and --var flags, later sources winning.
func sendVariables(file *template.File, envFile string, overrides map[string]string) (map[string]string, error) {
	sources := []map[string]any{file.Variables, env.LoadSystemEnv(systemVarPrefix)}
	if envFile != "" {
		e, err := env.LoadEnvironment(envFile, filepath.Base(envFile))
		if err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		sources = append(sources, e.Variables)
	}
	merged := env.Stringify(env.MergeVariables(sources...))
	for k, v := range overrides {
		merged[k] = v
	}
	return merged, nil
}
