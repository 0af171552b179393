package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/config"
	"github.com/abdul-hamid-achik/hitdesk/packages/template"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitdesk project",
	Long: `Initialize a new hitdesk project in the current directory.

This creates:
  - .hitdesk.config.json - Configuration file with the default environment
  - example.yaml         - Example request template

Examples:
  hitdesk init
  hitdesk init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	projectConfig := &config.Config{
		BackendURL:      config.DefaultBackendURL,
		FollowRedirects: config.BoolPtr(true),
		MaxRedirects:    config.DefaultMaxRedirects,
		Headers: map[string]string{
			"User-Agent": "hitdesk/" + version,
		},
		Environment: &config.Environment{
			Name: config.DefaultEnvName,
			Variables: map[string]any{
				"base_url": "http://localhost:3000",
			},
		},
	}
	if err := projectConfig.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := template.Example().Save(exampleFile); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitdesk project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitdesk send example.yaml' to send the example request.\n")

	return nil
}
