package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/template"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate template files against the template schema",
	Long: `Validate template files without sending them.

Examples:
  hitdesk validate users.yaml
  hitdesk validate ./requests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no .yaml, .yml or .json template files found")
	}

	hasErrors := false
	for _, file := range files {
		_, err := template.Load(file)
		if err != nil {
			var verr *template.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(cmd.OutOrStderr(), "Invalid: %s\n", file)
				for _, p := range verr.Problems {
					fmt.Fprintf(cmd.OutOrStderr(), "  - %s\n", p)
				}
			} else {
				fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			}
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}

// collectFiles expands directories into the template files they contain.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isTemplateFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
