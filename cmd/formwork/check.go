package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/presentation/tui"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var checkCmd = &cobra.Command{
	Use:   "check --schema FILE [--values FILE]",
	Short: "Validate a set of values against a form definition",
	Long: `Runs a dry-run submission: every field is touched and validated, no
handler is called. Values are read from a YAML or JSON file, or from stdin
with "--values -". The exit code is 1 when the values are invalid and 2
when the configuration, definition or values cannot be loaded.`,
	Run: func(cmd *cobra.Command, args []string) {
		if code := checkExitCode(cmd); code != 0 {
			os.Exit(code)
		}
	},
}

// Exit codes of the check command.
const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Form definition file")
	cmd.Flags().String("values", "", "Values file (YAML or JSON), '-' for stdin")
	cmd.Flags().String("format", tui.FormatAuto, "Report format: auto, markdown, plain or json")
	_ = cmd.MarkFlagRequired("schema")
}

// checkExitCode runs the check and maps its outcome to an exit code. It
// returns instead of exiting so deferred cleanup runs.
func checkExitCode(cmd *cobra.Command) int {
	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error loading config: %v\n", err)
		return exitError
	}
	defer env.Close()

	schemaPath, _ := cmd.Flags().GetString("schema")
	valuesPath, _ := cmd.Flags().GetString("values")
	format, _ := cmd.Flags().GetString("format")

	valid, err := runCheck(cmd.Context(), env.registry, schemaPath, valuesPath, tui.ResolveFormat(format, os.Stdout), cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Check failed: %v\n", err)
		return exitError
	}
	if !valid {
		return exitInvalid
	}
	return exitValid
}

func runCheck(ctx context.Context, reg *schema.Registry, schemaPath, valuesPath, format string, in io.Reader, out io.Writer) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	def, err := schema.LoadDefinition(schemaPath)
	if err != nil {
		return false, err
	}
	values, err := readValues(valuesPath, in)
	if err != nil {
		return false, err
	}

	rep, err := formwork.Check(ctx, def, reg, values)
	if err != nil {
		return false, err
	}
	if err := tui.WriteReport(out, rep, format); err != nil {
		return false, err
	}
	return rep.Valid, nil
}

// readValues decodes a YAML or JSON object. An empty path yields no values.
func readValues(path string, in io.Reader) (domain.Values, error) {
	var data []byte
	var err error
	switch path {
	case "":
		return domain.Values{}, nil
	case "-":
		data, err = io.ReadAll(in)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}

	values := domain.Values{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("values must be an object: %w", err)
	}
	return values, nil
}
