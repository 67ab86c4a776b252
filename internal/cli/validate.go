package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/metricq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid          bool                       `json:"valid"`
	Files          int                        `json:"files"`
	SemanticModels int                        `json:"semantic_models"`
	Metrics        int                        `json:"metrics"`
	SavedQueries   int                        `json:"saved_queries"`
	Errors         []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate a semantic manifest",
		Long: `Load every YAML and CUE manifest file in a directory and check it.

Decode errors and structural problems (unknown measures, metric cycles,
missing primary entities, and so on) are all reported in one pass.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return reportError(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("manifest directory not found: %s", dir), nil)
	}

	compiled, err := compiler.CompileDir(dir)
	if err != nil {
		if errors.Is(err, compiler.ErrNoManifestFiles) {
			return reportError(formatter, ExitCommandError, ErrCodeLoadFailed, err.Error(), nil)
		}
		// Decode failures are reported alongside each other.
		var loadErrs []compiler.ValidationError
		for _, e := range multierr.Errors(err) {
			loadErrs = append(loadErrs, compiler.ValidationError{
				Field:   "load",
				Message: e.Error(),
				Code:    ErrCodeLoadFailed,
			})
		}
		return outputValidationErrors(formatter, loadErrs)
	}

	formatter.VerboseLog("Found %d YAML and %d CUE file(s) in %s", len(compiled.Files.YAML), len(compiled.Files.CUE), dir)

	if len(compiled.Problems) > 0 {
		return outputValidationErrors(formatter, compiled.Problems)
	}

	m := compiled.Manifest
	return outputValidateSuccess(formatter, ValidationResult{
		Valid:          true,
		Files:          compiled.Files.Count(),
		SemanticModels: len(m.SemanticModels),
		Metrics:        len(m.Metrics),
		SavedQueries:   len(m.SavedQueries),
	})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Manifest valid: %d semantic model(s), %d metric(s), %d saved query(ies)\n",
		result.SemanticModels, result.Metrics, result.SavedQueries)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
