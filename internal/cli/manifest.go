package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/metricq/internal/compiler"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/query"
)

// loadParser compiles the manifest in dir and returns a parser over it.
// Failures are reported through formatter and returned as an ExitError.
func loadParser(opts *RootOptions, formatter *OutputFormatter, dir string) (*query.Parser, error) {
	lookup, err := loadLookup(formatter, dir)
	if err != nil {
		return nil, err
	}
	resolver := query.NewResolver(lookup, query.WithLogger(newLogger(opts, formatter.GetErrWriter())))
	return query.NewParser(resolver), nil
}

func loadLookup(formatter *OutputFormatter, dir string) (*manifest.Lookup, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, reportError(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("manifest directory not found: %s", dir), nil)
	}
	formatter.VerboseLog("Loading manifest from %s", dir)

	lookup, err := compiler.LoadLookup(dir)
	switch {
	case err == nil:
		return lookup, nil
	case errors.Is(err, compiler.ErrInvalidManifest):
		return nil, reportError(formatter, ExitFailure, ErrCodeInvalidManifest, err.Error(), nil)
	default:
		return nil, reportError(formatter, ExitCommandError, ErrCodeLoadFailed, err.Error(), nil)
	}
}

// reportError writes an error response and returns the matching ExitError.
func reportError(formatter *OutputFormatter, exitCode int, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}
