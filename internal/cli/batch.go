package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/store"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Concurrency int
	DB          string
}

// QueryFile is the YAML document read by the batch command.
type QueryFile struct {
	Queries []query.Request `yaml:"queries"`
}

// BatchItem is the outcome of one query of a batch.
type BatchItem struct {
	Name string `json:"name,omitempty"`
	ResolutionView
}

// BatchResult holds the outcome of a batch.
type BatchResult struct {
	Queries  []BatchItem `json:"queries"`
	Resolved int         `json:"resolved"`
	Failed   int         `json:"failed"`
	Total    int         `json:"total"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <manifest-dir> <queries-file>",
		Short: "Resolve a file of queries in parallel",
		Long: `Resolve every query of a YAML file against a manifest.

The file holds a list of queries under "queries", each with the same fields
as the resolve flags:

  queries:
    - name: monthly
      metrics: [bookings]
      group_by: [metric_time__month]
    - saved_query: bookings_by_listing_country
      limit: 10

Queries resolve independently and results are printed in file order.

Exit codes:
  0 - Every query resolved
  1 - One or more queries did not resolve
  2 - Command error (invalid paths, unreadable query file, etc.)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", query.DefaultConcurrency, "maximum queries resolved at once")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record every resolution in this history database")

	return cmd
}

// LoadQueryFile reads and decodes a batch query file.
func LoadQueryFile(path string) ([]query.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	var f QueryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse query file %s: %w", path, err)
	}
	if len(f.Queries) == 0 {
		return nil, fmt.Errorf("query file %s: no queries", path)
	}
	return f.Queries, nil
}

func runBatch(opts *BatchOptions, dir, queriesFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	requests, err := LoadQueryFile(queriesFile)
	if err != nil {
		code := ErrCodeLoadFailed
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return reportError(formatter, ExitCommandError, code, err.Error(), nil)
	}

	parser, err := loadParser(opts.RootOptions, formatter, dir)
	if err != nil {
		return err
	}

	formatter.VerboseLog("Resolving %d queries (concurrency %d)", len(requests), opts.Concurrency)
	results, err := query.ResolveBatch(ctx, parser, requests, opts.Concurrency)
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	var recorder *store.Recorder
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		defer st.Close()
		if recorder, err = store.NewRecorder(ctx, st, store.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter()))); err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	}

	result := BatchResult{Queries: make([]BatchItem, 0, len(results)), Total: len(results)}
	for _, r := range results {
		var entry store.Entry
		if recorder != nil {
			entry, err = recorder.Record(ctx, r.Request, r.Resolution, r.Err)
		} else {
			entry, err = store.NewEntry("", 0, r.Request, r.Resolution, r.Err)
			entry.ID = ""
		}
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		result.Queries = append(result.Queries, BatchItem{Name: r.Request.Name, ResolutionView: newResolutionView(entry)})
		if entry.Status == store.StatusResolved {
			result.Resolved++
		} else {
			result.Failed++
		}
	}

	runID := ""
	if recorder != nil {
		runID = recorder.RunID()
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, RunID: runID}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeUnresolved,
				Message: fmt.Sprintf("%d query(ies) did not resolve", result.Failed),
			}
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		outputBatchText(formatter, result, runID)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d query(ies) did not resolve", result.Failed))
	}
	return nil
}

func outputBatchText(formatter *OutputFormatter, result BatchResult, runID string) {
	w := formatter.Writer
	for i, q := range result.Queries {
		label := q.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if q.Status == store.StatusResolved {
			fmt.Fprintf(w, "✓ %s %s\n", label, q.Fingerprint)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", label, q.Status)
		for _, issue := range q.Issues {
			fmt.Fprintf(w, "  %s: %s\n", issue.Input, issue.Message)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch Summary: %d resolved, %d failed, %d total\n", result.Resolved, result.Failed, result.Total)
	if runID != "" {
		fmt.Fprintf(w, "Recorded as run %s\n", runID)
	}
}
