package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/metricq/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB          string
	RunID       string
	Fingerprint string
	RequestHash string
	ID          string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded resolutions",
		Long: `Show resolutions recorded by resolve --db and batch --db.

With no filter every resolution is listed, grouped by run. --fingerprint
finds every request that resolved to the same query spec.

Examples:
  metricq history --db history.db
  metricq history --db history.db --run 0190f6c2-...
  metricq history --db history.db --fingerprint 3f2a...
  metricq history --db history.db --id 0190f6c3-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only resolutions of this run")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only resolutions with this query spec fingerprint")
	cmd.Flags().StringVar(&opts.RequestHash, "request-hash", "", "only resolutions of this request")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single resolution")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	// Opening creates the file, so a missing database is reported first.
	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return reportError(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("history database not found: %s", opts.DB), nil)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	var entries []store.Entry
	switch {
	case opts.ID != "":
		e, err := st.GetResolution(ctx, opts.ID)
		if errors.Is(err, store.ErrNotFound) {
			return reportError(formatter, ExitFailure, ErrCodeNotFound, err.Error(), nil)
		}
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		entries = []store.Entry{e}
	case opts.Fingerprint != "":
		entries, err = st.ResolutionsByFingerprint(ctx, opts.Fingerprint)
	case opts.RequestHash != "":
		entries, err = st.ResolutionsByRequestHash(ctx, opts.RequestHash)
	default:
		entries, err = st.ListResolutions(ctx, opts.RunID)
	}
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	views := make([]ResolutionView, len(entries))
	for i, e := range entries {
		views[i] = newResolutionView(e)
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}

	w := formatter.Writer
	if len(views) == 0 {
		fmt.Fprintln(w, "No resolutions recorded.")
		return nil
	}
	run := ""
	for _, v := range views {
		if v.RunID != run {
			run = v.RunID
			fmt.Fprintf(w, "Run %s\n", run)
		}
		mark := "✓"
		if v.Status != store.StatusResolved {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %3d %s  %s\n", mark, v.Seq, v.ID, v.Request.String())
		if v.Fingerprint != "" {
			fmt.Fprintf(w, "        fingerprint %s\n", v.Fingerprint)
		}
		for _, issue := range v.Issues {
			fmt.Fprintf(w, "        %s: %s\n", issue.Input, issue.Message)
		}
	}
	return nil
}
