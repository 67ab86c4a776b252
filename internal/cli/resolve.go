package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metricq/internal/columns"
	"github.com/roach88/metricq/internal/harness"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/querysql"
	"github.com/roach88/metricq/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Metrics    []string
	GroupBy    []string
	Where      []string
	OrderBy    []string
	Limit      int
	SavedQuery string
	SQL        bool     // render the outer SELECT of the resolved query
	From       []string // relations the rendered SELECT reads from, one per metric when joined
	DB         string   // history database; empty disables recording
	RunID      string   // history run to append to
}

// ResolutionView is the JSON rendering of one resolution.
type ResolutionView struct {
	ID          string              `json:"id,omitempty"`
	RunID       string              `json:"run_id,omitempty"`
	Seq         int64               `json:"seq,omitempty"`
	Request     query.Request       `json:"request"`
	RequestHash string              `json:"request_hash"`
	Status      store.Status        `json:"status"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	Spec        json.RawMessage     `json:"spec,omitempty"`
	SQL         string              `json:"sql,omitempty"`
	Issues      []store.IssueRecord `json:"issues,omitempty"`
}

func newResolutionView(e store.Entry) ResolutionView {
	v := ResolutionView{
		ID:          e.ID,
		RunID:       e.RunID,
		Seq:         e.Seq,
		Request:     e.Request,
		RequestHash: e.RequestHash,
		Status:      e.Status,
		Fingerprint: e.Fingerprint,
		Issues:      e.Issues,
	}
	if e.Spec != "" {
		v.Spec = json.RawMessage(e.Spec)
	}
	return v
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <manifest-dir>",
		Short: "Resolve one query against a manifest",
		Long: `Resolve a query given as flags and print the resolved query spec.

Group-by and order-by items accept the dunder form (listing__country_latest,
metric_time__month) and the object form (TimeDimension('metric_time', 'month')).
Prefix an order-by item with '-' to sort descending.

--sql renders the outer SELECT over a single --from relation. Given one
relation per metric, the relations are full outer joined on the group-by
columns instead.

Exit codes:
  0 - Query resolved
  1 - Query has issues or the manifest is invalid
  2 - Command error (invalid paths, unreadable history database, etc.)

Examples:
  metricq resolve ./manifest --metrics bookings --group-by metric_time__month
  metricq resolve ./manifest --saved-query bookings_by_listing_country --limit 10
  metricq resolve ./manifest --metrics bookings --where "{{ Dimension('booking__is_instant') }}" --sql
  metricq resolve ./manifest --metrics bookings,listings --group-by metric_time --sql --from bookings_agg,listings_agg
  metricq resolve ./manifest --metrics bookings --db history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := opts.request()
			if cmd.Flags().Changed("limit") {
				limit := opts.Limit
				req.Limit = &limit
			}
			return runResolve(opts, args[0], req, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Metrics, "metrics", nil, "metric names (comma separated)")
	cmd.Flags().StringSliceVar(&opts.GroupBy, "group-by", nil, "group-by items (comma separated)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "where filter template (repeatable)")
	cmd.Flags().StringSliceVar(&opts.OrderBy, "order-by", nil, "order-by items, '-' prefix for descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "row limit")
	cmd.Flags().StringVar(&opts.SavedQuery, "saved-query", "", "saved query to start from")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "render the outer SELECT of the resolved query")
	cmd.Flags().StringSliceVar(&opts.From, "from", []string{"query_output"},
		"relation the rendered SELECT reads from, or one relation per metric to join them")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the resolution in this history database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "append to this history run instead of starting a new one")

	return cmd
}

func (o *ResolveOptions) request() query.Request {
	return query.Request{
		SavedQuery: o.SavedQuery,
		Metrics:    o.Metrics,
		GroupBy:    o.GroupBy,
		Where:      o.Where,
		OrderBy:    o.OrderBy,
	}
}

func runResolve(opts *ResolveOptions, dir string, req query.Request, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	parser, err := loadParser(opts.RootOptions, formatter, dir)
	if err != nil {
		return err
	}

	formatter.VerboseLog("Resolving %s", req.String())
	res, resolveErr := parser.ParseAndResolve(req)

	var entry store.Entry
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		defer st.Close()

		recorderOpts := []store.RecorderOption{store.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter()))}
		if opts.RunID != "" {
			recorderOpts = append(recorderOpts, store.WithRunID(opts.RunID))
		}
		recorder, err := store.NewRecorder(ctx, st, recorderOpts...)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if entry, err = recorder.Record(ctx, req, res, resolveErr); err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	} else {
		if entry, err = store.NewEntry("", 0, req, res, resolveErr); err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		entry.ID = ""
	}

	view := newResolutionView(entry)

	if resolveErr != nil {
		code := ErrCodeGeneric
		if errors.Is(resolveErr, query.ErrUnknownSavedQuery) {
			code = ErrCodeUnknownSavedQuery
		}
		return outputResolveFailure(formatter, code, resolveErr.Error(), view, "", resolveErr)
	}
	if entry.Status != store.StatusResolved {
		return outputResolveFailure(formatter, ErrCodeUnresolved, "query has resolution issues", view, res.Issues.Text(), nil)
	}

	if opts.SQL {
		var sel querysql.Select
		if len(opts.From) == 1 {
			sel, err = querysql.FromQuerySpec(res.QuerySpec, columns.DunderResolver{}, opts.From[0])
		} else {
			sel, err = querysql.FromJoinedQuerySpec(res.QuerySpec, columns.DunderResolver{}, opts.From)
		}
		if err != nil {
			return reportError(formatter, ExitFailure, ErrCodeGeneric, err.Error(), nil)
		}
		compiler := querysql.NewSQLCompiler()
		compiler.Indent = formatter.Format != "json"
		if view.SQL, err = compiler.CompileSelect(sel); err != nil {
			return reportError(formatter, ExitFailure, ErrCodeGeneric, err.Error(), nil)
		}
	}

	if formatter.Format == "json" {
		return writeJSON(formatter.Writer, CLIResponse{Status: "ok", Data: view, RunID: entry.RunID})
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✓ Query resolved")
	spec := res.QuerySpec
	fmt.Fprintf(w, "  Metrics:     %s\n", strings.Join(spec.MetricNames(), ", "))
	var groupBy []string
	for _, s := range spec.LinkableSpecs() {
		groupBy = append(groupBy, harness.ItemName(s))
	}
	fmt.Fprintf(w, "  Group by:    %s\n", strings.Join(groupBy, ", "))
	if templates := spec.FilterIntersection.Templates(); len(templates) > 0 {
		fmt.Fprintf(w, "  Where:       %s\n", strings.Join(templates, " AND "))
	}
	if spec.Limit != nil {
		fmt.Fprintf(w, "  Limit:       %d\n", *spec.Limit)
	}
	fmt.Fprintf(w, "  Fingerprint: %s\n", entry.Fingerprint)
	if entry.ID != "" {
		fmt.Fprintf(w, "  Recorded:    %s (run %s, seq %d)\n", entry.ID, entry.RunID, entry.Seq)
	}
	if view.SQL != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, view.SQL)
	}
	return nil
}

// outputResolveFailure reports a query that did not resolve. cause, when
// set, is wrapped by the returned exit error.
func outputResolveFailure(formatter *OutputFormatter, code, message string, view ResolutionView, text string, cause error) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
	if cause != nil {
		exitErr = WrapExitError(ExitFailure, code, cause)
	}

	if formatter.Format == "json" {
		if err := writeJSON(formatter.Writer, CLIResponse{
			Status: "error",
			Data:   view,
			Error:  &CLIError{Code: code, Message: message, Details: view.Issues},
			RunID:  view.RunID,
		}); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Query did not resolve")
	if text == "" {
		fmt.Fprintf(w, "  %s: %s\n", code, message)
	} else {
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return exitErr
}

func writeJSON(w io.Writer, resp CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
