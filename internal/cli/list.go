package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/metricq/internal/harness"
	"github.com/roach88/metricq/internal/query"
)

// ListOptions holds flags for the list commands.
type ListOptions struct {
	*RootOptions
	Metrics []string // restrict dimensions to those valid for these metrics
}

// MetricItem is one row of "list metrics".
type MetricItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// NewListCommand creates the list command and its subcommands.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List metrics and group-by items of a manifest",
	}

	metrics := &cobra.Command{
		Use:           "metrics <manifest-dir>",
		Short:         "List the metrics a manifest defines",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListMetrics(opts, args[0], cmd)
		},
	}

	dimensions := &cobra.Command{
		Use:   "dimensions <manifest-dir>",
		Short: "List the group-by items available for a set of metrics",
		Long: `List every group-by item a query for the given metrics could use.

Without --metrics, lists the items available to a query without metrics.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListDimensions(opts, args[0], cmd)
		},
	}
	dimensions.Flags().StringSliceVar(&opts.Metrics, "metrics", nil, "metric names (comma separated)")

	cmd.AddCommand(metrics, dimensions)
	return cmd
}

func runListMetrics(opts *ListOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lookup, err := loadLookup(formatter, dir)
	if err != nil {
		return err
	}

	items := []MetricItem{}
	for _, m := range lookup.Manifest().Metrics {
		items = append(items, MetricItem{Name: m.Name, Type: string(m.Type), Description: m.Description})
	}

	if formatter.Format == "json" {
		return formatter.Success(items)
	}
	for _, item := range items {
		fmt.Fprintf(formatter.Writer, "%-40s %s\n", item.Name, item.Type)
	}
	return nil
}

func runListDimensions(opts *ListOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	parser, err := loadParser(opts.RootOptions, formatter, dir)
	if err != nil {
		return err
	}

	available, err := parser.Resolver().AvailableGroupByItems(opts.Metrics)
	if err != nil {
		code := ErrCodeUnresolved
		if errors.Is(err, query.ErrUnknownMetric) {
			code = ErrCodeUnknownMetric
		}
		return reportError(formatter, ExitFailure, code, err.Error(), nil)
	}

	names := make([]string, len(available))
	for i, s := range available {
		names[i] = harness.ItemName(s)
	}

	if formatter.Format == "json" {
		return formatter.Success(names)
	}
	for _, name := range names {
		fmt.Fprintln(formatter.Writer, name)
	}
	return nil
}
