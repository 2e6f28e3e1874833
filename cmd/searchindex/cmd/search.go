package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/output"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
	"github.com/sharethrift/searchindex/internal/telemetry"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	filter     string
	orderBy    []string
	facets     []string
	selected   []string
	top        int
	skip       int
	searchMode string
	queryType  string
	format     string // "text", "json"
	stats      bool
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <fixture> [query...]",
		Short: "Search the documents of a fixture",
		Long: `Load a fixture into a fresh index and run one query against it.

An empty query or "*" matches every document.

Examples:
  searchindex search listings.yaml bike
  searchindex search listings.yaml "title:bike~1" --query-type full
  searchindex search listings.yaml --filter "price lt 600" --order-by "price desc"
  searchindex search listings.yaml bike --facet category --facet "tags,count:5"
  searchindex search listings.yaml bike --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "", "OData filter expression")
	cmd.Flags().StringArrayVar(&opts.orderBy, "order-by", nil, `Sort key "field [asc|desc]" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.facets, "facet", nil, `Facet "field[,count:N]" (repeatable)`)
	cmd.Flags().StringSliceVar(&opts.selected, "select", nil, "Fields to return")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().IntVar(&opts.skip, "skip", 0, "Number of results to skip")
	cmd.Flags().StringVar(&opts.searchMode, "search-mode", "any", "Term combination: any, all")
	cmd.Flags().StringVar(&opts.queryType, "query-type", "simple", "Query syntax: simple, full")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print query telemetry after the results")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, fixturePath, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return serrors.ValidationError(fmt.Sprintf("unknown format %q", opts.format), nil).
			WithSuggestion("use --format text or --format json")
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	fx, err := LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := a.newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(ctx) }()

	def, err := fx.Load(ctx, svc)
	if err != nil {
		return err
	}

	a.log().Info("search_started", slog.String("index", def.Name), slog.String("query", query))
	res, err := svc.Search(ctx, def.Name, query, &search.Options{
		QueryType:  opts.queryType,
		SearchMode: opts.searchMode,
		Filter:     opts.filter,
		Facets:     opts.facets,
		Top:        opts.top,
		Skip:       opts.skip,
		OrderBy:    opts.orderBy,
		Select:     opts.selected,
	})
	if err != nil {
		return err
	}
	a.log().Info("search_complete", slog.Int("results", len(res.Results)), slog.Int("count", res.Count))

	if opts.format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		formatResults(output.New(cmd.OutOrStdout()), def, query, res)
	}

	if opts.stats {
		snapshot := svc.Metrics().Snapshot()
		if opts.format == "json" {
			return writeJSON(cmd.OutOrStdout(), snapshot)
		}
		formatStats(output.New(cmd.OutOrStdout()), snapshot)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatResults(out *output.Writer, def schema.IndexDefinition, query string, res *search.DocumentsResult) {
	label := query
	if label == "" {
		label = "*"
	}

	if len(res.Results) == 0 {
		out.Statusf("", "No results found for %q", label)
	} else {
		out.Heading(fmt.Sprintf("Results for %q (%d of %d)", label, len(res.Results), res.Count))
		keyField, _ := def.KeyField()
		for i, r := range res.Results {
			out.Statusf("", "%d. %v  [score %.4f]", i+1, r.Document[keyField.Name], r.Score)
			for _, name := range sortedFields(r.Document) {
				if name == keyField.Name {
					continue
				}
				out.KeyValue("  "+name, r.Document[name])
			}
		}
	}

	if len(res.Facets) == 0 {
		return
	}
	out.Newline()
	out.Heading("Facets")
	names := make([]string, 0, len(res.Facets))
	for name := range res.Facets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		values := res.Facets[name]
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprintf("%v (%d)", v.Value, v.Count)
		}
		out.KeyValue(name, strings.Join(parts, ", "))
	}
}

func formatStats(out *output.Writer, s *telemetry.QueryMetricsSnapshot) {
	out.Newline()
	out.Heading("Query telemetry")
	out.KeyValue("Total queries", s.TotalQueries)
	out.KeyValue("Zero results", fmt.Sprintf("%d (%.1f%%)", s.ZeroResultCount, s.ZeroResultPercentage()))
	out.KeyValue("Filtered", s.FilteredCount)
	out.KeyValue("Exact repeats", s.ExactRepeatCount)
	for _, bucket := range []telemetry.LatencyBucket{
		telemetry.BucketP1, telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100, telemetry.BucketP1000,
	} {
		if n := s.LatencyDistribution[bucket]; n > 0 {
			out.KeyValue("Latency "+string(bucket), n)
		}
	}
}

func sortedFields(doc schema.Document) []string {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
