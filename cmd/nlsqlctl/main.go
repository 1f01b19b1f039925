// Command nlsqlctl answers questions and manages the knowledge index from the shell,
// using the same configuration as the API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flowbit/nlsql/internal/config"
	"github.com/flowbit/nlsql/internal/models"
	"github.com/flowbit/nlsql/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

var errIndexDisabled = errors.New("knowledge index disabled: set EMBEDDING_PROVIDER")

// buildFunc is swapped in tests.
type buildFunc func(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error)

func defaultBuild(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	return pipeline.Build(ctx, cfg, pipeline.Options{}) //nolint:wrapcheck // Build errors carry context
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "nlsqlctl",
		Short:        "Ask questions about invoice data in plain English",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log routing and provider details to stderr")

	root.AddCommand(newAskCmd(defaultBuild), newSeedCmd(defaultBuild), newCountCmd(defaultBuild))

	return root
}

func loadPipeline(cmd *cobra.Command, build buildFunc) (*pipeline.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return build(cmd.Context(), cfg)
}

func newAskCmd(build buildFunc) *cobra.Command {
	var (
		asJSON bool
		noSeed bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(cmd, build)
			if err != nil {
				return err
			}
			defer p.Close()

			if !noSeed {
				if _, err := p.Seed(cmd.Context()); err != nil {
					return err //nolint:wrapcheck // Seed wraps
				}
			}

			result, err := p.Service.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("answer question: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(result) //nolint:wrapcheck // stdout write
			}

			return renderResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "do not seed an empty knowledge index first")

	return cmd
}

func newSeedCmd(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the curated examples into an empty knowledge index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cmd, build)
			if err != nil {
				return err
			}
			defer p.Close()

			if p.Index == nil {
				return errIndexDisabled
			}

			n, err := p.Seed(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // Seed wraps
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d examples\n", n)

			return nil
		},
	}
}

func newCountCmd(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored training examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cmd, build)
			if err != nil {
				return err
			}
			defer p.Close()

			if p.Index == nil {
				return errIndexDisabled
			}

			n, err := p.Index.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count training examples: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)

			return nil
		},
	}
}

// renderResult prints the SQL, provenance and a tab-aligned table of rows.
func renderResult(w io.Writer, r *models.QueryResult) error {
	fmt.Fprintf(w, "-- %s (confidence %.2f, %s)\n", r.Metadata.StrategyUsed, r.Confidence, r.Explanation)
	fmt.Fprintln(w, r.SQL)
	fmt.Fprintln(w)

	if len(r.Data) == 0 {
		fmt.Fprintln(w, "(no rows)")

		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(r.Data[0]))
	for _, f := range r.Data[0] {
		header = append(header, f.Column)
	}

	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range r.Data {
		cells := make([]string, 0, len(row))
		for _, f := range row {
			cells = append(cells, formatCell(f.Value))
		}

		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	fmt.Fprintf(tw, "(%d rows, %.3fs)\n", r.Metadata.RowCount, r.ExecutionTime)

	return tw.Flush() //nolint:wrapcheck // stdout write
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}

	return fmt.Sprint(v)
}
