package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/combatlens/internal/store"
	"github.com/roach88/combatlens/internal/suggest"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Job    string
	Limit  int
	Show   string // run id to print in full

	Findings bool
	Module   string
	Severity string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analysis runs",
		Long: `List analysis runs saved with "analyze --save", newest first.

With --show, print one stored report in full. With --findings, list
stored findings across runs, optionally narrowed by --module and a
minimum --severity.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "history database (defaults to config db_path)")
	cmd.Flags().StringVar(&opts.Job, "job", "", "only list runs of this job")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Show, "show", "", "print the stored report of this run id")
	cmd.Flags().BoolVar(&opts.Findings, "findings", false, "list stored findings instead of runs")
	cmd.Flags().StringVar(&opts.Module, "module", "", "with --findings, only this module")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "with --findings, minimum severity (minor, medium, major, morbid)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var minSeverity suggest.Severity
	if opts.Severity != "" {
		sev, err := suggest.ParseSeverity(opts.Severity)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, "invalid --severity", err)
		}
		minSeverity = sev
	}

	dbPath := firstNonEmpty(opts.DBPath, opts.settings().DBPath)
	// Reading history never creates a database.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return commandError(formatter, ErrCodeNotFound, "history database not found", errors.New(dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return commandError(formatter, ErrCodeStore, "failed to open history database", err)
	}
	defer st.Close()

	if opts.Show != "" {
		return showRun(ctx, st, opts, formatter)
	}
	if opts.Findings {
		return listFindings(ctx, st, store.FindingFilter{
			Job:         opts.Job,
			Module:      opts.Module,
			MinSeverity: minSeverity,
			Limit:       opts.Limit,
		}, formatter)
	}

	runs, err := st.ListRuns(ctx, store.ListFilter{Job: opts.Job, Limit: opts.Limit})
	if err != nil {
		return commandError(formatter, ErrCodeStore, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	writeRuns(formatter.Writer, runs)
	return nil
}

func showRun(ctx context.Context, st *store.Store, opts *HistoryOptions, f *OutputFormatter) error {
	run, err := st.ReadRun(ctx, opts.Show)
	if err != nil {
		return commandError(f, ErrCodeNotFound, "failed to read run", err)
	}
	report, err := st.ReadReport(ctx, opts.Show)
	if err != nil {
		return commandError(f, ErrCodeStore, "failed to read report", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: map[string]any{"run": run, "report": report}})
	}
	writeReport(f.Writer, fmt.Sprintf("%s [%s] run %s", run.Encounter, run.Job, run.ID), report)
	return nil
}

func listFindings(ctx context.Context, st *store.Store, filter store.FindingFilter, f *OutputFormatter) error {
	hits, err := st.SearchFindings(ctx, filter)
	if err != nil {
		return commandError(f, ErrCodeStore, "failed to search findings", err)
	}
	if f.Format == "json" {
		return f.Success(hits)
	}
	writeFindingHits(f.Writer, hits)
	return nil
}
