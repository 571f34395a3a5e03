package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/encounter"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/metrics"
	"github.com/roach88/combatlens/internal/modules"
	"github.com/roach88/combatlens/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Job      string // overrides each encounter's job
	DataFile string // CUE file unified with the embedded static data
	DBPath   string
	Save     bool
	Metrics  bool
	Workers  int
}

// EncounterResult is the outcome of analysing one encounter file.
type EncounterResult struct {
	File      string           `json:"file"`
	Encounter string           `json:"encounter,omitempty"`
	Job       string           `json:"job,omitempty"`
	RunID     string           `json:"run_id,omitempty"`
	Saved     bool             `json:"saved,omitempty"`
	Report    *analysis.Report `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      string           `json:"code,omitempty"`

	enc *encounter.Encounter
}

// AnalyzeResult holds the results of an analyze invocation in argument order.
type AnalyzeResult struct {
	Encounters []EncounterResult `json:"encounters"`
	Failed     int               `json:"failed"`
	Metrics    []metrics.Sample  `json:"metrics,omitempty"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <encounter-file>...",
		Short: "Analyse recorded encounters",
		Long: `Analyse one or more encounter files and print the report.

Each file is analysed in its own run with the module catalog of its job.
Files are analysed in parallel; reports are printed in argument order.

Exit codes:
  0 - Every encounter was analysed
  1 - One or more encounters could not be analysed
  2 - Command error (bad static data, store unavailable, etc.)

Examples:
  combatlens analyze fight.yaml
  combatlens analyze fights/*.yaml --save --db history.db
  combatlens analyze fight.yaml --job SCH --format json --metrics`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Job, "job", "", "analyse every encounter as this job")
	cmd.Flags().StringVar(&opts.DataFile, "data", "", "CUE file extending the embedded static data")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "history database (defaults to config db_path)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store reports in the history database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics after the reports")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "encounters analysed concurrently (defaults to config workers)")

	return cmd
}

func runAnalyze(ctx context.Context, opts *AnalyzeOptions, files []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.settings()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dataFile := firstNonEmpty(opts.DataFile, cfg.DataFile)
	data, err := loadStaticData(dataFile)
	if err != nil {
		return commandError(formatter, ErrCodeLoadFailed, "failed to load static data", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Workers
	}
	var observer *metrics.Observer
	if opts.Metrics || cfg.Metrics {
		observer = metrics.NewObserver()
	}

	results := make([]EncounterResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, file := range files {
		g.Go(func() error {
			results[i] = analyzeFile(gctx, file, opts.Job, data, observer)
			return nil
		})
	}
	_ = g.Wait()

	// SQLite takes one writer; saves happen after the parallel phase.
	if opts.Save {
		dbPath := firstNonEmpty(opts.DBPath, cfg.DBPath)
		if err := saveResults(ctx, dbPath, results); err != nil {
			return commandError(formatter, ErrCodeStore, "failed to save reports", err)
		}
	}

	out := AnalyzeResult{Encounters: results}
	for _, r := range results {
		if r.Error != "" {
			out.Failed++
		}
	}
	if observer != nil {
		if out.Metrics, err = observer.Samples(); err != nil {
			return commandError(formatter, ErrCodeGeneric, "failed to gather metrics", err)
		}
	}

	if opts.Format == "json" {
		return outputAnalyzeJSON(cmd, out)
	}
	return outputAnalyzeText(cmd, out)
}

// analyzeFile runs one encounter. Errors are recorded on the result so one
// bad file does not stop the others.
func analyzeFile(ctx context.Context, file, job string, data *gamedata.Table, observer *metrics.Observer) EncounterResult {
	res := EncounterResult{File: file}

	enc, err := encounter.Load(file)
	if err != nil {
		res.Error, res.Code = err.Error(), ErrCodeLoadFailed
		return res
	}
	res.enc = enc
	res.Encounter = enc.Label()
	res.Job = enc.Job
	if job != "" {
		res.Job = strings.ToUpper(job)
	}

	roster, err := enc.Roster()
	if err != nil {
		res.Error, res.Code = err.Error(), ErrCodeLoadFailed
		return res
	}
	reg, err := modules.Registry(res.Job)
	if err != nil {
		res.Error, res.Code = err.Error(), ErrCodeUnknownJob
		return res
	}

	runOpts := []engine.Option{engine.WithLogger(slog.Default().With("encounter", res.Encounter))}
	if observer != nil {
		runOpts = append(runOpts, engine.WithObserver(observer))
	}

	slog.Debug("analysing encounter", "file", file, "job", res.Job, "events", len(enc.Events))
	report, err := analysis.Analyze(ctx, analysis.Input{Events: enc.Events, Data: data, Roster: roster}, reg, runOpts...)
	if err != nil {
		res.Error, res.Code = err.Error(), ErrCodeAnalysis
		slog.Error("analysis failed", "file", file, "code", engine.Code(err), "error", err)
		return res
	}
	res.Report = report
	return res
}

func saveResults(ctx context.Context, dbPath string, results []EncounterResult) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	for i := range results {
		r := &results[i]
		if r.Report == nil {
			continue
		}
		streamFP, err := analysis.StreamFingerprint(r.enc.Events)
		if err != nil {
			return err
		}
		id, inserted, err := st.SaveRun(ctx, store.Meta{
			Encounter:         r.Encounter,
			Job:               r.Job,
			Player:            r.enc.Player,
			EventCount:        len(r.enc.Events),
			StreamFingerprint: streamFP,
		}, r.Report)
		if err != nil {
			return fmt.Errorf("%s: %w", r.File, err)
		}
		r.RunID, r.Saved = id, inserted
		slog.Info("report stored", "file", r.File, "run", id, "inserted", inserted)
	}
	return nil
}

func loadStaticData(path string) (*gamedata.Table, error) {
	if path == "" {
		return gamedata.Default()
	}
	return gamedata.LoadFile(path)
}

func outputAnalyzeJSON(cmd *cobra.Command, result AnalyzeResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeAnalysis,
			Message: fmt.Sprintf("%d encounter(s) could not be analysed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return analyzeExit(result)
}

func outputAnalyzeText(cmd *cobra.Command, result AnalyzeResult) error {
	w := cmd.OutOrStdout()
	for i, r := range result.Encounters {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "✗ %s\n  Error [%s]: %s\n", r.File, r.Code, r.Error)
			continue
		}
		writeReport(w, fmt.Sprintf("%s [%s] %s", r.Encounter, r.Job, r.File), r.Report)
		if r.RunID != "" {
			state := "stored"
			if !r.Saved {
				state = "already stored"
			}
			fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, state)
		}
	}
	if len(result.Metrics) > 0 {
		fmt.Fprintln(w)
		writeSamples(w, result.Metrics)
	}
	return analyzeExit(result)
}

func analyzeExit(result AnalyzeResult) error {
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d encounter(s) could not be analysed", result.Failed))
	}
	return nil
}

// commandError prints an error in the configured format and returns an
// ExitCommandError.
func commandError(f *OutputFormatter, code, message string, err error) error {
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, message, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
