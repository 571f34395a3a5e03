package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/combatlens/internal/encounter"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/modules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Job      string
	DataFile string
}

// JobCheck is the resolution outcome of one job's module graph.
type JobCheck struct {
	Job     string   `json:"job"`
	Modules []string `json:"modules,omitempty"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// EncounterCheck is the outcome of checking one encounter file.
type EncounterCheck struct {
	File   string `json:"file"`
	Job    string `json:"job,omitempty"`
	Events int    `json:"events"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool             `json:"valid"`
	Actions    int              `json:"actions"`
	Statuses   int              `json:"statuses"`
	Jobs       []JobCheck       `json:"jobs"`
	Encounters []EncounterCheck `json:"encounters,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [encounter-file]...",
		Short: "Validate static data, module graphs and encounter files",
		Long: `Validate static data and module graphs without analysing anything.

Loads the static data (embedded, optionally unified with --data) and
resolves the module graph of every job, reporting dependency cycles and
missing dependencies. Encounter files given as arguments are parsed,
their event streams checked for ordering, and their modules constructed.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Job, "job", "", "only validate this job")
	cmd.Flags().StringVar(&opts.DataFile, "data", "", "CUE file extending the embedded static data")

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	data, err := loadStaticData(firstNonEmpty(opts.DataFile, opts.settings().DataFile))
	if err != nil {
		return outputValidateError(formatter, ErrCodeLoadFailed, err.Error())
	}

	jobs := modules.Jobs()
	if opts.Job != "" {
		if _, err := modules.ForJob(opts.Job); err != nil {
			return outputValidateError(formatter, ErrCodeUnknownJob, err.Error())
		}
		jobs = []string{strings.ToUpper(opts.Job)}
	}

	result := ValidationResult{
		Valid:    true,
		Actions:  len(data.Actions()),
		Statuses: len(data.Statuses()),
	}
	for _, job := range jobs {
		check := checkJob(job)
		if check.Error != "" {
			result.Valid = false
		}
		result.Jobs = append(result.Jobs, check)
	}
	for _, file := range files {
		check := checkEncounter(file, data)
		if check.Error != "" {
			result.Valid = false
		}
		formatter.VerboseLog("checked %s: %d events", file, check.Events)
		result.Encounters = append(result.Encounters, check)
	}

	if opts.Format == "json" {
		return outputValidateJSON(formatter.Writer, result)
	}
	return outputValidateText(formatter.Writer, result)
}

func checkJob(job string) JobCheck {
	check := JobCheck{Job: job}
	reg, err := modules.Registry(job)
	if err != nil {
		check.Error, check.Code = err.Error(), ErrCodeRegistry
		return check
	}
	order, err := reg.Resolve()
	if err != nil {
		check.Error, check.Code = err.Error(), string(engine.Code(err))
		return check
	}
	for _, h := range order {
		check.Modules = append(check.Modules, string(h))
	}
	return check
}

// checkEncounter parses a file, checks its stream and builds (but does not
// execute) its job's modules against the static data.
func checkEncounter(file string, data *gamedata.Table) EncounterCheck {
	check := EncounterCheck{File: file}
	enc, err := encounter.Load(file)
	if err != nil {
		check.Error, check.Code = err.Error(), ErrCodeLoadFailed
		return check
	}
	check.Job, check.Events = enc.Job, len(enc.Events)

	if err := event.Validate(enc.Events); err != nil {
		check.Error, check.Code = err.Error(), string(engine.Code(err))
		return check
	}
	roster, err := enc.Roster()
	if err != nil {
		check.Error, check.Code = err.Error(), ErrCodeLoadFailed
		return check
	}
	reg, err := modules.Registry(enc.Job)
	if err != nil {
		check.Error, check.Code = err.Error(), ErrCodeUnknownJob
		return check
	}
	if _, err := engine.Build(reg, engine.Environment{Data: data, Roster: roster}, engine.WithLogger(slog.Default())); err != nil {
		check.Error, check.Code = err.Error(), string(engine.Code(err))
	}
	return check
}

func outputValidateJSON(w io.Writer, result ValidationResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		response.Status = "error"
		response.Error = &CLIError{Code: ErrCodeRegistry, Message: "validation failed"}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func outputValidateText(w io.Writer, result ValidationResult) error {
	fmt.Fprintf(w, "Static data: %d actions, %d statuses\n", result.Actions, result.Statuses)
	for _, j := range result.Jobs {
		if j.Error != "" {
			fmt.Fprintf(w, "✗ %s: [%s] %s\n", j.Job, j.Code, j.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s\n", j.Job, strings.Join(j.Modules, " -> "))
	}
	for _, e := range result.Encounters {
		if e.Error != "" {
			fmt.Fprintf(w, "✗ %s: [%s] %s\n", e.File, e.Code, e.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s, %d events\n", e.File, e.Job, e.Events)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	fmt.Fprintln(w, "✓ Validation passed")
	return nil
}

// outputValidateError outputs a validation error in the appropriate format.
func outputValidateError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, message)
}
