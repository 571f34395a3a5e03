package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/modules"
)

type moduleRow struct {
	Handle       string   `json:"handle"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// NewModulesCommand creates the modules command.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	var job string

	cmd := &cobra.Command{
		Use:           "modules",
		Short:         "List analysis modules in construction order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(rootOpts, job, cmd)
		},
	}
	cmd.Flags().StringVar(&job, "job", "", "only list this job (default: every job)")
	return cmd
}

func runModules(opts *RootOptions, job string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	jobs := modules.Jobs()
	if job != "" {
		jobs = []string{strings.ToUpper(job)}
	}

	listing := make(map[string][]moduleRow, len(jobs))
	for _, j := range jobs {
		rows, err := resolvedModules(j)
		if err != nil {
			code := ErrCodeRegistry
			if engine.Code(err) == engine.ErrCodeUnknown {
				code = ErrCodeUnknownJob
			}
			return commandError(formatter, code, fmt.Sprintf("job %s", j), err)
		}
		listing[j] = rows
	}

	if opts.Format == "json" {
		return formatter.Success(listing)
	}
	for _, j := range jobs {
		writeModules(formatter.Writer, j, listing[j])
	}
	return nil
}

func resolvedModules(job string) ([]moduleRow, error) {
	reg, err := modules.Registry(job)
	if err != nil {
		return nil, err
	}
	order, err := reg.Resolve()
	if err != nil {
		return nil, err
	}
	rows := make([]moduleRow, 0, len(order))
	for _, h := range order {
		desc, _ := reg.Descriptor(h)
		row := moduleRow{Handle: string(h)}
		for _, d := range desc.Dependencies {
			row.Dependencies = append(row.Dependencies, string(d))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
