// Package modules is the job catalog: it names which analysis modules make
// up the registry for each supported job.
package modules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/modules/core"
	"github.com/roach88/combatlens/internal/modules/mch"
	"github.com/roach88/combatlens/internal/modules/sch"
)

// ErrUnknownJob is returned for a job with no catalog entry.
var ErrUnknownJob = errors.New("unknown job")

var catalog = map[string]func() []engine.Descriptor{
	"MCH": mch.Descriptors,
	"SCH": sch.Descriptors,
}

// Jobs returns the supported job codes, sorted.
func Jobs() []string {
	jobs := make([]string, 0, len(catalog))
	for j := range catalog {
		jobs = append(jobs, j)
	}
	sort.Strings(jobs)
	return jobs
}

// ForJob returns the core modules followed by the job's own modules. Job
// codes are case-insensitive.
func ForJob(job string) ([]engine.Descriptor, error) {
	descs, ok := catalog[strings.ToUpper(job)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownJob, job, strings.Join(Jobs(), ", "))
	}
	return append(core.Descriptors(), descs()...), nil
}

// Registry returns a registry populated with the job's modules.
func Registry(job string) (*engine.Registry, error) {
	descs, err := ForJob(job)
	if err != nil {
		return nil, err
	}
	reg := engine.NewRegistry()
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("job %s: %w", job, err)
		}
	}
	return reg, nil
}
