package gamedata

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed data/gamedata.cue
var defaultSource []byte

// Source is one named CUE document contributing to the tables.
type Source struct {
	Name string
	Data []byte
}

// LoadError wraps a CUE compile or validation failure with the source name.
type LoadError struct {
	Source  string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("gamedata %s: %s", e.Source, e.Message)
}

// Default returns the embedded tables.
func Default() (*Table, error) {
	return Load()
}

// LoadFile unifies the embedded tables with a CUE file on disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gamedata file: %w", err)
	}
	return Load(Source{Name: path, Data: data})
}

// Load compiles the embedded tables unified with any extra sources.
//
// Extra sources may add entries or narrow existing ones; conflicting concrete
// values (e.g. two different ids for one key) are CUE unification errors.
func Load(extra ...Source) (*Table, error) {
	ctx := cuecontext.New()

	value := ctx.CompileBytes(defaultSource, cue.Filename("gamedata.cue"))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Source: "gamedata.cue", Message: formatCUEError(err)}
	}

	for _, src := range extra {
		v := ctx.CompileBytes(src.Data, cue.Filename(src.Name))
		if err := v.Err(); err != nil {
			return nil, &LoadError{Source: src.Name, Message: formatCUEError(err)}
		}
		value = value.Unify(v)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Source: "unified", Message: formatCUEError(err)}
	}

	actions, err := decodeEntries[Action](value, "actions")
	if err != nil {
		return nil, err
	}
	statuses, err := decodeEntries[Status](value, "statuses")
	if err != nil {
		return nil, err
	}

	return NewTable(actions, statuses)
}

// decodeEntries decodes every field of the struct at path into T.
func decodeEntries[T any](value cue.Value, path string) (map[string]T, error) {
	out := make(map[string]T)

	v := value.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return out, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, &LoadError{Source: path, Message: formatCUEError(err)}
	}
	for iter.Next() {
		var entry T
		if err := iter.Value().Decode(&entry); err != nil {
			return nil, &LoadError{Source: path + "." + iter.Label(), Message: formatCUEError(err)}
		}
		out[iter.Label()] = entry
	}
	return out, nil
}

// formatCUEError flattens a CUE error list into one line per error.
func formatCUEError(err error) string {
	errs := errors.Errors(err)
	if len(errs) <= 1 {
		return err.Error()
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return msg
}
