package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const machinistEncounter = `
name: Striking Dummy
job: MCH
player: 1
participants:
  - { id: 1, name: Player, kind: player, friendly: true }
  - { id: 100, name: Striking Dummy, kind: npc }
events:
  - { type: cast, timestamp: 0, source: 1, target: 1, ability: 7414 }
  - { type: cast, timestamp: 1000, source: 1, target: 1, ability: 7414 }
  - { type: cast, timestamp: 2000, source: 1, target: 1, ability: 7414 }
`

const unorderedEncounter = `
name: Broken Log
job: MCH
player: 1
participants:
  - { id: 1, name: Player, kind: player, friendly: true }
events:
  - { type: cast, timestamp: 2000, source: 1, target: 1, ability: 7414 }
  - { type: cast, timestamp: 1000, source: 1, target: 1, ability: 7414 }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
