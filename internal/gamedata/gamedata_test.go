package gamedata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedTables(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	wf, err := table.ActionByKey("WILDFIRE")
	require.NoError(t, err)
	assert.Equal(t, 2878, wf.ID)
	assert.Equal(t, "Wildfire", wf.Name)
	assert.Equal(t, int64(120000), wf.Cooldown)
	assert.False(t, wf.OnGCD)
	assert.Equal(t, "WILDFIRE", wf.Key)

	blast, ok := table.Action(7410)
	require.True(t, ok)
	assert.True(t, blast.OnGCD)
	assert.True(t, table.OnGCD(7410))
	assert.False(t, table.OnGCD(999999), "unknown ids are off-GCD")

	st, err := table.StatusByKey("WILDFIRE")
	require.NoError(t, err)
	assert.Equal(t, 861, st.ID)
}

func TestDefault_SchemaDefaults(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	eos, err := table.ActionByKey("EMBRACE")
	require.NoError(t, err)
	assert.True(t, eos.Pet)
	assert.Equal(t, int64(0), eos.Cooldown, "cooldown defaults to zero")
}

func TestLoad_UnknownKeys(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	_, err = table.ActionByKey("NOT_AN_ACTION")
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = table.StatusByKey("NOT_A_STATUS")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = table.ActionIDs("AETHERFLOW", "NOPE")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestLoad_ExtraSourceAddsEntries(t *testing.T) {
	src := Source{Name: "extra.cue", Data: []byte(`
actions: BIOLYSIS: {id: 16540, name: "Biolysis", onGCD: true}
statuses: BIOLYSIS: {id: 1895, name: "Biolysis", duration: 30000}
`)}

	table, err := Load(src)
	require.NoError(t, err)

	bio, err := table.ActionByKey("BIOLYSIS")
	require.NoError(t, err)
	assert.True(t, bio.OnGCD)

	_, err = table.ActionByKey("WILDFIRE")
	assert.NoError(t, err, "embedded entries survive unification")
}

func TestLoad_SchemaViolation(t *testing.T) {
	src := Source{Name: "bad.cue", Data: []byte(`actions: BROKEN: {id: -1, name: "Broken"}`)}

	_, err := Load(src)
	require.Error(t, err)
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoad_ConflictingOverride(t *testing.T) {
	src := Source{Name: "conflict.cue", Data: []byte(`actions: WILDFIRE: id: 1`)}

	_, err := Load(src)
	require.Error(t, err)
}

func TestLoad_DuplicateIDs(t *testing.T) {
	src := Source{Name: "dup.cue", Data: []byte(`actions: WILDFIRE_COPY: {id: 2878, name: "Wildfire Again"}`)}

	_, err := Load(src)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.cue")
	require.NoError(t, os.WriteFile(path, []byte(`statuses: TEST: {id: 424242, name: "Test"}`), 0644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	_, ok := table.Status(424242)
	assert.True(t, ok)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestTable_OrderedListings(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	actions := table.Actions()
	require.NotEmpty(t, actions)
	for i := 1; i < len(actions); i++ {
		assert.Less(t, actions[i-1].ID, actions[i].ID)
	}
	assert.NotEmpty(t, table.Statuses())
}
