package analysis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/modules"
	"github.com/roach88/combatlens/internal/modules/mch"
	"github.com/roach88/combatlens/internal/modules/modtest"
	"github.com/roach88/combatlens/internal/suggest"
	"github.com/roach88/combatlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	player = modtest.Player
	boss   = modtest.Boss

	heatBlast = 7410
	splitShot = 7411
	barrel    = 7414
	wildfire  = 861
)

func quiet() engine.Option {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func input(t *testing.T, events []event.Event) analysis.Input {
	return analysis.Input{Events: events, Data: modtest.Data(t), Roster: modtest.Roster(t)}
}

func machinistStream() []event.Event {
	s := testutil.NewStream().
		Cast(player, player, barrel).
		After(1000).Cast(player, player, barrel).
		After(1000).Cast(player, player, barrel). // 50 over
		After(1000).ApplyDebuff(player, boss, wildfire)
	for range 4 {
		s.After(2500).Damage(player, boss, splitShot, 1000)
	}
	return s.After(1000).Damage(player, boss, wildfire, 1000).
		RemoveDebuff(player, boss, wildfire).
		Events()
}

func TestAnalyze_MachinistReport(t *testing.T) {
	reg, err := modules.Registry("MCH")
	require.NoError(t, err)

	report, err := analysis.Analyze(context.Background(), input(t, machinistStream()), reg, quiet())
	require.NoError(t, err)

	require.Len(t, report.Modules, reg.Len())
	for _, m := range report.Modules {
		assert.Equal(t, engine.StatusOK, m.Status, m.Handle)
		assert.Empty(t, m.Error)
	}

	var heat, wf *suggest.Finding
	for i := range report.Findings {
		switch engine.Handle(report.Findings[i].Module) {
		case mch.HandleHeat:
			heat = &report.Findings[i]
		case mch.HandleWildfire:
			wf = &report.Findings[i]
		}
	}
	require.NotNil(t, heat)
	assert.Equal(t, suggest.Major, heat.Severity)
	require.NotNil(t, wf)
	assert.Equal(t, suggest.Medium, wf.Severity)

	assert.Len(t, report.Fingerprint, 64)
}

func TestAnalyze_FingerprintIsDeterministic(t *testing.T) {
	var prints []string
	var reports []*analysis.Report
	for range 3 {
		reg, err := modules.Registry("MCH")
		require.NoError(t, err)
		report, err := analysis.Analyze(context.Background(), input(t, machinistStream()), reg, quiet())
		require.NoError(t, err)
		prints = append(prints, report.Fingerprint)
		reports = append(reports, report)
	}
	assert.Equal(t, prints[0], prints[1])
	assert.Equal(t, prints[0], prints[2])
	assert.Equal(t, reports[0], reports[2])
}

func TestAnalyze_FingerprintChangesWithInput(t *testing.T) {
	reg, err := modules.Registry("MCH")
	require.NoError(t, err)
	a, err := analysis.Analyze(context.Background(), input(t, machinistStream()), reg, quiet())
	require.NoError(t, err)

	short := testutil.NewStream().Cast(player, player, barrel).Events()
	reg, err = modules.Registry("MCH")
	require.NoError(t, err)
	b, err := analysis.Analyze(context.Background(), input(t, short), reg, quiet())
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

// faultyRegistry holds a module that writes a finding and then faults, a
// dependent that writes a finding at construction, and an unrelated module.
func faultyRegistry() *engine.Registry {
	reg := engine.NewRegistry()
	reg.MustRegister(
		engine.Descriptor{Handle: "root", New: func(ctx *engine.Context) (engine.Module, error) {
			out := ctx.Suggestions()
			calls := 0
			err := ctx.On([]event.Type{event.TypeCast}, event.Filter{}, func(event.Event) error {
				calls++
				if calls == 1 {
					out.Add(suggest.Suggestion{Content: "root", Value: 1, Tiers: suggest.Fixed(suggest.Minor)})
					return nil
				}
				return errors.New("boom")
			})
			return struct{}{}, err
		}},
		engine.Descriptor{Handle: "child", Dependencies: []engine.Handle{"root"}, New: func(ctx *engine.Context) (engine.Module, error) {
			ctx.Suggestions().Add(suggest.Suggestion{Content: "child", Tiers: suggest.Fixed(suggest.Major)})
			ctx.Checklist().Add(suggest.Rule{Name: "child rule"})
			return struct{}{}, nil
		}},
		engine.Descriptor{Handle: "other", New: func(ctx *engine.Context) (engine.Module, error) {
			ctx.Suggestions().Add(suggest.Suggestion{Content: "other", Tiers: suggest.Fixed(suggest.Medium)})
			return struct{}{}, nil
		}},
	)
	return reg
}

func TestAnalyze_WithholdsFindingsOfUnhealthyModules(t *testing.T) {
	events := testutil.NewStream().
		Cast(player, boss, heatBlast).
		After(1000).Cast(player, boss, heatBlast).
		Events()

	report, err := analysis.Analyze(context.Background(), input(t, events), faultyRegistry(), quiet())
	require.NoError(t, err)

	require.Len(t, report.Modules, 3)
	byHandle := make(map[engine.Handle]analysis.ModuleReport)
	for _, m := range report.Modules {
		byHandle[m.Handle] = m
	}
	assert.Equal(t, engine.StatusFailed, byHandle["root"].Status)
	assert.Contains(t, byHandle["root"].Error, "boom")
	assert.Equal(t, engine.StatusDegraded, byHandle["child"].Status)
	assert.Equal(t, engine.Handle("root"), byHandle["child"].Cause)
	assert.Equal(t, "dependency root failed", byHandle["child"].Error)
	assert.Equal(t, engine.StatusOK, byHandle["other"].Status)

	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "other", report.Suggestions[0].Content)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, suggest.Medium, report.Findings[0].Severity)
	assert.Empty(t, report.Checklist)
}

func TestAnalyze_InvalidStream(t *testing.T) {
	events := testutil.NewStream().
		At(5000).Cast(player, boss, heatBlast).
		At(1000).Cast(player, boss, heatBlast).
		Events()
	reg, err := modules.Registry("MCH")
	require.NoError(t, err)

	_, err = analysis.Analyze(context.Background(), input(t, events), reg, quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrUnordered)
	assert.Equal(t, engine.ErrCodeInvalidStream, engine.Code(err))
}

func TestAnalyze_SetupFailure(t *testing.T) {
	reg, err := modules.Registry("SCH")
	require.NoError(t, err)

	_, err = analysis.Analyze(context.Background(), analysis.Input{Data: modtest.Data(t)}, reg, quiet())
	require.Error(t, err)
	assert.True(t, engine.IsSetupError(err))
}

func TestStreamFingerprint(t *testing.T) {
	a, err := analysis.StreamFingerprint(machinistStream())
	require.NoError(t, err)
	b, err := analysis.StreamFingerprint(machinistStream())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
