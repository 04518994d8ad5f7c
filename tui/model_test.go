package tui

import (
	"testing"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-groove/beat"
	"go-groove/config"
	"go-groove/theme"
	"go-groove/trainer"
)

func newModel(t *testing.T) Model {
	t.Helper()
	mgr := trainer.NewManager(trainer.WithSimulatedClock())
	require.NoError(t, mgr.SetSource(beat.Source{Bars: []beat.BarSource{{Kick: "k,x,k", Snare: "x,s"}}}))
	m := NewModel(mgr, nil, theme.New(nil), config.DefaultConfig())
	m.persist = debounce.New(time.Hour)
	return m
}

func press(m Model, key string) Model {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	if key == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestRecordAndKeyboardDrums(t *testing.T) {
	m := newModel(t)

	m = press(m, "r")
	assert.Equal(t, "recording", m.Manager.Status().State)

	m = press(m, "z")
	capture := m.Manager.Capture()
	require.Len(t, capture.Notes, 1)
	assert.Equal(t, beat.Kick, capture.Notes[0].Voice)

	assert.Contains(t, m.View(), "REC")

	m = press(m, "r")
	assert.Equal(t, "stopped", m.Manager.Status().State)
}

func TestPlayToggle(t *testing.T) {
	m := newModel(t)
	m = press(m, " ")
	assert.Equal(t, "playing", m.Manager.Status().State)
	m = press(m, "p")
	assert.Equal(t, "stopped", m.Manager.Status().State)
}

func TestTempoKeys(t *testing.T) {
	m := newModel(t)
	m = press(m, "+")
	assert.Equal(t, 125.0, m.Manager.Tempo())
	assert.Equal(t, 125.0, m.Config.Practice.Tempo)

	m = press(m, "r")
	m = press(m, "-")
	assert.Equal(t, 125.0, m.Manager.Tempo())
	assert.Contains(t, m.View(), "stop to change tempo")
}

func TestQuitStops(t *testing.T) {
	m := newModel(t)
	m = press(m, "r")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, "stopped", m.Manager.Status().State)
	assert.Equal(t, "", next.View())
}
