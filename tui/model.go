package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-groove/beat"
	"go-groove/config"
	"go-groove/debug"
	"go-groove/midi"
	"go-groove/performance"
	"go-groove/theme"
	"go-groove/trainer"
	"go-groove/widgets"
)

const (
	tempoStep     = 5
	keyVelocity   = 100
	feedbackLines = 6
	meterWidth    = 21
)

// keyboard drums for practice without pads
var drumKeys = map[string]beat.Voice{
	"z": beat.Kick,
	"x": beat.Snare,
	"c": beat.Hihat,
	"v": beat.Accent,
}

type Model struct {
	Manager   *trainer.Manager
	DeviceMgr *midi.DeviceManager // may be nil
	Theme     *theme.Theme
	Config    *config.Config
	BeatName  string

	// ConfigPath is where tempo changes are saved; empty means the default location
	ConfigPath string

	persist  func(func())
	message  string
	quitting bool
}

type UpdateMsg struct{}

func NewModel(manager *trainer.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme, cfg *config.Config) Model {
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Config:    cfg,
		persist:   debounce.New(500 * time.Millisecond),
	}
}

func ListenForUpdates(manager *trainer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Manager)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message = ""
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			m.Manager.Stop()
			return m, tea.Quit

		case "r":
			if m.Manager.Status().State == "recording" {
				m.Manager.Stop()
			} else {
				m.setError(m.Manager.Record())
			}

		case "p", " ":
			if m.Manager.Status().State == "stopped" {
				m.setError(m.Manager.Play())
			} else {
				m.Manager.Stop()
			}

		case "+", "=":
			m.changeTempo(tempoStep)

		case "-", "_":
			m.changeTempo(-tempoStep)

		default:
			if voice, ok := drumKeys[key]; ok {
				m.Manager.HandleVoice(voice, keyVelocity)
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)
	}

	return m, nil
}

func (m *Model) setError(err error) {
	if err != nil {
		m.message = err.Error()
	}
}

// changeTempo applies a tempo step and saves it as the new default once keys settle
func (m *Model) changeTempo(delta float64) {
	if err := m.Manager.SetTempo(m.Manager.Tempo() + delta); err != nil {
		m.message = "stop to change tempo"
		return
	}
	if m.Config == nil {
		return
	}
	m.Config.Practice.Tempo = m.Manager.Tempo()
	snapshot, path := *m.Config, m.ConfigPath
	m.persist(func() {
		save := snapshot.Save
		if path != "" {
			save = func() error { return snapshot.SaveFile(path) }
		}
		if err := save(); err != nil {
			debug.Log("tui", "save tempo: %v", err)
		}
	})
}

// marks records how each slot went on its most recent pass
func marks(entries []performance.Entry) map[int]widgets.Mark {
	out := make(map[int]widgets.Mark)
	for _, e := range entries {
		if len(e.MissedVoices) > 0 {
			out[e.Expected.Index] = widgets.Missed
		} else {
			out[e.Expected.Index] = widgets.Played
		}
	}
	return out
}

func (m Model) grid(st trainer.Status, entries []performance.Entry) widgets.PatternGrid {
	sym := m.Theme.Symbols
	cursor := -1
	if st.State == "recording" {
		cursor = st.Cursor
	}
	return widgets.PatternGrid{
		Seq:    m.Manager.Sequence(),
		Cursor: cursor,
		Marks:  marks(entries),
		Symbols: widgets.GridSymbols{
			Rest:   sym.Rest,
			Note:   sym.Note,
			Accent: sym.Accent,
			Played: sym.Played,
			Missed: sym.Missed,
			Cursor: sym.Cursor,
		},
		Colors: widgets.GridColors{
			Label:  m.Theme.RGB(theme.RoleFG),
			Note:   m.Theme.RGB(theme.RoleAccent),
			Played: m.Theme.RGB(theme.RoleHit),
			Missed: m.Theme.RGB(theme.RoleMiss),
			Cursor: m.Theme.RGB(theme.RoleCursor),
		},
	}
}

func (m Model) legend() string {
	sym := m.Theme.Symbols
	return strings.Join([]string{
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleHit), string(sym.Played), "played"),
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleMiss), string(sym.Missed), "missed"),
		widgets.RenderLegendItem(m.Theme.RGB(theme.RoleCursor), string(sym.Cursor), "waiting"),
	}, "")
}

func (m Model) feedbackView(entries []performance.Entry, bpm float64) string {
	if len(entries) == 0 {
		return ""
	}
	tolerance := beat.BeatMsec(bpm)
	if len(entries) > feedbackLines {
		entries = entries[len(entries)-feedbackLines:]
	}

	var lines []string
	for _, e := range entries {
		if len(e.MissedVoices) > 0 {
			style := lipgloss.NewStyle().Foreground(m.Theme.Miss())
			lines = append(lines, style.Render(fmt.Sprintf("slot %2d  missed %v", e.Expected.Index+1, e.MissedVoices)))
			continue
		}
		if e.TimingDifferenceMs == nil || e.Matched == nil {
			continue
		}
		diff := *e.TimingDifferenceMs
		style := lipgloss.NewStyle().Foreground(m.Theme.Timing(diff, tolerance))
		line := fmt.Sprintf("slot %2d  %-6s %+7.1fms  vel %+4d  %s",
			e.Expected.Index+1, e.Matched.Voice, diff, *e.VelocityDifference,
			widgets.RenderTimingMeter(diff, tolerance, meterWidth))
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Manager.Status()
	entries := m.Manager.FeedbackEntries()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	state := map[string]string{"stopped": "STOP", "playing": "PLAY", "recording": "REC"}[st.State]
	pads := 0
	if m.DeviceMgr != nil {
		pads = len(m.DeviceMgr.Controllers())
	}
	header := headerStyle.Render(fmt.Sprintf("go-groove  %-4s  %3.0fbpm  %s  pads:%d", state, st.BPM, m.BeatName, pads))

	stats := fmt.Sprintf("hits:%d  missed:%d  skill:%d", st.Hits, st.Missed, st.SkillLevel)
	if st.EffectiveTempo != nil {
		stats += fmt.Sprintf("  feel:%.1fbpm", *st.EffectiveTempo)
	}

	help := widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "r", Desc: "record / stop"},
			{Key: "p / space", Desc: "play / stop"},
			{Key: "+ / -", Desc: "tempo (while stopped)"},
			{Key: "z x c v", Desc: "kick snare hihat accent"},
			{Key: "q", Desc: "quit"},
		}},
	})

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.grid(st, entries).View())
	out.WriteString("\n")
	out.WriteString(m.legend())
	out.WriteString("\n\n")
	out.WriteString(stats)
	if fb := m.feedbackView(entries, st.BPM); fb != "" {
		out.WriteString("\n\n")
		out.WriteString(fb)
	}
	if m.message != "" {
		out.WriteString("\n\n")
		out.WriteString(warnStyle.Render(m.message))
	}
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(help))

	return out.String()
}
