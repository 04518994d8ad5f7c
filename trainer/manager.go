package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-groove/beat"
	"go-groove/clock"
	"go-groove/debug"
	"go-groove/eventlog"
	"go-groove/midi"
	"go-groove/performance"

	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// ErrNoBeat is returned when transport starts before a beat is loaded
var ErrNoBeat = errors.New("trainer: no beat loaded")

// Manager owns one practice session: the clock, the recorder scoring
// against the loaded beat, the event log and the MIDI plumbing around them.
// All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	clock    *clock.Clock
	recorder *performance.Recorder
	events   *eventlog.Log
	player   *player

	kit     midi.Kit
	out     midi.NotePlayer
	channel uint8
	echo    bool

	csvPath  string
	autosave func(func())

	log *zap.Logger

	// Notify TUI of updates
	UpdateChan chan struct{}
}

type options struct {
	log       *zap.Logger
	kit       midi.Kit
	out       midi.NotePlayer
	channel   uint8
	echo      bool
	tempo     float64
	ppqn      int
	window    int
	simulated bool
	csvPath   string
	delay     time.Duration
}

// Option configures a Manager
type Option func(*options)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithKit sets the note map for incoming hits
func WithKit(k midi.Kit) Option {
	return func(o *options) { o.kit = k }
}

// WithOutput plays the pattern (and echoed hits) on channel
func WithOutput(p midi.NotePlayer, channel uint8) Option {
	return func(o *options) {
		o.out = p
		o.channel = channel
	}
}

// WithEcho forwards live hits to the output
func WithEcho(on bool) Option {
	return func(o *options) { o.echo = on }
}

// WithTempo sets the starting tempo
func WithTempo(bpm float64) Option {
	return func(o *options) { o.tempo = bpm }
}

// WithPPQN sets the clock resolution
func WithPPQN(ppqn int) Option {
	return func(o *options) { o.ppqn = ppqn }
}

// WithTempoWindow sets how many timed hits feed the effective tempo
func WithTempoWindow(n int) Option {
	return func(o *options) { o.window = n }
}

// WithSimulatedClock starts the clock on simulated time
func WithSimulatedClock() Option {
	return func(o *options) { o.simulated = true }
}

// WithAutosave writes the event log to path once input has been quiet for delay
func WithAutosave(path string, delay time.Duration) Option {
	return func(o *options) {
		o.csvPath = path
		o.delay = delay
	}
}

// NewManager creates a stopped session with no beat loaded
func NewManager(opts ...Option) *Manager {
	o := options{
		log:    zap.NewNop(),
		kit:    midi.GetKit(midi.DefaultKit),
		tempo:  clock.DefaultTempo,
		ppqn:   clock.DefaultPPQN,
		window: performance.DefaultTempoWindow,
		delay:  time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		kit:        o.kit,
		out:        o.out,
		channel:    o.channel,
		echo:       o.echo,
		csvPath:    o.csvPath,
		log:        o.log.Named("trainer"),
		UpdateChan: make(chan struct{}, 1),
	}
	m.events = eventlog.New(o.log)
	m.recorder = performance.NewRecorder(m.events,
		performance.WithLogger(o.log),
		performance.WithTempoWindow(o.window),
	)
	m.clock = clock.New(
		clock.WithTempo(o.tempo),
		clock.WithPPQN(o.ppqn),
		clock.WithLocker(&m.mu),
		clock.WithLogger(o.log),
	)
	if o.simulated {
		_ = m.clock.StartSimulatedClock()
	}
	if m.out != nil {
		m.player = newPlayer(m.out, m.channel, m.log)
	}
	if m.csvPath != "" {
		m.autosave = debounce.New(o.delay)
	}

	// order matters: a pulse is logged before the recorder derives misses from it
	m.clock.Subscribe(m.onClockEvent)
	m.clock.Subscribe(m.recorder.HandleClockEvent)
	m.clock.Subscribe(func(clock.Event) { m.notifyUpdate() })
	return m
}

func (m *Manager) onClockEvent(ev clock.Event) {
	if ev.Kind != clock.PulseEvent {
		return
	}
	debug.LogEvery(m.clock.PPQN()*beat.BeatsPerBar, "clock", "%s pulse %d at %.1fms",
		m.clock.State(), ev.Pulse.Num, ev.Pulse.ElapsedMsec)
	switch m.clock.State() {
	case clock.Recording:
		m.events.Append(eventlog.TimingRecord{Header: eventlog.Header{
			TimestampMsec: ev.Pulse.ElapsedMsec,
			NoteIndex:     m.recorder.Cursor(),
		}})
	case clock.Playing:
		if m.player != nil {
			m.player.pulse(m.recorder.Sequence(), m.clock.BPM(), m.clock.PulseIntervalMsec(), ev.Pulse)
		}
	}
}

// notifyUpdate signals the UI without blocking
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// SetBeat loads the expected sequence. Fails while recording.
func (m *Manager) SetBeat(seq beat.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recorder.SetBeat(seq); err != nil {
		return err
	}
	m.log.Info("beat loaded", zap.Int("slots", len(seq)), zap.Int("bars", seq.Bars()))
	m.notifyUpdate()
	return nil
}

// SetSource decodes bar strings and loads them
func (m *Manager) SetSource(src beat.Source) error {
	return m.SetBeat(beat.Decode(src))
}

// Sequence returns the loaded beat
func (m *Manager) Sequence() beat.Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorder.Sequence()
}

// Play starts pattern playback
func (m *Manager) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recorder.Sequence()) == 0 {
		return ErrNoBeat
	}
	m.clock.Play()
	return nil
}

// Record starts a fresh take. The event log is cleared.
func (m *Manager) Record() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recorder.Sequence()) == 0 {
		return ErrNoBeat
	}
	m.events.Clear()
	m.clock.Record()
	return nil
}

// Stop halts the transport and saves the log right away
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasRecording := m.clock.IsRecording()
	m.clock.Stop()
	if wasRecording && m.csvPath != "" {
		m.saveLocked()
	}
}

// SetTempo changes the tempo. Fails while running.
func (m *Manager) SetTempo(bpm float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.clock.SetTempo(bpm); err != nil {
		return err
	}
	m.notifyUpdate()
	return nil
}

// Tempo returns the clock tempo
func (m *Manager) Tempo() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.BPM()
}

// HandleNote takes a raw note-on from a pad. Due pulses fire first so the
// note is logged and scored at the time the clock last observed.
func (m *Manager) HandleNote(note, velocity uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := m.clock.Sync()
	m.handleNote(note, velocity, at)
	m.notifyUpdate()
}

// HandleVoice plays voice through the kit's note for it, as keyboard drums do
func (m *Manager) HandleVoice(voice beat.Voice, velocity uint8) {
	note, ok := m.kit.NoteFor(voice)
	if !ok {
		return
	}
	m.HandleNote(note, velocity)
}

func (m *Manager) handleNote(note, velocity uint8, at float64) {
	if velocity == 0 {
		return
	}
	voice, mapped := m.kit.VoiceFor(note)
	if m.echo && m.out != nil {
		m.echoHit(note, velocity, voice, mapped)
	}
	if !m.clock.IsRecording() {
		return
	}

	m.events.Append(eventlog.MIDIRecord{
		Header:   eventlog.Header{TimestampMsec: at, NoteIndex: m.recorder.Cursor()},
		Note:     note,
		Velocity: velocity,
	})
	if !mapped {
		m.log.Debug("unmapped note", zap.Uint8("note", note), zap.String("kit", m.kit.Name))
		return
	}
	m.recorder.HandleNote(voice, velocity, at)
	m.scheduleSave()
}

// rawEchoer is an output that can forward notes the kit has no voice for
type rawEchoer interface {
	Echo(note, velocity, channel uint8) error
}

var _ rawEchoer = (*midi.Output)(nil)

func (m *Manager) echoHit(note, velocity uint8, voice beat.Voice, mapped bool) {
	var err error
	if mapped {
		err = m.out.PlayNote(voice, velocity, m.channel, 0)
	} else if raw, ok := m.out.(rawEchoer); ok {
		err = raw.Echo(note, velocity, m.channel)
	}
	if err != nil {
		m.log.Warn("echo", zap.Uint8("note", note), zap.Error(err))
	}
}

func (m *Manager) scheduleSave() {
	if m.autosave == nil {
		return
	}
	m.autosave(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.saveLocked()
	})
}

func (m *Manager) saveLocked() {
	if err := m.events.SaveToCSV(m.csvPath); err != nil {
		m.log.Error("autosave", zap.String("path", m.csvPath), zap.Error(err))
	}
}

// SaveCSV writes the event log to path
func (m *Manager) SaveCSV(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events.SaveToCSV(path)
}

// EventsCSV returns the event log as CSV text
func (m *Manager) EventsCSV() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events.ToCSV()
}

// LoadEvents replaces the event log, typically before Replay
func (m *Manager) LoadEvents(l *eventlog.Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events.Clear()
	for _, r := range l.Records() {
		m.events.Append(r)
	}
}

// StartSimulatedClock switches to simulated time at zero
func (m *Manager) StartSimulatedClock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.StartSimulatedClock()
}

// AdvanceBy moves simulated time forward
func (m *Manager) AdvanceBy(msec float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.AdvanceBy(msec)
}

// AdvanceTo moves simulated time to elapsed msec since the last start
func (m *Manager) AdvanceTo(elapsed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.AdvanceTo(elapsed)
}

// Replay re-drives a fresh take from the logged inputs on simulated time.
// The log is rebuilt in the process.
func (m *Manager) Replay() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	simulated, echo := m.clock.Simulated(), m.echo
	m.echo = false
	err := m.events.Replay(replayEngine{m})
	m.clock.Stop()
	m.echo = echo
	if !simulated {
		_ = m.clock.UseWallTime()
	}
	return err
}

// Capture returns the notes captured in the current or last take
func (m *Manager) Capture() performance.Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorder.Capture()
}

// FeedbackEntries returns the scored entries of the current or last take
func (m *Manager) FeedbackEntries() []performance.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorder.Feedback().Entries()
}

// ListenTo feeds a controller's hits into the session until ctx is done
// or the controller closes.
func (m *Manager) ListenTo(ctx context.Context, ctrl midi.Controller) {
	go func() {
		events := ctrl.NoteEvents()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				m.HandleNote(ev.Note, ev.Velocity)
			}
		}
	}()
}

// Attach listens to every pad the device manager connects
func (m *Manager) Attach(ctx context.Context, dm *midi.DeviceManager) {
	go func() {
		for ev := range dm.Events() {
			switch ev.Type {
			case midi.DeviceConnected:
				m.log.Info("pad connected", zap.String("id", ev.ID))
				m.ListenTo(ctx, ev.Controller)
			case midi.DeviceDisconnected:
				m.log.Info("pad disconnected", zap.String("id", ev.ID))
			}
			m.notifyUpdate()
		}
	}()
}
