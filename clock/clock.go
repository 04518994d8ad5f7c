package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPPQN  = 24
	DefaultTempo = 120.0
	MinTempo     = 20.0
	MaxTempo     = 300.0

	// tolerance when comparing float millisecond times
	epsilon = 1e-6
)

var (
	ErrRealTimerActive = errors.New("clock: real timer is active")
	ErrNotSimulated    = errors.New("clock: not in simulated mode")
	ErrRunning         = errors.New("clock: running")
	ErrTimeReversal    = errors.New("clock: cannot move simulated time backwards")
)

// State is the transport state
type State int

const (
	Stopped State = iota
	Playing
	Recording
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Recording:
		return "recording"
	default:
		return "stopped"
	}
}

// Pulse is one tick of the clock
type Pulse struct {
	ElapsedMsec float64 `json:"elapsedMsec"`
	Num         int64   `json:"num"`
}

// EventKind distinguishes clock events
type EventKind int

const (
	PulseEvent EventKind = iota
	StateEvent
	// ResetEvent reports that elapsed time and pulse numbering went back to zero
	ResetEvent
)

// Event is delivered to listeners; Pulse is set for PulseEvent, State and BPM for StateEvent and ResetEvent
type Event struct {
	Kind  EventKind
	Pulse Pulse
	State State
	BPM   float64
}

// Listener receives clock events synchronously
type Listener func(Event)

// Snapshot is a read-only view of the clock
type Snapshot struct {
	BPM           float64 `json:"bpm"`
	PPQN          int     `json:"ppqn"`
	Running       bool    `json:"running"`
	Playing       bool    `json:"playing"`
	Recording     bool    `json:"recording"`
	Simulated     bool    `json:"simulated"`
	ElapsedMsec   float64 `json:"elapsedMsec"`
	NextPulseNum  int64   `json:"nextPulseNum"`
	StartTimeMsec float64 `json:"startTimeMsec"`
}

// Clock generates pulses and holds the transport state.
// It is not safe for concurrent use; callers serialize access with the
// same lock passed to WithLocker, which the real-time loop also takes.
type Clock struct {
	bpm   float64
	ppqn  int
	state State

	src         TimeSource
	sim         *SimulatedTime
	startMsec   float64
	lastElapsed float64
	nextPulse   int64

	locker    sync.Locker
	cancel    context.CancelFunc
	listeners []Listener
	log       *zap.Logger
}

// Option configures a Clock
type Option func(*Clock)

// WithTempo sets the initial tempo
func WithTempo(bpm float64) Option {
	return func(c *Clock) { c.bpm = clampTempo(bpm) }
}

// WithPPQN sets pulses per quarter note
func WithPPQN(ppqn int) Option {
	return func(c *Clock) {
		if ppqn > 0 {
			c.ppqn = ppqn
		}
	}
}

// WithTimeSource replaces the wall clock
func WithTimeSource(src TimeSource) Option {
	return func(c *Clock) {
		c.src = src
		if sim, ok := src.(*SimulatedTime); ok {
			c.sim = sim
		}
	}
}

// WithLocker sets the lock taken by the real-time loop
func WithLocker(l sync.Locker) Option {
	return func(c *Clock) { c.locker = l }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) { c.log = l }
}

// New creates a stopped clock
func New(opts ...Option) *Clock {
	c := &Clock{
		bpm:  DefaultTempo,
		ppqn: DefaultPPQN,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = NewWallTime()
	}
	if c.locker == nil {
		c.locker = &sync.Mutex{}
	}
	c.log = c.log.Named("clock")
	return c
}

func clampTempo(bpm float64) float64 {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}

// Subscribe registers a listener. Listeners run in registration order.
func (c *Clock) Subscribe(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Clock) notify(ev Event) {
	for _, l := range c.listeners {
		l(ev)
	}
}

// Play starts playback from zero
func (c *Clock) Play() {
	c.start(Playing)
}

// Record starts recording from zero
func (c *Clock) Record() {
	c.start(Recording)
}

func (c *Clock) start(s State) {
	c.stopTimer()
	c.state = s
	c.startMsec = c.src.NowMsec()
	c.lastElapsed = 0
	c.nextPulse = 0
	c.log.Debug("start", zap.Stringer("state", s), zap.Float64("bpm", c.bpm))
	c.notify(Event{Kind: StateEvent, State: s, BPM: c.bpm})
	c.poll()
	if c.sim == nil && c.state == s {
		c.startTimer()
	}
}

// Stop halts the clock. Stopping a stopped clock does nothing.
func (c *Clock) Stop() {
	if c.state == Stopped {
		return
	}
	c.lastElapsed = c.src.NowMsec() - c.startMsec
	c.state = Stopped
	c.stopTimer()
	c.log.Debug("stop", zap.Float64("elapsed", c.lastElapsed))
	c.notify(Event{Kind: StateEvent, State: Stopped, BPM: c.bpm})
}

// Reset re-zeroes elapsed time without changing the run state
func (c *Clock) Reset() {
	c.startMsec = c.src.NowMsec()
	c.lastElapsed = 0
	c.nextPulse = 0
	c.log.Debug("reset", zap.Stringer("state", c.state))
	c.notify(Event{Kind: ResetEvent, State: c.state, BPM: c.bpm})
	c.poll()
}

// SetTempo changes the tempo, clamped to MinTempo..MaxTempo. The clock must be stopped.
func (c *Clock) SetTempo(bpm float64) error {
	if c.state != Stopped {
		return ErrRunning
	}
	c.bpm = clampTempo(bpm)
	return nil
}

func (c *Clock) BPM() float64      { return c.bpm }
func (c *Clock) PPQN() int         { return c.ppqn }
func (c *Clock) State() State      { return c.state }
func (c *Clock) Running() bool     { return c.state != Stopped }
func (c *Clock) IsPlaying() bool   { return c.state == Playing }
func (c *Clock) IsRecording() bool { return c.state == Recording }
func (c *Clock) Simulated() bool   { return c.sim != nil }

// PulseIntervalMsec is the time between pulses
func (c *Clock) PulseIntervalMsec() float64 {
	return 60000 / (c.bpm * float64(c.ppqn))
}

// Elapsed returns milliseconds since the last start
func (c *Clock) Elapsed() float64 {
	if c.state == Stopped {
		return c.lastElapsed
	}
	return c.src.NowMsec() - c.startMsec
}

// Sync emits every pulse due by now and returns the elapsed time it used.
// Handle input at the returned time so pulses and notes stay in time order.
func (c *Clock) Sync() float64 {
	return c.poll()
}

// poll fires every due pulse in order. Returns the elapsed time it checked against.
func (c *Clock) poll() float64 {
	if c.state == Stopped {
		return c.lastElapsed
	}
	elapsed := c.src.NowMsec() - c.startMsec
	interval := c.PulseIntervalMsec()
	for c.state != Stopped {
		at := float64(c.nextPulse) * interval
		if at > elapsed+epsilon {
			break
		}
		p := Pulse{ElapsedMsec: at, Num: c.nextPulse}
		c.nextPulse++
		c.notify(Event{Kind: PulseEvent, Pulse: p})
	}
	return elapsed
}

// StartSimulatedClock switches to simulated time starting at zero.
// Fails while the real-time loop is running.
func (c *Clock) StartSimulatedClock() error {
	if c.sim == nil && c.state != Stopped {
		return ErrRealTimerActive
	}
	c.sim = &SimulatedTime{}
	c.src = c.sim
	c.startMsec = 0
	c.lastElapsed = 0
	c.nextPulse = 0
	return nil
}

// UseWallTime switches back to real time. The clock must be stopped.
func (c *Clock) UseWallTime() error {
	if c.state != Stopped {
		return ErrRunning
	}
	c.sim = nil
	c.src = NewWallTime()
	return nil
}

func (c *Clock) checkSimulated() error {
	if c.sim != nil {
		return nil
	}
	if c.state != Stopped {
		return ErrRealTimerActive
	}
	return ErrNotSimulated
}

// AdvanceBy moves simulated time forward and emits due pulses
func (c *Clock) AdvanceBy(msec float64) error {
	if err := c.checkSimulated(); err != nil {
		return err
	}
	if msec < 0 {
		return fmt.Errorf("%w: advance by %v", ErrTimeReversal, msec)
	}
	c.sim.Advance(msec)
	c.poll()
	return nil
}

// AdvanceTo moves simulated time to elapsed msec since start and emits due pulses
func (c *Clock) AdvanceTo(elapsed float64) error {
	if err := c.checkSimulated(); err != nil {
		return err
	}
	target := c.startMsec + elapsed
	if target < c.sim.NowMsec() {
		return fmt.Errorf("%w: %v is before %v", ErrTimeReversal, elapsed, c.sim.NowMsec()-c.startMsec)
	}
	c.sim.Set(target)
	c.poll()
	return nil
}

// Snapshot returns the current clock state
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		BPM:           c.bpm,
		PPQN:          c.ppqn,
		Running:       c.state != Stopped,
		Playing:       c.state == Playing,
		Recording:     c.state == Recording,
		Simulated:     c.sim != nil,
		ElapsedMsec:   c.Elapsed(),
		NextPulseNum:  c.nextPulse,
		StartTimeMsec: c.startMsec,
	}
}

func (c *Clock) startTimer() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	period := time.Duration(c.PulseIntervalMsec() * float64(time.Millisecond))
	if period < time.Millisecond {
		period = time.Millisecond
	}
	go c.run(ctx, period)
}

// stopTimer cancels the loop without waiting, since the caller may hold the lock the loop needs
func (c *Clock) stopTimer() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Clock) run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.locker.Lock()
			if ctx.Err() == nil {
				c.poll()
			}
			c.locker.Unlock()
		}
	}
}
