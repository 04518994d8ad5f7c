package performance

import (
	"errors"
	"math"

	"go-groove/beat"
	"go-groove/clock"
	"go-groove/eventlog"

	"go.uber.org/zap"
)

var (
	ErrRecording = errors.New("performance: cannot change the beat while recording")
	ErrNoSlot    = errors.New("performance: no slot at cursor")
)

const epsilon = 1e-6

// Recorder follows a recording against the expected sequence.
// It captures hits, scores them and detects misses as the clock moves past each slot.
// Not safe for concurrent use.
type Recorder struct {
	seq    beat.Sequence
	bpm    float64
	window int

	recording bool
	cursor    int
	loop      int64
	struck    map[beat.Voice]bool
	ahead     map[beat.Voice]bool

	capture  Capture
	feedback *Feedback
	events   *eventlog.Log
	log      *zap.Logger
}

// Option configures a Recorder
type Option func(*Recorder)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithTempoWindow sets how many timed entries feed the effective tempo
func WithTempoWindow(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.window = n
		}
	}
}

// NewRecorder creates an idle recorder writing derived records to events
func NewRecorder(events *eventlog.Log, opts ...Option) *Recorder {
	r := &Recorder{
		bpm:      clock.DefaultTempo,
		window:   DefaultTempoWindow,
		struck:   map[beat.Voice]bool{},
		ahead:    map[beat.Voice]bool{},
		feedback: NewFeedback(),
		events:   events,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("recorder")
	return r
}

// SetBeat replaces the expected sequence
func (r *Recorder) SetBeat(seq beat.Sequence) error {
	if r.recording {
		return ErrRecording
	}
	r.seq = seq
	r.resetCursor()
	return nil
}

// Sequence returns the expected sequence
func (r *Recorder) Sequence() beat.Sequence {
	return r.seq
}

// Start begins a fresh recording at bpm, discarding the previous capture and feedback
func (r *Recorder) Start(bpm float64) {
	r.bpm = bpm
	r.recording = true
	r.resetCursor()
	r.capture = Capture{BPM: bpm}
	r.feedback.Reset()
	r.log.Debug("start", zap.Float64("bpm", bpm), zap.Int("slots", len(r.seq)))
}

// Stop ends recording and returns the cursor to the loop start. The capture is kept.
func (r *Recorder) Stop() {
	if !r.recording {
		return
	}
	r.recording = false
	r.resetCursor()
	r.log.Debug("stop", zap.Int("captured", len(r.capture.Notes)), zap.Int("feedback", r.feedback.Len()))
}

func (r *Recorder) Recording() bool { return r.recording }
func (r *Recorder) Cursor() int     { return r.cursor }

// Capture returns a copy of the captured notes
func (r *Recorder) Capture() Capture {
	c := Capture{BPM: r.capture.BPM, Notes: make([]CapturedNote, len(r.capture.Notes))}
	copy(c.Notes, r.capture.Notes)
	return c
}

// Feedback returns the live feedback
func (r *Recorder) Feedback() *Feedback {
	return r.feedback
}

// HandleClockEvent follows the clock. Subscribe it to the clock that drives the session.
func (r *Recorder) HandleClockEvent(ev clock.Event) {
	switch ev.Kind {
	case clock.StateEvent:
		if ev.State == clock.Recording {
			r.Start(ev.BPM)
		} else {
			r.Stop()
		}
	case clock.ResetEvent:
		// the take goes on from the top of the loop; capture and feedback are kept
		if r.recording {
			r.resetCursor()
		}
	case clock.PulseEvent:
		r.handlePulse(ev.Pulse)
	}
}

func (r *Recorder) resetCursor() {
	r.cursor = 0
	r.loop = 0
	r.struck = map[beat.Voice]bool{}
	r.ahead = map[beat.Voice]bool{}
}

func (r *Recorder) slot(i int) beat.NoteSlot {
	if i < 0 || i >= len(r.seq) {
		panic(ErrNoSlot)
	}
	return r.seq[i]
}

func (r *Recorder) loopMsec() float64 {
	return r.seq.LoopLengthMsec(r.bpm)
}

// nextSlotMsec is when the slot after the cursor starts, counted from the recording start
func (r *Recorder) nextSlotMsec() float64 {
	next, loop := r.cursor+1, r.loop
	if next == len(r.seq) {
		next, loop = 0, loop+1
	}
	return float64(loop)*r.loopMsec() + beat.IdealTimeMsec(r.slot(next), r.bpm)
}

func (r *Recorder) advance() {
	r.cursor++
	if r.cursor == len(r.seq) {
		r.cursor = 0
		r.loop++
	}
	r.struck, r.ahead = r.ahead, map[beat.Voice]bool{}
}

func (r *Recorder) handlePulse(p clock.Pulse) {
	if !r.recording || len(r.seq) == 0 {
		return
	}
	for p.ElapsedMsec+epsilon >= r.nextSlotMsec() {
		r.leaveSlot(p.ElapsedMsec)
		r.advance()
	}
}

// leaveSlot reports the voices of the cursor slot that were never struck
func (r *Recorder) leaveSlot(at float64) {
	slot := r.slot(r.cursor)
	var missed []beat.Voice
	for _, v := range slot.StruckVoices() {
		if !r.struck[v] {
			missed = append(missed, v)
		}
	}
	if len(missed) == 0 {
		return
	}
	r.feedback.Add(Entry{Index: r.cursor, Expected: slot, MissedVoices: missed, AtMsec: at})
	for _, v := range missed {
		r.events.Append(eventlog.MissedRecord{
			Header: eventlog.Header{TimestampMsec: at, NoteIndex: r.cursor},
			Voice:  v,
		})
	}
}

// HandleNote captures and scores a hit at elapsedMsec since the recording started
func (r *Recorder) HandleNote(voice beat.Voice, velocity uint8, elapsedMsec float64) {
	if !r.recording {
		return
	}
	if len(r.seq) == 0 {
		r.log.Debug("hit with no beat loaded", zap.String("voice", string(voice)))
		return
	}

	loop := r.loopMsec()
	pos := Quantize(elapsedMsec, r.bpm, loop)
	note := CapturedNote{
		Index:           r.cursor,
		Voice:           voice,
		Bar:             pos.Bar,
		Beat:            pos.Beat,
		Division:        pos.Division,
		SubDivision:     pos.SubDivision,
		NumSubDivisions: pos.NumSubDivisions,
		Velocity:        velocity,
		Microtiming:     pos.Microtiming,
		ElapsedMsec:     elapsedMsec,
	}
	r.capture.Notes = append(r.capture.Notes, note)

	header := eventlog.Header{TimestampMsec: elapsedMsec, NoteIndex: r.cursor}
	entry := MatchNoteToBeat(r.seq, r.cursor, voice, math.Mod(elapsedMsec, loop), velocity, r.bpm)
	if entry == nil {
		r.events.Append(eventlog.ExtraRecord{Header: header, Voice: voice, Velocity: velocity})
		r.struck[voice] = true
	} else {
		entry.Matched = &note
		entry.AtMsec = elapsedMsec
		r.feedback.Add(*entry)
		r.feedback.UpdateSkill(r.bpm, r.window, elapsedMsec)
		r.events.Append(eventlog.PlayedRecord{
			Header:     header,
			Voice:      voice,
			TimingMsec: *entry.TimingDifferenceMs,
			Velocity:   velocity,
		})
		if entry.Expected.Index == r.slot(r.cursor).Index {
			r.struck[voice] = true
		} else {
			r.ahead[voice] = true
		}
	}

	if r.chordComplete() {
		r.advance()
	}
}

func (r *Recorder) chordComplete() bool {
	required := r.slot(r.cursor).StruckVoices()
	if len(required) == 0 {
		return false
	}
	for _, v := range required {
		if !r.struck[v] {
			return false
		}
	}
	return true
}

// EffectiveTempo is the tempo implied by recent timing, nil until enough hits
func (r *Recorder) EffectiveTempo() *float64 {
	return r.feedback.EffectiveTempo(r.bpm, r.window)
}
