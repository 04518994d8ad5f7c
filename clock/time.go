package clock

import "time"

// TimeSource supplies the current time in milliseconds
type TimeSource interface {
	NowMsec() float64
}

// WallTime reads the monotonic clock relative to its creation
type WallTime struct {
	origin time.Time
}

// NewWallTime creates a wall time source
func NewWallTime() *WallTime {
	return &WallTime{origin: time.Now()}
}

func (w *WallTime) NowMsec() float64 {
	return float64(time.Since(w.origin)) / float64(time.Millisecond)
}

// SimulatedTime only moves when told to
type SimulatedTime struct {
	now float64
}

func (s *SimulatedTime) NowMsec() float64 {
	return s.now
}

// Set jumps to an absolute time
func (s *SimulatedTime) Set(msec float64) {
	s.now = msec
}

// Advance moves time forward
func (s *SimulatedTime) Advance(msec float64) {
	s.now += msec
}
