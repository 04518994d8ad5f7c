package trainer

// replayEngine drives the manager from logged records. The manager lock is
// already held by Replay.
type replayEngine struct {
	m *Manager
}

// ResetForReplay starts a fresh take on simulated time
func (e replayEngine) ResetForReplay() error {
	e.m.clock.Stop()
	if err := e.m.clock.StartSimulatedClock(); err != nil {
		return err
	}
	e.m.clock.Record()
	return nil
}

func (e replayEngine) AdvanceTo(elapsedMsec float64) error {
	return e.m.clock.AdvanceTo(elapsedMsec)
}

// InjectNote moves time to the hit and handles it as if it came from a pad
func (e replayEngine) InjectNote(note, velocity uint8, atMsec float64) error {
	if err := e.m.clock.AdvanceTo(atMsec); err != nil {
		return err
	}
	e.m.handleNote(note, velocity, atMsec)
	return nil
}
