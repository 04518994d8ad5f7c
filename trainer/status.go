package trainer

// Status is a point-in-time view of the session
type Status struct {
	State          string   `json:"state"`
	BPM            float64  `json:"bpm"`
	PPQN           int      `json:"ppqn"`
	Simulated      bool     `json:"simulated"`
	ElapsedMsec    float64  `json:"elapsedMsec"`
	Kit            string   `json:"kit"`
	Slots          int      `json:"slots"`
	Bars           int      `json:"bars"`
	Cursor         int      `json:"cursor"`
	Hits           int      `json:"hits"`
	Missed         int      `json:"missed"`
	Records        int      `json:"records"`
	EffectiveTempo *float64 `json:"effectiveTempo,omitempty"`
	SkillLevel     int      `json:"skillLevel"`
}

// Status returns the current session state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.clock.Snapshot()
	seq := m.recorder.Sequence()
	fb := m.recorder.Feedback()
	return Status{
		State:          m.clock.State().String(),
		BPM:            snap.BPM,
		PPQN:           snap.PPQN,
		Simulated:      snap.Simulated,
		ElapsedMsec:    snap.ElapsedMsec,
		Kit:            m.kit.Name,
		Slots:          len(seq),
		Bars:           seq.Bars(),
		Cursor:         m.recorder.Cursor(),
		Hits:           len(m.recorder.Capture().Notes),
		Missed:         fb.Missed(),
		Records:        m.events.Len(),
		EffectiveTempo: m.recorder.EffectiveTempo(),
		SkillLevel:     fb.WindowSkillLevel(),
	}
}
