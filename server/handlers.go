package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go-groove/beat"
	"go-groove/eventlog"
	"go-groove/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

type tempoRequest struct {
	BPM float64 `json:"bpm"`
}

func (s *Server) handleTempo(w http.ResponseWriter, r *http.Request) {
	var req tempoRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.mgr.SetTempo(req.BPM); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

type beatResponse struct {
	Source beat.Source   `json:"source"`
	Slots  beat.Sequence `json:"slots"`
	Timed  string        `json:"timed"`
}

func (s *Server) handleGetBeat(w http.ResponseWriter, r *http.Request) {
	seq := s.mgr.Sequence()
	s.writeJSON(w, http.StatusOK, beatResponse{
		Source: beat.Encode(seq),
		Slots:  seq,
		Timed:  beat.FormatTimedNotes(seq),
	})
}

// setBeatRequest names a stored beat or carries a pattern inline
type setBeatRequest struct {
	ID      string       `json:"id,omitempty"`
	Name    string       `json:"name,omitempty"`
	Pattern *beat.Source `json:"pattern,omitempty"`
}

func (s *Server) handleSetBeat(w http.ResponseWriter, r *http.Request) {
	var req setBeatRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var src beat.Source
	switch {
	case req.Pattern != nil:
		src = *req.Pattern
	case req.ID != "" || req.Name != "":
		var b *store.Beat
		var err error
		if req.ID != "" {
			b, err = s.store.LoadBeatByID(r.Context(), req.ID)
		} else {
			b, err = s.store.LoadBeatByName(r.Context(), req.Name)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		src = b.Pattern
	default:
		s.writeError(w, fmt.Errorf("%w: need id, name or pattern", errBadRequest))
		return
	}

	if err := s.mgr.SetSource(src); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

func (s *Server) handleListBeats(w http.ResponseWriter, r *http.Request) {
	beats, err := s.store.ListBeats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if beats == nil {
		beats = []store.Beat{}
	}
	s.writeJSON(w, http.StatusOK, beats)
}

func (s *Server) handleSaveBeat(w http.ResponseWriter, r *http.Request) {
	var b store.Beat
	if err := decode(r, &b); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.SaveBeat(r.Context(), &b); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("beat saved", zap.String("id", b.ID), zap.String("name", b.Name))
	s.writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleLoadBeat(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.LoadBeatByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBeat(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBeat(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	var err error
	switch mux.Vars(r)["action"] {
	case "play":
		err = s.mgr.Play()
	case "record":
		err = s.mgr.Record()
	case "stop":
		s.mgr.Stop()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

// noteRequest is a hit given either as a raw MIDI note or a voice name
type noteRequest struct {
	Note     *uint8 `json:"note,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Velocity uint8  `json:"velocity"`
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	switch {
	case req.Note != nil:
		s.mgr.HandleNote(*req.Note, req.Velocity)
	case req.Voice != "":
		v, ok := beat.ParseVoice(req.Voice)
		if !ok {
			s.writeError(w, fmt.Errorf("%w: unknown voice %q", errBadRequest, req.Voice))
			return
		}
		s.mgr.HandleVoice(v, req.Velocity)
	default:
		s.writeError(w, fmt.Errorf("%w: need note or voice", errBadRequest))
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.mgr.Status())
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.StartSimulatedClock(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

// advanceRequest moves simulated time by a delta or to an elapsed time
type advanceRequest struct {
	By *float64 `json:"by,omitempty"`
	To *float64 `json:"to,omitempty"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var err error
	switch {
	case req.By != nil:
		err = s.mgr.AdvanceBy(*req.By)
	case req.To != nil:
		err = s.mgr.AdvanceTo(*req.To)
	default:
		err = fmt.Errorf("%w: need by or to", errBadRequest)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.FeedbackEntries())
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.Capture())
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	_, _ = io.WriteString(w, s.mgr.EventsCSV())
}

func (s *Server) handleLoadEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	l, err := eventlog.LoadFromCSVText(string(body), s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mgr.LoadEvents(l)
	s.writeJSON(w, http.StatusOK, s.mgr.Status())
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Replay(); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleGetEvents(w, r)
}

type savePerformanceRequest struct {
	BeatID string `json:"beatId"`
	UserID string `json:"userId,omitempty"`
}

func (s *Server) handleSavePerformance(w http.ResponseWriter, r *http.Request) {
	var req savePerformanceRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.UserID == "" {
		req.UserID = s.userID
	}
	capture := s.mgr.Capture()
	p := &store.Performance{
		BeatID:   req.BeatID,
		UserID:   req.UserID,
		BPM:      capture.BPM,
		Capture:  capture,
		Feedback: s.mgr.FeedbackEntries(),
	}
	if err := s.store.SavePerformance(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPerformances(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListPerformances(r.Context(), r.URL.Query().Get("beatId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []store.Performance{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleDeletePerformances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		userID = s.userID
	}
	n, err := s.store.DeletePerformances(r.Context(), q.Get("beatId"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}
