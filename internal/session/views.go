package session

import (
	"asamanthinks/internal/domain"
)

// StateView is a consistent snapshot of the session's classification state.
type StateView struct {
	Current *domain.StateRecord `json:"current"`
	Chaos   bool                `json:"chaos_detected"`
	Outcome Outcome             `json:"outcome"`
	Loading bool                `json:"loading"`
}

// Insights summarises session activity.
type Insights struct {
	CheckIns       int               `json:"check_ins"`
	JournalEntries int               `json:"journal_entries"`
	MusicTracks    int               `json:"music_tracks"`
	RecentStates   []domain.Category `json:"recent_states"`
}

func (s *Session) CurrentState() *domain.StateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := s.current.Clone()
	return &cp
}

func (s *Session) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := StateView{Chaos: s.chaos, Outcome: s.outcome, Loading: s.inFlight > 0}
	if s.current != nil {
		cp := s.current.Clone()
		v.Current = &cp
	}
	return v
}

// History returns every classified record in call order.
func (s *Session) History() []domain.StateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StateRecord, len(s.history))
	for i, r := range s.history {
		out[i] = r.Clone()
	}
	return out
}

// Journal returns entries newest first. limit <= 0 returns all of them.
func (s *Session) Journal(limit int) []domain.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.journal)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.JournalEntry, 0, n)
	for i := len(s.journal) - 1; i >= 0 && len(out) < n; i-- {
		e := s.journal[i]
		if e.State != nil {
			cp := e.State.Clone()
			e.State = &cp
		}
		out = append(out, e)
	}
	return out
}

func (s *Session) MusicTrack() *domain.MusicTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.music == nil {
		return nil
	}
	cp := *s.music
	return &cp
}

func (s *Session) ChaosDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chaos
}

func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Loading reports whether any pipeline is running.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

func (s *Session) Insights() Insights {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := Insights{
		CheckIns:       len(s.history),
		JournalEntries: len(s.journal),
		RecentStates:   []domain.Category{},
	}
	if s.music != nil {
		in.MusicTracks = 1
	}
	start := len(s.history) - InsightHistoryLimit
	if start < 0 {
		start = 0
	}
	for _, r := range s.history[start:] {
		in.RecentStates = append(in.RecentStates, r.PrimaryState)
	}
	return in
}

func (s *Session) Logs() []domain.CallLogEntry {
	return s.calls.Entries()
}

func (s *Session) Handles() []string {
	return s.tracker.Handles()
}
