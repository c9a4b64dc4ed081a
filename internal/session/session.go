// Package session holds the state of one user session: the current
// classification, its history, the journal, the active music track and the
// diagnostics shared by every pipeline run.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"asamanthinks/internal/calllog"
	"asamanthinks/internal/domain"
	"asamanthinks/internal/tracker"
	"asamanthinks/internal/usecase"
)

// Outcome reports how the most recent classification ended.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// InsightHistoryLimit bounds the recent-states list in Insights.
const InsightHistoryLimit = 10

type Pipelines interface {
	Classify(ctx context.Context, text string) usecase.Result[usecase.Classification]
	ClassifyTranscript(ctx context.Context, transcript string) usecase.Result[usecase.Classification]
	ComposeMusic(ctx context.Context, rec *domain.StateRecord) usecase.Result[*domain.MusicTrack]
	Transcribe(ctx context.Context, encodedAudio string) usecase.Result[string]
}

// Session is safe for concurrent use. Pipeline runs are not serialised
// against each other; only field access is guarded.
type Session struct {
	pipelines Pipelines
	calls     *calllog.Logger
	tracker   *tracker.Tracker
	deleter   tracker.Deleter
	log       *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	current     *domain.StateRecord
	history     []domain.StateRecord
	journal     []domain.JournalEntry
	music       *domain.MusicTrack
	chaos       bool
	outcome     Outcome
	inFlight    int
	lastEntryID int64
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func New(p Pipelines, calls *calllog.Logger, tr *tracker.Tracker, deleter tracker.Deleter, opts ...Option) (*Session, error) {
	if p == nil {
		return nil, errors.New("session: pipelines must not be nil")
	}
	if calls == nil {
		return nil, errors.New("session: call logger must not be nil")
	}
	if tr == nil {
		return nil, errors.New("session: tracker must not be nil")
	}
	if deleter == nil {
		return nil, errors.New("session: deleter must not be nil")
	}
	s := &Session{
		pipelines: p,
		calls:     calls,
		tracker:   tr,
		deleter:   deleter,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		outcome:   OutcomePending,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckInResult is returned by CheckIn and ProcessVoice. Record and Track
// are nil when the corresponding pipeline produced nothing; the matching
// error field then carries the failure message.
type CheckInResult struct {
	Record     *domain.StateRecord `json:"record"`
	Fallback   bool                `json:"fallback"`
	Outcome    Outcome             `json:"outcome"`
	Track      *domain.MusicTrack  `json:"music"`
	Entry      domain.JournalEntry `json:"entry"`
	StateError string              `json:"state_error,omitempty"`
	MusicError string              `json:"music_error,omitempty"`
}

// DetectState classifies text and, on success, records the result as the
// current state. Invalid input is rejected without touching the outcome.
func (s *Session) DetectState(ctx context.Context, text string) (*domain.StateRecord, bool, error) {
	return s.detect(func() usecase.Result[usecase.Classification] {
		return s.pipelines.Classify(ctx, text)
	})
}

func (s *Session) detect(run func() usecase.Result[usecase.Classification]) (*domain.StateRecord, bool, error) {
	s.begin()
	defer s.end()

	c, err := run().Unwrap()
	if err != nil {
		if usecase.CodeOf(err) != usecase.ErrorInvalidInput {
			s.setOutcome(OutcomeFailed)
		}
		return nil, false, err
	}

	rec := c.Record.Clone()
	s.mu.Lock()
	s.current = &rec
	s.history = append(s.history, rec.Clone())
	s.chaos = rec.ChaosDetected
	s.outcome = OutcomeSucceeded
	s.mu.Unlock()

	if c.Fallback {
		s.log.Info("classification fell back to default record")
	}
	out := rec.Clone()
	return &out, c.Fallback, nil
}

// GenerateMusic replaces the active track with one composed for rec. A nil
// rec does nothing. On failure the previous track is kept.
func (s *Session) GenerateMusic(ctx context.Context, rec *domain.StateRecord) (*domain.MusicTrack, error) {
	if rec == nil {
		return nil, nil
	}
	s.begin()
	defer s.end()

	track, err := s.pipelines.ComposeMusic(ctx, rec).Unwrap()
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, nil
	}
	s.mu.Lock()
	cp := *track
	s.music = &cp
	s.mu.Unlock()
	return track, nil
}

// RegenerateMusic composes a new track for the current state.
func (s *Session) RegenerateMusic(ctx context.Context) (*domain.MusicTrack, error) {
	rec := s.CurrentState()
	if rec == nil {
		return nil, usecase.NewError(usecase.ErrorInvalidInput, "no_current_state", nil)
	}
	return s.GenerateMusic(ctx, rec)
}

// CheckIn runs a typed check-in: classification, music when a record was
// produced, then a text journal entry. Only invalid input is returned as an
// error; pipeline failures are reported inside the result.
func (s *Session) CheckIn(ctx context.Context, text string) (CheckInResult, error) {
	rec, fallback, err := s.DetectState(ctx, text)
	if err != nil && usecase.CodeOf(err) == usecase.ErrorInvalidInput {
		return CheckInResult{}, err
	}
	res := CheckInResult{Record: rec, Fallback: fallback}
	if err != nil {
		res.StateError = err.Error()
	}

	res.Track, err = s.GenerateMusic(ctx, rec)
	if err != nil {
		res.MusicError = err.Error()
	}

	res.Entry = s.appendJournal(text, rec, domain.EntryText)
	res.Outcome = s.Outcome()
	return res, nil
}

// SelectState runs a check-in for a category picked directly. The text
// classified and journaled is the category's selection text.
func (s *Session) SelectState(ctx context.Context, c domain.Category) (CheckInResult, error) {
	info := c.Info()
	if info.Key == "" {
		return CheckInResult{}, usecase.NewError(usecase.ErrorInvalidInput, "unknown_category", nil)
	}
	return s.CheckIn(ctx, info.SelectionText())
}

// ProcessVoice transcribes base64 audio and feeds the transcript through the
// check-in flow as a voice entry. A failed transcription aborts the run.
func (s *Session) ProcessVoice(ctx context.Context, encodedAudio string) (CheckInResult, error) {
	s.begin()
	transcript, err := s.pipelines.Transcribe(ctx, encodedAudio).Unwrap()
	s.end()
	if err != nil {
		return CheckInResult{}, err
	}

	rec, fallback, err := s.detect(func() usecase.Result[usecase.Classification] {
		return s.pipelines.ClassifyTranscript(ctx, transcript)
	})
	res := CheckInResult{Record: rec, Fallback: fallback}
	if err != nil {
		res.StateError = err.Error()
	}

	res.Entry = s.appendJournal(transcript, rec, domain.EntryVoice)

	res.Track, err = s.GenerateMusic(ctx, rec)
	if err != nil {
		res.MusicError = err.Error()
	}
	res.Outcome = s.Outcome()
	return res, nil
}

// ReleaseObjects deletes every tracked remote object.
func (s *Session) ReleaseObjects(ctx context.Context) tracker.ReleaseReport {
	s.begin()
	defer s.end()
	report := s.tracker.ReleaseAll(ctx, s.deleter, s.calls)
	s.log.Info("released remote objects",
		"attempted", report.Attempted,
		"deleted", report.Deleted,
		"failed", len(report.Failed),
	)
	return report
}

func (s *Session) appendJournal(text string, rec *domain.StateRecord, typ domain.EntryType) domain.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastEntryID {
		id = s.lastEntryID + 1
	}
	s.lastEntryID = id

	entry := domain.JournalEntry{ID: id, Text: text, Timestamp: now.UTC(), Type: typ}
	if rec != nil {
		cp := rec.Clone()
		entry.State = &cp
	}
	s.journal = append(s.journal, entry)
	return entry
}

func (s *Session) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *Session) setOutcome(o Outcome) {
	s.mu.Lock()
	s.outcome = o
	s.mu.Unlock()
}
