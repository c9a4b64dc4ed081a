package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"asamanthinks/internal/calllog"
	"asamanthinks/internal/domain"
	"asamanthinks/internal/tracker"
	"asamanthinks/internal/usecase"
)

type fakePipelines struct {
	classify   []usecase.Result[usecase.Classification]
	music      usecase.Result[*domain.MusicTrack]
	transcript usecase.Result[string]

	classifyCalls []string
	musicCalls    []*domain.StateRecord
}

func (f *fakePipelines) Classify(_ context.Context, text string) usecase.Result[usecase.Classification] {
	f.classifyCalls = append(f.classifyCalls, text)
	idx := len(f.classifyCalls) - 1
	if idx >= len(f.classify) {
		idx = len(f.classify) - 1
	}
	return f.classify[idx]
}

func (f *fakePipelines) ClassifyTranscript(ctx context.Context, transcript string) usecase.Result[usecase.Classification] {
	return f.Classify(ctx, transcript)
}

func (f *fakePipelines) ComposeMusic(_ context.Context, rec *domain.StateRecord) usecase.Result[*domain.MusicTrack] {
	f.musicCalls = append(f.musicCalls, rec)
	return f.music
}

func (f *fakePipelines) Transcribe(_ context.Context, _ string) usecase.Result[string] {
	return f.transcript
}

type fakeDeleter struct{}

func (fakeDeleter) DeleteObject(_ context.Context, _ string) (string, error) {
	return "Deleted", nil
}

func record(c domain.Category, chaos bool) domain.StateRecord {
	rec := domain.DefaultStateRecord()
	rec.PrimaryState = c
	rec.ChaosDetected = chaos
	return rec
}

func okClass(rec domain.StateRecord) usecase.Result[usecase.Classification] {
	return usecase.Ok(usecase.Classification{Record: rec})
}

func upstreamErr() *usecase.Error {
	return usecase.NewError(usecase.ErrorUpstream, "apply_prompt_failed", errors.New("boom"))
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func newSession(t *testing.T, p *fakePipelines) *Session {
	t.Helper()
	s, err := New(p, calllog.New(nil), tracker.New(), fakeDeleter{}, WithClock(fixedClock()))
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	calls := calllog.New(nil)
	tr := tracker.New()
	p := &fakePipelines{}

	_, err := New(nil, calls, tr, fakeDeleter{})
	require.Error(t, err)
	_, err = New(p, nil, tr, fakeDeleter{})
	require.Error(t, err)
	_, err = New(p, calls, nil, fakeDeleter{})
	require.Error(t, err)
	_, err = New(p, calls, tr, nil)
	require.Error(t, err)
}

func TestInitialState(t *testing.T) {
	s := newSession(t, &fakePipelines{})

	require.Nil(t, s.CurrentState())
	require.Equal(t, OutcomePending, s.Outcome())
	require.False(t, s.Loading())
	require.Nil(t, s.MusicTrack())
	require.Empty(t, s.History())
	require.Empty(t, s.Journal(0))
	require.Equal(t, Insights{RecentStates: []domain.Category{}}, s.Insights())
}

func TestCheckIn_TwoSequentialCheckIns(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{
			okClass(record(domain.CategoryAstral, true)),
			okClass(record(domain.CategoryPhysical, false)),
		},
		music: usecase.Ok(&domain.MusicTrack{Prompt: "slow strings", State: domain.CategoryPhysical}),
	}
	s := newSession(t, p)

	first, err := s.CheckIn(context.Background(), "first")
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, first.Outcome)
	require.True(t, s.ChaosDetected())

	second, err := s.CheckIn(context.Background(), "second")
	require.NoError(t, err)
	require.Equal(t, domain.CategoryPhysical, second.Record.PrimaryState)

	history := s.History()
	require.Len(t, history, 2)
	require.Equal(t, domain.CategoryAstral, history[0].PrimaryState)
	require.Equal(t, domain.CategoryPhysical, history[1].PrimaryState)
	require.Equal(t, domain.CategoryPhysical, s.CurrentState().PrimaryState)
	require.False(t, s.ChaosDetected())

	journal := s.Journal(0)
	require.Len(t, journal, 2)
	require.Equal(t, "second", journal[0].Text)
	require.Equal(t, "first", journal[1].Text)
	require.Greater(t, journal[0].ID, journal[1].ID)
	require.Equal(t, domain.EntryText, journal[0].Type)

	require.Equal(t, []string{"first", "second"}, p.classifyCalls)
	require.Len(t, p.musicCalls, 2)
	require.False(t, s.Loading())
}

func TestCheckIn_ClassificationFailure(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{
			usecase.Err[usecase.Classification](upstreamErr()),
		},
	}
	s := newSession(t, p)

	res, err := s.CheckIn(context.Background(), "hello")
	require.NoError(t, err)
	require.Nil(t, res.Record)
	require.Nil(t, res.Track)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.NotEmpty(t, res.StateError)
	require.Nil(t, res.Entry.State)

	require.Nil(t, s.CurrentState())
	require.Empty(t, s.History())
	require.Empty(t, p.musicCalls)
}

func TestCheckIn_InvalidInputKeepsOutcome(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{
			usecase.Err[usecase.Classification](usecase.NewError(usecase.ErrorInvalidInput, "empty_input", nil)),
		},
	}
	s := newSession(t, p)

	_, err := s.CheckIn(context.Background(), "  ")
	require.Equal(t, usecase.ErrorInvalidInput, usecase.CodeOf(err))
	require.Equal(t, OutcomePending, s.Outcome())
	require.Empty(t, s.Journal(0))
}

func TestGenerateMusic_FailureKeepsPreviousTrack(t *testing.T) {
	p := &fakePipelines{
		music: usecase.Ok(&domain.MusicTrack{Prompt: "first", State: domain.CategoryMental}),
	}
	s := newSession(t, p)
	rec := record(domain.CategoryMental, false)

	_, err := s.GenerateMusic(context.Background(), &rec)
	require.NoError(t, err)

	p.music = usecase.Err[*domain.MusicTrack](upstreamErr())
	_, err = s.GenerateMusic(context.Background(), &rec)
	require.Error(t, err)
	require.Equal(t, "first", s.MusicTrack().Prompt)
}

func TestGenerateMusic_NilRecord(t *testing.T) {
	p := &fakePipelines{}
	s := newSession(t, p)

	track, err := s.GenerateMusic(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, track)
	require.Empty(t, p.musicCalls)
}

func TestRegenerateMusic_RequiresState(t *testing.T) {
	s := newSession(t, &fakePipelines{})
	_, err := s.RegenerateMusic(context.Background())
	require.Equal(t, usecase.ErrorInvalidInput, usecase.CodeOf(err))
}

func TestProcessVoice(t *testing.T) {
	p := &fakePipelines{
		transcript: usecase.Ok("I feel stuck"),
		classify:   []usecase.Result[usecase.Classification]{okClass(record(domain.CategoryCausal, false))},
		music:      usecase.Ok(&domain.MusicTrack{Prompt: "drone", State: domain.CategoryCausal}),
	}
	s := newSession(t, p)

	res, err := s.ProcessVoice(context.Background(), "QUJD")
	require.NoError(t, err)
	require.Equal(t, domain.EntryVoice, res.Entry.Type)
	require.Equal(t, "I feel stuck", res.Entry.Text)
	require.Equal(t, domain.CategoryCausal, res.Entry.State.PrimaryState)
	require.Equal(t, "drone", res.Track.Prompt)
	require.Equal(t, []string{"I feel stuck"}, p.classifyCalls)
}

func TestProcessVoice_TranscriptionFailureAborts(t *testing.T) {
	p := &fakePipelines{transcript: usecase.Err[string](upstreamErr())}
	s := newSession(t, p)

	_, err := s.ProcessVoice(context.Background(), "QUJD")
	require.Equal(t, usecase.ErrorUpstream, usecase.CodeOf(err))
	require.Empty(t, p.classifyCalls)
	require.Empty(t, s.Journal(0))
	require.False(t, s.Loading())
}

func TestProcessVoice_ClassificationFailureMarksOutcome(t *testing.T) {
	p := &fakePipelines{
		transcript: usecase.Ok(""),
		classify: []usecase.Result[usecase.Classification]{
			usecase.Err[usecase.Classification](usecase.NewError(usecase.ErrorMalformedResponse, "empty_transcript", nil)),
		},
	}
	s := newSession(t, p)

	res, err := s.ProcessVoice(context.Background(), "QUJD")
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, OutcomeFailed, s.Outcome())
	require.NotEmpty(t, res.StateError)
	require.Nil(t, res.Record)
	require.Nil(t, res.Track)
	require.Empty(t, p.musicCalls)

	journal := s.Journal(0)
	require.Len(t, journal, 1)
	require.Equal(t, domain.EntryVoice, journal[0].Type)
	require.Nil(t, journal[0].State)
}

func TestSelectState(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{okClass(record(domain.CategoryEtheric, false))},
		music:    usecase.Ok(&domain.MusicTrack{Prompt: "bright synth", State: domain.CategoryEtheric}),
	}
	s := newSession(t, p)

	res, err := s.SelectState(context.Background(), domain.CategoryEtheric)
	require.NoError(t, err)
	require.Equal(t, []string{"I'm feeling etheric - Energy, vitality"}, p.classifyCalls)
	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, domain.EntryText, res.Entry.Type)
	require.Equal(t, "I'm feeling etheric - Energy, vitality", res.Entry.Text)
	require.Equal(t, "bright synth", res.Track.Prompt)
}

func TestSelectState_UnknownCategory(t *testing.T) {
	p := &fakePipelines{}
	s := newSession(t, p)

	_, err := s.SelectState(context.Background(), domain.Category("cosmic"))
	require.Equal(t, usecase.ErrorInvalidInput, usecase.CodeOf(err))
	require.Empty(t, p.classifyCalls)
	require.Empty(t, s.Journal(0))
	require.Equal(t, OutcomePending, s.Outcome())
}

func TestJournal_LimitAndUniqueIDs(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{okClass(record(domain.CategoryMental, false))},
		music:    usecase.Ok[*domain.MusicTrack](nil),
	}
	s := newSession(t, p)

	for _, text := range []string{"a", "b", "c"} {
		_, err := s.CheckIn(context.Background(), text)
		require.NoError(t, err)
	}

	got := s.Journal(2)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].Text)
	require.Equal(t, "b", got[1].Text)

	all := s.Journal(0)
	require.Equal(t, all[2].ID+1, all[1].ID)
	require.Equal(t, all[1].ID+1, all[0].ID)
}

func TestInsights(t *testing.T) {
	p := &fakePipelines{
		classify: []usecase.Result[usecase.Classification]{okClass(record(domain.CategoryEtheric, false))},
		music:    usecase.Ok(&domain.MusicTrack{Prompt: "p", State: domain.CategoryEtheric}),
	}
	s := newSession(t, p)

	for i := 0; i < 12; i++ {
		_, err := s.CheckIn(context.Background(), "x")
		require.NoError(t, err)
	}

	in := s.Insights()
	require.Equal(t, 12, in.CheckIns)
	require.Equal(t, 12, in.JournalEntries)
	require.Equal(t, 1, in.MusicTracks)
	require.Len(t, in.RecentStates, InsightHistoryLimit)
}

func TestReleaseObjects(t *testing.T) {
	calls := calllog.New(nil)
	tr := tracker.New()
	tr.Track("user_input_1")
	tr.Track("emotional_analysis_2")
	s, err := New(&fakePipelines{}, calls, tr, fakeDeleter{})
	require.NoError(t, err)

	report := s.ReleaseObjects(context.Background())
	require.Equal(t, 2, report.Attempted)
	require.Equal(t, 2, report.Deleted)
	require.Empty(t, s.Handles())
	require.Len(t, s.Logs(), 2)
}
