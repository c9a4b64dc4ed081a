package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"asamanthinks/internal/calllog"
	"asamanthinks/internal/domain"
	"asamanthinks/internal/integrations/prompttools"
	"asamanthinks/internal/tracker"
	"asamanthinks/prompts"
)

type fakeTools struct {
	stored   []prompttools.InputDataRequest
	applied  []prompttools.ApplyPromptRequest
	returned []prompttools.ReturnDataRequest

	storeErr  error
	applyErr  error
	returnErr error
	value     json.RawMessage
}

func (f *fakeTools) StoreInput(_ context.Context, req prompttools.InputDataRequest) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, req)
	return "Stored", nil
}

func (f *fakeTools) ApplyPrompt(_ context.Context, req prompttools.ApplyPromptRequest) (string, error) {
	if f.applyErr != nil {
		return "", f.applyErr
	}
	f.applied = append(f.applied, req)
	return "Applied", nil
}

func (f *fakeTools) ReturnData(_ context.Context, req prompttools.ReturnDataRequest) (prompttools.ReturnDataResponse, error) {
	if f.returnErr != nil {
		return prompttools.ReturnDataResponse{}, f.returnErr
	}
	f.returned = append(f.returned, req)
	return prompttools.ReturnDataResponse{Value: f.value}, nil
}

func jsonString(t *testing.T, s string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func stubHandles(t *testing.T) {
	t.Helper()
	orig := newHandle
	n := 0
	newHandle = func(kind string) string {
		n++
		return kind + "_" + strconv.Itoa(n)
	}
	t.Cleanup(func() { newHandle = orig })
}

type pipelineFixture struct {
	tools   *fakeTools
	calls   *calllog.Logger
	tracker *tracker.Tracker
	p       *Pipelines
}

func newFixture(t *testing.T, tools *fakeTools) pipelineFixture {
	t.Helper()
	set, err := prompts.Default()
	require.NoError(t, err)
	calls := calllog.New(nil)
	tr := tracker.New()
	p, err := NewPipelines(tools, calls, tr, set, 0)
	require.NoError(t, err)
	return pipelineFixture{tools: tools, calls: calls, tracker: tr, p: p}
}

func TestNewPipelines_Validation(t *testing.T) {
	set, err := prompts.Default()
	require.NoError(t, err)
	calls := calllog.New(nil)
	tr := tracker.New()

	_, err = NewPipelines(nil, calls, tr, set, 0)
	require.Error(t, err)
	_, err = NewPipelines(&fakeTools{}, nil, tr, set, 0)
	require.Error(t, err)
	_, err = NewPipelines(&fakeTools{}, calls, nil, set, 0)
	require.Error(t, err)
	_, err = NewPipelines(&fakeTools{}, calls, tr, nil, 0)
	require.Error(t, err)

	p, err := NewPipelines(&fakeTools{}, calls, tr, set, 0)
	require.NoError(t, err)
	require.Equal(t, defaultMaxInput, p.maxInputLen)
}

func TestClassify_HappyPath(t *testing.T) {
	stubHandles(t)
	tools := &fakeTools{value: jsonString(t, `{"primary_state":"astral","intensity":8,"secondary_states":["mental","bogus"],"chaos_detected":true,"opposite_action":"Go for a walk","music_prompt":"Soft piano"}`)}
	f := newFixture(t, tools)

	c, err := f.p.Classify(context.Background(), "  I feel anxious about my job  ").Unwrap()
	require.NoError(t, err)
	require.False(t, c.Fallback)
	require.Equal(t, domain.StateRecord{
		PrimaryState:    domain.CategoryAstral,
		Intensity:       8,
		SecondaryStates: []domain.Category{domain.CategoryMental},
		ChaosDetected:   true,
		OppositeAction:  "Go for a walk",
		MusicPrompt:     "Soft piano",
	}, c.Record)

	require.Len(t, tools.stored, 1)
	require.Equal(t, "user_input_1", tools.stored[0].CreatedObjectName)
	require.Equal(t, prompttools.DataTypeStrings, tools.stored[0].DataType)
	require.Equal(t, []string{"I feel anxious about my job"}, tools.stored[0].InputData)

	require.Len(t, tools.applied, 1)
	require.Equal(t, []string{"emotional_analysis_2"}, tools.applied[0].CreatedObjectNames)
	require.Contains(t, tools.applied[0].PromptString, "{user_input_1}")
	require.Equal(t, []prompttools.PromptInput{{InputObjectName: "user_input_1", Mode: prompttools.ModeCombineEvents}}, tools.applied[0].Inputs)

	require.Equal(t, []prompttools.ReturnDataRequest{{ObjectName: "emotional_analysis_2", ReturnType: prompttools.ReturnJSON}}, tools.returned)
	require.Equal(t, []string{"user_input_1", "emotional_analysis_2"}, f.tracker.Handles())

	entries := f.calls.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "/return_data", entries[0].Endpoint)
	require.Equal(t, "/apply_prompt", entries[1].Endpoint)
	require.Equal(t, "/input_data", entries[2].Endpoint)
}

func TestClassify_MalformedJSONYieldsDefault(t *testing.T) {
	tools := &fakeTools{value: jsonString(t, "I think you are feeling anxious {not json")}
	f := newFixture(t, tools)

	c, err := f.p.Classify(context.Background(), "I feel anxious about my job").Unwrap()
	require.NoError(t, err)
	require.True(t, c.Fallback)
	require.Equal(t, domain.DefaultStateRecord(), c.Record)
}

func TestClassify_UnknownPrimaryYieldsDefault(t *testing.T) {
	tools := &fakeTools{value: jsonString(t, `{"primary_state":"cosmic","intensity":3}`)}
	f := newFixture(t, tools)

	c, err := f.p.Classify(context.Background(), "hello").Unwrap()
	require.NoError(t, err)
	require.True(t, c.Fallback)
	require.Equal(t, domain.DefaultStateRecord(), c.Record)
}

func TestClassify_ObjectValueAndClamp(t *testing.T) {
	tools := &fakeTools{value: json.RawMessage(`{"primary_state":"Causal","intensity":42,"chaos_detected":false}`)}
	f := newFixture(t, tools)

	c, err := f.p.Classify(context.Background(), "what does it all mean").Unwrap()
	require.NoError(t, err)
	require.False(t, c.Fallback)
	require.Equal(t, domain.CategoryCausal, c.Record.PrimaryState)
	require.Equal(t, domain.MaxIntensity, c.Record.Intensity)
	require.Equal(t, []domain.Category{}, c.Record.SecondaryStates)
}

func TestClassify_ClampsHugeIntensity(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want int
	}{
		{raw: "1e300", want: domain.MaxIntensity},
		{raw: "-1e300", want: domain.MinIntensity},
		{raw: "9.6", want: domain.MaxIntensity},
		{raw: "4.4", want: 4},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			tools := &fakeTools{value: json.RawMessage(`{"primary_state":"mental","intensity":` + tc.raw + `}`)}
			f := newFixture(t, tools)

			c, err := f.p.Classify(context.Background(), "racing thoughts").Unwrap()
			require.NoError(t, err)
			require.False(t, c.Fallback)
			require.Equal(t, tc.want, c.Record.Intensity)
		})
	}
}

func TestClassify_RejectsEmptyAndLongInput(t *testing.T) {
	tools := &fakeTools{}
	f := newFixture(t, tools)

	err := f.p.Classify(context.Background(), "   ").Err()
	require.Error(t, err)
	require.Equal(t, ErrorInvalidInput, CodeOf(err))

	err = f.p.Classify(context.Background(), strings.Repeat("a", defaultMaxInput+1)).Err()
	require.Equal(t, ErrorInvalidInput, CodeOf(err))

	require.Empty(t, tools.stored)
	require.Zero(t, f.calls.Len())
}

func TestClassifyTranscript_LongTextIsNotCapped(t *testing.T) {
	stubHandles(t)
	tools := &fakeTools{value: jsonString(t, `{"primary_state":"astral","intensity":7}`)}
	f := newFixture(t, tools)

	transcript := strings.Repeat("I feel anxious about my job. ", 200)
	require.Greater(t, len(transcript), defaultMaxInput)

	c, err := f.p.ClassifyTranscript(context.Background(), transcript).Unwrap()
	require.NoError(t, err)
	require.Equal(t, domain.CategoryAstral, c.Record.PrimaryState)
	require.Len(t, tools.stored, 1)
	require.Equal(t, []string{strings.TrimSpace(transcript)}, tools.stored[0].InputData)
	require.Equal(t, 2, f.tracker.Len())
}

func TestClassifyTranscript_EmptyLogsError(t *testing.T) {
	tools := &fakeTools{}
	f := newFixture(t, tools)

	err := f.p.ClassifyTranscript(context.Background(), "  \n ").Err()
	require.Error(t, err)
	require.Equal(t, ErrorMalformedResponse, CodeOf(err))
	require.Empty(t, tools.stored)

	entries := f.calls.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, calllog.ErrorEndpoint, entries[0].Endpoint)
	require.Equal(t, "detectEmotionalState", entries[0].Method)
}

func TestClassify_TransportFailureLogsErrorEntry(t *testing.T) {
	tools := &fakeTools{applyErr: &prompttools.HTTPStatusError{StatusCode: 503, URL: "u"}}
	f := newFixture(t, tools)

	res := f.p.Classify(context.Background(), "I am tired")
	require.False(t, res.IsOk())

	var ucErr *Error
	require.True(t, errors.As(res.Err(), &ucErr))
	require.Equal(t, ErrorUpstream, ucErr.Code)
	require.Equal(t, "apply_prompt_http_503", ucErr.Reason)

	entries := f.calls.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, calllog.ErrorEndpoint, entries[0].Endpoint)
	require.Equal(t, "detectEmotionalState", entries[0].Method)
	require.Equal(t, map[string]any{"input": "I am tired"}, entries[0].Payload)
	require.Equal(t, "/input_data", entries[1].Endpoint)

	// Only the stored input was tracked before the failure.
	require.Equal(t, 1, f.tracker.Len())
}

func TestClassify_TracksTwoHandlesPerCall(t *testing.T) {
	tools := &fakeTools{value: jsonString(t, `{"primary_state":"mental","intensity":5}`)}
	f := newFixture(t, tools)

	for i := 0; i < 4; i++ {
		require.True(t, f.p.Classify(context.Background(), "check in").IsOk())
	}
	require.Equal(t, 8, f.tracker.Len())
}

func TestComposeMusic_NilRecordIsNoop(t *testing.T) {
	tools := &fakeTools{}
	f := newFixture(t, tools)

	track, err := f.p.ComposeMusic(context.Background(), nil).Unwrap()
	require.NoError(t, err)
	require.Nil(t, track)
	require.Empty(t, tools.applied)
	require.Zero(t, f.calls.Len())
	require.Zero(t, f.tracker.Len())
}

func TestComposeMusic_HappyPath(t *testing.T) {
	stubHandles(t)
	tools := &fakeTools{value: jsonString(t, "  Warm cello drones, slow tempo  ")}
	f := newFixture(t, tools)

	rec := domain.StateRecord{PrimaryState: domain.CategoryBuddhic, Intensity: 6, MusicPrompt: "Gentle bells"}
	track, err := f.p.ComposeMusic(context.Background(), &rec).Unwrap()
	require.NoError(t, err)
	require.Equal(t, &domain.MusicTrack{Prompt: "Warm cello drones, slow tempo", State: domain.CategoryBuddhic}, track)

	require.Len(t, tools.applied, 1)
	require.Equal(t, []string{"music_generation_1"}, tools.applied[0].CreatedObjectNames)
	require.Equal(t, []prompttools.PromptInput{}, tools.applied[0].Inputs)
	require.Contains(t, tools.applied[0].PromptString, "Intensity: 6/10")
	require.Equal(t, prompttools.ReturnPrettyText, tools.returned[0].ReturnType)
	require.Equal(t, []string{"music_generation_1"}, f.tracker.Handles())
}

func TestComposeMusic_Failures(t *testing.T) {
	rec := domain.DefaultStateRecord()

	t.Run("transport", func(t *testing.T) {
		f := newFixture(t, &fakeTools{returnErr: errors.New("connection reset")})
		err := f.p.ComposeMusic(context.Background(), &rec).Err()
		require.Equal(t, ErrorUpstream, CodeOf(err))
		entries := f.calls.Entries()
		require.Equal(t, calllog.ErrorEndpoint, entries[0].Endpoint)
		require.Equal(t, "generateMusic", entries[0].Method)
	})

	t.Run("empty prompt", func(t *testing.T) {
		f := newFixture(t, &fakeTools{value: jsonString(t, "   ")})
		err := f.p.ComposeMusic(context.Background(), &rec).Err()
		require.Equal(t, ErrorMalformedResponse, CodeOf(err))
	})
}

func TestTranscribe_HappyPath(t *testing.T) {
	stubHandles(t)
	tools := &fakeTools{value: jsonString(t, "I had a rough morning\n")}
	f := newFixture(t, tools)

	text, err := f.p.Transcribe(context.Background(), "QUJD").Unwrap()
	require.NoError(t, err)
	require.Equal(t, "I had a rough morning", text)

	require.Equal(t, prompttools.DataTypeFiles, tools.stored[0].DataType)
	require.Equal(t, []string{"data:audio/wav;base64,QUJD"}, tools.stored[0].InputData)
	require.Equal(t, []prompttools.PromptInput{{InputObjectName: "voice_recording_1", Mode: prompttools.ModeUseIndividually}}, tools.applied[0].Inputs)
	require.Equal(t, []string{"voice_recording_1", "transcribed_text_2"}, f.tracker.Handles())

	logged := f.calls.Entries()[2].Payload.(prompttools.InputDataRequest)
	require.Equal(t, []string{"base64..."}, logged.InputData)
}

func TestTranscribe_EmptyAudioIsSubmitted(t *testing.T) {
	tools := &fakeTools{value: jsonString(t, "")}
	f := newFixture(t, tools)

	text, err := f.p.Transcribe(context.Background(), "").Unwrap()
	require.NoError(t, err)
	require.Empty(t, text)
	require.Equal(t, []string{"data:audio/wav;base64,"}, tools.stored[0].InputData)
}

func TestTranscribe_FailureLogged(t *testing.T) {
	f := newFixture(t, &fakeTools{storeErr: context.DeadlineExceeded})

	err := f.p.Transcribe(context.Background(), "QUJD").Err()
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, "input_data_timeout", ucErr.Reason)

	entries := f.calls.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "processVoiceInput", entries[0].Method)
	require.Zero(t, f.tracker.Len())
}
