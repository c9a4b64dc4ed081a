package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"asamanthinks/internal/domain"
	"asamanthinks/internal/integrations/prompttools"
)

const (
	defaultMaxInput = 5000

	opDetectState  = "detectEmotionalState"
	opGenerateSong = "generateMusic"
	opProcessVoice = "processVoiceInput"
)

// Handle kinds used as object name prefixes on the remote service.
const (
	kindUserInput      = "user_input"
	kindAnalysis       = "emotional_analysis"
	kindMusic          = "music_generation"
	kindVoiceRecording = "voice_recording"
	kindTranscription  = "transcribed_text"
)

type PromptTools interface {
	StoreInput(ctx context.Context, req prompttools.InputDataRequest) (string, error)
	ApplyPrompt(ctx context.Context, req prompttools.ApplyPromptRequest) (string, error)
	ReturnData(ctx context.Context, req prompttools.ReturnDataRequest) (prompttools.ReturnDataResponse, error)
}

type CallRecorder interface {
	Record(endpoint, method string, payload, response any)
	RecordError(operation string, payload any, err error)
}

type HandleTracker interface {
	Track(handle string)
}

type PromptRenderer interface {
	Classification(inputObject string) (string, error)
	Music(rec domain.StateRecord) (string, error)
	Transcription(inputObject string) (string, error)
}

// Pipelines runs the store → transform → retrieve chains against the remote
// prompt service. Steps inside one pipeline run strictly in order; separate
// invocations are independent and may interleave.
type Pipelines struct {
	tools       PromptTools
	calls       CallRecorder
	tracker     HandleTracker
	prompts     PromptRenderer
	maxInputLen int
}

func NewPipelines(tools PromptTools, calls CallRecorder, tracker HandleTracker, prompts PromptRenderer, maxInputLen int) (*Pipelines, error) {
	if tools == nil {
		return nil, errors.New("usecase: prompt tools client must not be nil")
	}
	if calls == nil {
		return nil, errors.New("usecase: call recorder must not be nil")
	}
	if tracker == nil {
		return nil, errors.New("usecase: handle tracker must not be nil")
	}
	if prompts == nil {
		return nil, errors.New("usecase: prompt renderer must not be nil")
	}
	if maxInputLen <= 0 {
		maxInputLen = defaultMaxInput
	}
	return &Pipelines{
		tools:       tools,
		calls:       calls,
		tracker:     tracker,
		prompts:     prompts,
		maxInputLen: maxInputLen,
	}, nil
}

// Classification is what Classify yields on success. Fallback reports that
// the default record replaced an unusable response.
type Classification struct {
	Record   domain.StateRecord
	Fallback bool
}

// Classify uploads text, classifies it against the seven categories and
// decodes the result. An unusable classification response yields the
// default record; only transport failures produce an error result.
func (p *Pipelines) Classify(ctx context.Context, text string) Result[Classification] {
	text = strings.TrimSpace(text)
	if text == "" {
		return Err[Classification](newError(ErrorInvalidInput, "empty_input", nil))
	}
	if len(text) > p.maxInputLen {
		return Err[Classification](newError(ErrorInvalidInput, "input_too_long", nil))
	}
	return p.classify(ctx, text)
}

// ClassifyTranscript classifies text produced by Transcribe. Transcripts are
// not length capped; an empty one is a malformed transcription result and is
// logged like any other pipeline failure.
func (p *Pipelines) ClassifyTranscript(ctx context.Context, transcript string) Result[Classification] {
	text := strings.TrimSpace(transcript)
	if text == "" {
		out := Err[Classification](newError(ErrorMalformedResponse, "empty_transcript", nil))
		p.calls.RecordError(opDetectState, map[string]any{"input": transcript}, out.Err())
		return out
	}
	return p.classify(ctx, text)
}

func (p *Pipelines) classify(ctx context.Context, text string) Result[Classification] {
	inputName := newHandle(kindUserInput)
	analysisName := newHandle(kindAnalysis)

	stored := p.store(ctx, inputName, prompttools.DataTypeStrings, text, text)
	applied := Then(stored, func(string) Result[string] {
		prompt, err := p.prompts.Classification(inputName)
		if err != nil {
			return Err[string](newError(ErrorInternal, "render_classification_prompt", err))
		}
		return p.apply(ctx, analysisName, prompt, []prompttools.PromptInput{
			{InputObjectName: inputName, Mode: prompttools.ModeCombineEvents},
		})
	})
	retrieved := Then(applied, func(string) Result[prompttools.ReturnDataResponse] {
		return p.retrieve(ctx, analysisName, prompttools.ReturnJSON)
	})
	out := Map(retrieved, func(resp prompttools.ReturnDataResponse) Classification {
		rec, ok := decodeStateRecord(resp)
		return Classification{Record: rec, Fallback: !ok}
	})

	if err := out.Err(); err != nil {
		p.calls.RecordError(opDetectState, map[string]any{"input": text}, err)
	}
	return out
}

// ComposeMusic turns rec into a music generation prompt. A nil rec is a
// no-op: nothing is called or logged and the result holds a nil track.
func (p *Pipelines) ComposeMusic(ctx context.Context, rec *domain.StateRecord) Result[*domain.MusicTrack] {
	if rec == nil {
		return Ok[*domain.MusicTrack](nil)
	}

	musicName := newHandle(kindMusic)
	prompt, err := p.prompts.Music(*rec)
	if err != nil {
		out := Err[*domain.MusicTrack](newError(ErrorInternal, "render_music_prompt", err))
		p.calls.RecordError(opGenerateSong, map[string]any{"state": rec}, out.Err())
		return out
	}

	applied := p.apply(ctx, musicName, prompt, nil)
	retrieved := Then(applied, func(string) Result[prompttools.ReturnDataResponse] {
		return p.retrieve(ctx, musicName, prompttools.ReturnPrettyText)
	})
	out := Then(retrieved, func(resp prompttools.ReturnDataResponse) Result[*domain.MusicTrack] {
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return Err[*domain.MusicTrack](newError(ErrorMalformedResponse, "empty_music_prompt", nil))
		}
		return Ok(&domain.MusicTrack{Prompt: text, State: rec.PrimaryState})
	})

	if err := out.Err(); err != nil {
		p.calls.RecordError(opGenerateSong, map[string]any{"state": rec}, err)
	}
	return out
}

// Transcribe uploads base64 audio as a file object and returns the
// transcript produced by the remote service. Empty audio is still submitted.
func (p *Pipelines) Transcribe(ctx context.Context, encodedAudio string) Result[string] {
	voiceName := newHandle(kindVoiceRecording)
	transcriptName := newHandle(kindTranscription)

	dataURL := "data:audio/wav;base64," + encodedAudio
	stored := p.store(ctx, voiceName, prompttools.DataTypeFiles, dataURL, "base64...")
	applied := Then(stored, func(string) Result[string] {
		prompt, err := p.prompts.Transcription(voiceName)
		if err != nil {
			return Err[string](newError(ErrorInternal, "render_transcription_prompt", err))
		}
		return p.apply(ctx, transcriptName, prompt, []prompttools.PromptInput{
			{InputObjectName: voiceName, Mode: prompttools.ModeUseIndividually},
		})
	})
	retrieved := Then(applied, func(string) Result[prompttools.ReturnDataResponse] {
		return p.retrieve(ctx, transcriptName, prompttools.ReturnPrettyText)
	})
	out := Map(retrieved, func(resp prompttools.ReturnDataResponse) string {
		return strings.TrimSpace(resp.Text())
	})

	if err := out.Err(); err != nil {
		p.calls.RecordError(opProcessVoice, map[string]any{"audioData": "base64..."}, err)
	}
	return out
}

// store uploads one value. logged replaces the value in the call log so
// large payloads such as audio stay out of the diagnostics buffer.
func (p *Pipelines) store(ctx context.Context, name string, dataType prompttools.DataType, value, logged string) Result[string] {
	req := prompttools.InputDataRequest{
		CreatedObjectName: name,
		DataType:          dataType,
		InputData:         []string{value},
	}
	resp, err := p.tools.StoreInput(ctx, req)
	if err != nil {
		return Err[string](upstreamError("input_data", err))
	}
	logReq := req
	logReq.InputData = []string{logged}
	p.calls.Record("/input_data", "POST", logReq, resp)
	p.tracker.Track(name)
	return Ok(resp)
}

func (p *Pipelines) apply(ctx context.Context, name, prompt string, inputs []prompttools.PromptInput) Result[string] {
	if inputs == nil {
		inputs = []prompttools.PromptInput{}
	}
	req := prompttools.ApplyPromptRequest{
		CreatedObjectNames: []string{name},
		PromptString:       prompt,
		Inputs:             inputs,
	}
	resp, err := p.tools.ApplyPrompt(ctx, req)
	if err != nil {
		return Err[string](upstreamError("apply_prompt", err))
	}
	p.calls.Record("/apply_prompt", "POST", req, resp)
	p.tracker.Track(name)
	return Ok(resp)
}

func (p *Pipelines) retrieve(ctx context.Context, name string, returnType prompttools.ReturnType) Result[prompttools.ReturnDataResponse] {
	req := prompttools.ReturnDataRequest{ObjectName: name, ReturnType: returnType}
	resp, err := p.tools.ReturnData(ctx, req)
	if err != nil {
		return Err[prompttools.ReturnDataResponse](upstreamError("return_data", err))
	}
	p.calls.Record("/return_data", "POST", req, resp)
	return Ok(resp)
}

func upstreamError(step string, err error) *Error {
	if status, ok := upstreamStatusCode(err); ok {
		return newError(ErrorUpstream, fmt.Sprintf("%s_http_%d", step, status), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorUpstream, step+"_timeout", err)
	}
	return newError(ErrorUpstream, step+"_failed", err)
}

var newHandle = func(kind string) string {
	return kind + "_" + uuid.NewString()
}
