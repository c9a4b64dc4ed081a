// Package voice captures audio from a device into a single base64 blob.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var (
	ErrPermissionDenied = errors.New("voice: microphone permission denied")
	ErrAlreadyRecording = errors.New("voice: already recording")
	ErrNotRecording     = errors.New("voice: not recording")
)

// Device opens an audio stream. Open returns an error wrapping
// ErrPermissionDenied when access is refused.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream delivers chunks until it is closed or runs out of data, at which
// point the Chunks channel is closed.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Recorder toggles between idle and recording. While recording, chunks are
// drained from the stream on a separate goroutine.
type Recorder struct {
	dev Device
	log *slog.Logger

	mu      sync.Mutex
	stream  Stream
	chunks  [][]byte
	drained chan struct{}
}

func NewRecorder(dev Device, log *slog.Logger) (*Recorder, error) {
	if dev == nil {
		return nil, errors.New("voice: device must not be nil")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{dev: dev, log: log}, nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Start opens the device and begins buffering. On permission denial the
// recorder stays idle and the denial is only logged.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil || r.drained != nil {
		return ErrAlreadyRecording
	}

	stream, err := r.dev.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			r.log.Warn("microphone access denied", "err", err)
		}
		return err
	}

	r.stream = stream
	r.chunks = nil
	r.drained = make(chan struct{})
	go r.drain(stream, r.drained)
	return nil
}

func (r *Recorder) drain(stream Stream, done chan struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
}

// Drained is closed once the current stream has delivered its last chunk.
// It returns nil while idle.
func (r *Recorder) Drained() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drained
}

// Stop closes the stream, waits for buffered chunks and returns the whole
// recording base64 encoded. An empty recording yields "". Only one of several
// concurrent Stop calls wins; the rest get ErrNotRecording. Start is refused
// until the winning Stop has collected the chunks.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	stream, done := r.stream, r.drained
	if stream == nil {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	r.stream = nil
	r.mu.Unlock()

	closeErr := stream.Close()
	<-done

	r.mu.Lock()
	blob := bytes.Join(r.chunks, nil)
	r.chunks = nil
	r.drained = nil
	r.mu.Unlock()

	if closeErr != nil {
		r.log.Warn("closing audio stream", "err", closeErr)
	}
	r.log.Debug("recording finished", "bytes", len(blob))
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Toggle starts recording when idle and stops it otherwise. audio is only
// set when a recording was stopped.
func (r *Recorder) Toggle(ctx context.Context) (recording bool, audio string, err error) {
	if !r.Recording() {
		if err := r.Start(ctx); err != nil {
			return false, "", err
		}
		return true, "", nil
	}
	audio, err = r.Stop()
	return false, audio, err
}
