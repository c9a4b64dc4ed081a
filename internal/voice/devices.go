package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

const (
	DefaultChunkSize = 32 * 1024
	pushBuffer       = 64
)

// PushDevice is fed by callers, one chunk at a time. Only one stream can be
// open at once.
type PushDevice struct {
	mu     sync.Mutex
	stream *pushStream
	denied bool
}

func NewPushDevice() *PushDevice {
	return &PushDevice{}
}

// Deny makes the next Open calls fail with ErrPermissionDenied.
func (d *PushDevice) Deny(denied bool) {
	d.mu.Lock()
	d.denied = denied
	d.mu.Unlock()
}

func (d *PushDevice) Open(_ context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied {
		return nil, ErrPermissionDenied
	}
	if d.stream != nil && !d.stream.isClosed() {
		return nil, ErrAlreadyRecording
	}
	d.stream = &pushStream{ch: make(chan []byte, pushBuffer)}
	return d.stream, nil
}

// Push hands one chunk to the open stream.
func (d *PushDevice) Push(chunk []byte) error {
	d.mu.Lock()
	s := d.stream
	d.mu.Unlock()
	if s == nil {
		return ErrNotRecording
	}
	return s.push(chunk)
}

type pushStream struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *pushStream) Chunks() <-chan []byte { return s.ch }

func (s *pushStream) push(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotRecording
	}
	s.ch <- append([]byte(nil), chunk...)
	return nil
}

func (s *pushStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *pushStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// FileDevice streams a recorded audio file in fixed-size chunks.
type FileDevice struct {
	Path      string
	ChunkSize int
}

func (d FileDevice) Open(ctx context.Context) (Stream, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("voice: open %s: %w", d.Path, err)
	}
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return newReaderStream(ctx, f, size), nil
}

type readerStream struct {
	ch       chan []byte
	stop     chan struct{}
	done     chan struct{}
	closer   io.Closer
	once     sync.Once
	closeErr error
}

func newReaderStream(ctx context.Context, rc io.ReadCloser, size int) *readerStream {
	s := &readerStream{
		ch:     make(chan []byte),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		closer: rc,
	}
	go s.run(ctx, rc, size)
	return s
}

func (s *readerStream) run(ctx context.Context, r io.Reader, size int) {
	defer close(s.done)
	defer close(s.ch)
	for {
		buf := make([]byte, size)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.ch <- buf[:n]:
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *readerStream) Chunks() <-chan []byte { return s.ch }

func (s *readerStream) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.closeErr = s.closer.Close()
	})
	return s.closeErr
}
