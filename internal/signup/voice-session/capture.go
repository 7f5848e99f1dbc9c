package voicesession

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CaptureOptions are the preferences passed when acquiring the microphone.
type CaptureOptions struct {
	// Format is empty to let the device choose.
	Format           string
	EchoCancellation bool
	NoiseSuppression bool
}

// Microphone is the recording capability. Acquire fails when access is
// denied.
type Microphone interface {
	Supports(format string) bool
	Acquire(ctx context.Context, opts CaptureOptions) (AudioStream, error)
}

// AudioStream is an exclusively held capture. Next returns io.EOF when the
// source is exhausted. Release stops the hardware and must unblock a
// pending Next.
type AudioStream interface {
	Next() ([]byte, error)
	Format() string
	Release() error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ==========================================================================
// File backed microphone
// ==========================================================================

var extensionFormats = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg;codecs=opus",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
}

// FileMicrophone replays a pre-recorded file as if it were captured live.
type FileMicrophone struct {
	path      string
	format    string
	chunkSize int
}

func NewFileMicrophone(path string) (*FileMicrophone, error) {
	format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported audio file %q", path)
	}
	return &FileMicrophone{path: path, format: format, chunkSize: 16 * 1024}, nil
}

func (m *FileMicrophone) Supports(format string) bool {
	base := func(f string) string { return strings.TrimSpace(strings.SplitN(f, ";", 2)[0]) }
	return base(format) == base(m.format)
}

func (m *FileMicrophone) Acquire(ctx context.Context, opts CaptureOptions) (AudioStream, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = m.format
	}
	return &fileStream{f: f, format: format, buf: make([]byte, m.chunkSize)}, nil
}

type fileStream struct {
	mu       sync.Mutex
	f        *os.File
	format   string
	buf      []byte
	released bool
}

func (s *fileStream) Next() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, io.EOF
	}
	n, err := s.f.Read(s.buf)
	if n > 0 {
		return append([]byte(nil), s.buf[:n]...), nil
	}
	return nil, err
}

func (s *fileStream) Format() string { return s.format }

func (s *fileStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	return s.f.Close()
}
