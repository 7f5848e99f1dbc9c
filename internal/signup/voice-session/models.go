package voicesession

import (
	"time"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/signup/session"
	"rozgar-signup/internal/signup/submission"
)

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateExtracting   State = "extracting"
	StateReviewing    State = "reviewing"
	StateSubmitting   State = "submitting"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

type Event string

const (
	EventStart          Event = "start_recording"
	EventStop           Event = "stop_recording"
	EventAbort          Event = "abort_recording"
	EventTranscribed    Event = "transcribed"
	EventExtracted      Event = "extracted"
	EventPipelineFailed Event = "pipeline_failed"
	EventComplete       Event = "complete_registration"
	EventSucceeded      Event = "succeeded"
	EventFailed         Event = "failed"
	EventRetry          Event = "retry"
)

var transitions = session.Table[State, Event]{
	StateIdle: {
		EventStart: StateRecording,
		EventRetry: StateIdle,
	},
	StateRecording: {
		EventStop:  StateTranscribing,
		EventAbort: StateIdle,
	},
	StateTranscribing: {
		EventTranscribed:    StateExtracting,
		EventPipelineFailed: StateReviewing,
	},
	StateExtracting: {
		EventExtracted:      StateReviewing,
		EventPipelineFailed: StateReviewing,
	},
	StateReviewing: {
		EventComplete: StateSubmitting,
		EventRetry:    StateIdle,
	},
	StateSubmitting: {
		EventSucceeded: StateCompleted,
		EventFailed:    StateFailed,
	},
	StateFailed: {
		EventComplete: StateSubmitting,
		EventRetry:    StateIdle,
	},
}

type Config struct {
	// Formats is the container preference order; the first one the
	// microphone supports wins, else the device default is used.
	Formats              []string
	EchoCancellation     bool
	NoiseSuppression     bool
	TickInterval         time.Duration
	TranscriptionTimeout time.Duration
	ExtractionTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Formats:              []string{"audio/webm;codecs=opus", "audio/webm", "audio/ogg;codecs=opus", "audio/mp4", "audio/wav"},
		EchoCancellation:     true,
		NoiseSuppression:     true,
		TickInterval:         time.Second,
		TranscriptionTimeout: 45 * time.Second,
		ExtractionTimeout:    30 * time.Second,
	}
}

type Dependencies struct {
	Microphone  Microphone
	Transcriber backend.Transcriber
	Extractor   backend.Extractor
	Submitter   *submission.Submitter
	Locale      *i18n.Locale
	Logger      logger.Logger
	OnComplete  session.CompletionFunc
	// OnTick receives the elapsed recording time in whole seconds.
	OnTick func(seconds int)
	// NewTicker defaults to a time.Ticker.
	NewTicker func(d time.Duration) Ticker
}
