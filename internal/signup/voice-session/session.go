// Package voicesession drives registration from a spoken description:
// record, transcribe, extract the fields, confirm and submit.
package voicesession

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/session"
)

type Session struct {
	mu      sync.Mutex
	id      string
	cfg     Config
	deps    Dependencies
	tracker *session.Tracker

	state      State
	rec        *recording
	capture    *models.AudioCapture
	transcript string
	registrant *models.Registrant
	err        error
	cancel     context.CancelFunc
	closed     bool
}

func New(cfg Config, deps Dependencies) *Session {
	if deps.NewTicker == nil {
		deps.NewTicker = newTimeTicker
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		tracker: session.NewTracker(id, models.StrategyVoice, deps.Logger),
		state:   StateIdle,
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Strategy() models.Strategy { return models.StrategyVoice }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() models.SessionStatus {
	switch s.State() {
	case StateReviewing:
		return models.StatusReviewing
	case StateSubmitting:
		return models.StatusSubmitting
	case StateCompleted:
		return models.StatusCompleted
	case StateFailed:
		return models.StatusFailed
	default:
		return models.StatusCollecting
	}
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) ErrorMessage() string {
	return session.Message(s.deps.Locale, s.Err())
}

func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Capture returns the finalized recording, if any.
func (s *Session) Capture() *models.AudioCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil
	}
	c := *s.capture
	return &c
}

// Registrant returns the extracted fields, if extraction succeeded.
func (s *Session) Registrant() *models.Registrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registrant == nil {
		return nil
	}
	r := s.registrant.Clone()
	return &r
}

// Elapsed is the running recording time in whole seconds.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	rec := s.rec
	s.mu.Unlock()
	if rec == nil {
		return 0
	}
	return rec.seconds()
}

// CanComplete reports whether the complete action is enabled: the session is
// reviewing a registrant that carries a name and a phone number.
func (s *Session) CanComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canComplete()
}

func (s *Session) canComplete() bool {
	return transitions.Allows(s.state, EventComplete) && s.registrant != nil && s.registrant.Submittable()
}

// IncompleteNotice is the message shown while reviewing a registrant that
// cannot be completed, or "".
func (s *Session) IncompleteNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing || s.registrant == nil || s.registrant.Submittable() {
		return ""
	}
	return i18n.Message(session.Language(s.deps.Locale), i18n.KeyIncompleteNotice)
}

// ==========================================================================
// Recording
// ==========================================================================

// StartRecording acquires the microphone and starts buffering. A denied
// capability leaves the session idle with a CAPABILITY_DENIED error.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.NewInvalidTransitionError("voice session", "closed", string(EventStart))
	}
	if !transitions.Allows(s.state, EventStart) {
		return errors.NewInvalidTransitionError("voice session", string(s.state), string(EventStart))
	}

	opts := CaptureOptions{
		Format:           s.chooseFormat(),
		EchoCancellation: s.cfg.EchoCancellation,
		NoiseSuppression: s.cfg.NoiseSuppression,
	}
	stream, err := s.deps.Microphone.Acquire(ctx, opts)
	if err != nil {
		s.err = errors.NewCapabilityDeniedError(err)
		s.tracker.Logger().Warn("Microphone unavailable", map[string]interface{}{"error": err.Error()})
		return s.err
	}

	format := stream.Format()
	if format == "" {
		format = opts.Format
	}
	s.err = nil
	s.rec = newRecording(stream, format)
	_ = s.fire(EventStart)

	rec := s.rec
	rec.wg.Add(2)
	go s.read(rec)
	go s.tick(rec, s.deps.NewTicker(s.cfg.TickInterval))
	return nil
}

func (s *Session) chooseFormat() string {
	for _, f := range s.cfg.Formats {
		if s.deps.Microphone.Supports(f) {
			return f
		}
	}
	return ""
}

func (s *Session) read(rec *recording) {
	var failure error
	defer func() {
		rec.wg.Done()
		if failure != nil {
			s.abort(rec, failure)
		}
	}()

	for {
		chunk, err := rec.stream.Next()
		if len(chunk) > 0 {
			rec.append(chunk)
		}
		if err == nil {
			continue
		}
		if !stderrors.Is(err, io.EOF) && !rec.stopped() {
			failure = err
		}
		return
	}
}

func (s *Session) tick(rec *recording, t Ticker) {
	defer rec.wg.Done()
	defer t.Stop()
	for {
		select {
		case <-rec.done:
			return
		case <-t.C():
			n := rec.advance()
			if s.deps.OnTick != nil {
				s.deps.OnTick(n)
			}
		}
	}
}

// abort ends a recording that lost its stream.
func (s *Session) abort(rec *recording, cause error) {
	s.mu.Lock()
	if s.rec != rec {
		s.mu.Unlock()
		return
	}
	s.rec = nil
	_ = s.fire(EventAbort)
	s.err = errors.NewCapabilityDeniedError(cause)
	s.mu.Unlock()

	rec.stop()
	s.tracker.Logger().Warn("Recording aborted", map[string]interface{}{"error": cause.Error()})
}

// StopRecording finalizes the capture, releases the microphone and runs
// the transcription and extraction pipeline. Every pipeline outcome ends in
// reviewing; a failed extraction keeps the transcript.
func (s *Session) StopRecording(ctx context.Context) (*models.Registrant, error) {
	s.mu.Lock()
	if err := s.fire(EventStop); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rec := s.rec
	s.rec = nil
	s.mu.Unlock()

	capture := rec.finish()

	s.mu.Lock()
	s.capture = &capture
	s.transcript = ""
	s.registrant = nil
	ctx, done := s.begin(ctx)
	lang := session.Language(s.deps.Locale)
	s.mu.Unlock()
	defer done()

	return s.process(ctx, capture, lang)
}

func (s *Session) process(ctx context.Context, capture models.AudioCapture, lang string) (*models.Registrant, error) {
	text, err := s.transcribe(ctx, capture, lang)
	if err != nil {
		return nil, s.pipelineFailed("transcription", err)
	}

	s.mu.Lock()
	s.transcript = text
	if err := s.fire(EventTranscribed); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	partial, err := s.extract(ctx, text, lang)
	if err != nil {
		return nil, s.pipelineFailed("extraction", err)
	}

	r := models.Registrant{Language: lang}
	r.Merge(partial)
	r.ApplyDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventExtracted); err != nil {
		return nil, err
	}
	s.registrant = &r
	if !r.Submittable() {
		s.err = errors.NewIncompleteDataError(r.MissingRequired())
	}
	out := r.Clone()
	return &out, nil
}

func (s *Session) transcribe(ctx context.Context, capture models.AudioCapture, lang string) (string, error) {
	if s.cfg.TranscriptionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TranscriptionTimeout)
		defer cancel()
	}
	start := time.Now()
	text, err := s.deps.Transcriber.Transcribe(ctx, capture, lang)
	metrics.ObserveCall("audio.transcribe", start, err)
	return text, timeoutAware("transcription service", ctx, err)
}

func (s *Session) extract(ctx context.Context, text, lang string) (models.Registrant, error) {
	if s.cfg.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ExtractionTimeout)
		defer cancel()
	}
	start := time.Now()
	r, err := s.deps.Extractor.Extract(ctx, text, lang)
	metrics.ObserveCall("audio.parse_registration", start, err)
	return r, timeoutAware("extraction service", ctx, err)
}

// timeoutAware reports an expired session deadline as a timeout even when
// the collaborator returned a bare context error.
func timeoutAware(service string, ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(service, err)
	}
	return errors.NewTransportError(service, err)
}

func (s *Session) pipelineFailed(step string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.fire(EventPipelineFailed)
	s.err = err
	s.tracker.Logger().Warn("Voice pipeline failed", map[string]interface{}{
		"step":  step,
		"error": err.Error(),
	})
	return err
}

// ==========================================================================
// Completion
// ==========================================================================

// CompleteRegistration registers the reviewed registrant with a temporary
// password taken from the last six digits of the phone number.
func (s *Session) CompleteRegistration(ctx context.Context) (*models.Registration, error) {
	s.mu.Lock()
	if !transitions.Allows(s.state, EventComplete) {
		state := s.state
		s.mu.Unlock()
		return nil, errors.NewInvalidTransitionError("voice session", string(state), string(EventComplete))
	}
	if s.registrant == nil || !s.registrant.Submittable() {
		var missing []string
		if s.registrant == nil {
			missing = []string{"name", "phone_number"}
		} else {
			missing = s.registrant.MissingRequired()
		}
		s.err = errors.NewIncompleteDataError(missing)
		s.mu.Unlock()
		return nil, s.err
	}

	r := s.registrant.Clone()
	password, err := models.TempPassword(r.PhoneNumber)
	if err != nil {
		s.err = errors.NewValidationError("phone_number", err.Error())
		s.mu.Unlock()
		return nil, s.err
	}
	r.Password = password
	r.Language = session.Language(s.deps.Locale)

	_ = s.fire(EventComplete)
	s.err = nil
	ctx, done := s.begin(ctx)
	s.mu.Unlock()
	defer done()

	res, err := s.deps.Submitter.Submit(ctx, r)

	s.mu.Lock()
	closed := s.closed
	if err != nil {
		s.err = err
		_ = s.fire(EventFailed)
		s.tracker.Failed(err)
		s.mu.Unlock()
		return nil, err
	}
	_ = s.fire(EventSucceeded)
	s.mu.Unlock()

	// a profile replay reports the registrant its identity was created for
	used := res.Registrant
	reg := models.Registration{
		Strategy:     models.StrategyVoice,
		Token:        res.Identity.Token,
		UserID:       res.Identity.UserID,
		Role:         used.Role,
		PhoneNumber:  used.PhoneNumber,
		TempPassword: used.Password,
		Language:     used.Language,
	}
	if res.Profile != nil {
		reg.WorkerID = res.Profile.WorkerID
	}

	if !closed && s.deps.OnComplete != nil {
		s.deps.OnComplete(ctx, reg)
	}
	return &reg, nil
}

// Retry discards the capture, the transcript, every extracted field and any
// partial submission, and returns to idle. A recorded partial profile is
// left to the recovery outbox.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventRetry); err != nil {
		return err
	}
	s.capture = nil
	s.transcript = ""
	s.registrant = nil
	s.err = nil
	s.deps.Submitter.Reset()
	return nil
}

// Close tears the session down from any state: the microphone is released,
// the timer stopped and in-flight calls cancelled.
func (s *Session) Close() error {
	s.mu.Lock()
	rec := s.rec
	s.rec = nil
	if rec != nil {
		_ = s.fire(EventAbort)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.closed = true
	s.mu.Unlock()

	if rec != nil {
		return rec.stop()
	}
	return nil
}

// begin derives a context that Close cancels. Callers hold s.mu.
func (s *Session) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx, func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}
}

func (s *Session) fire(ev Event) error {
	to, err := transitions.Next("voice session", s.state, ev)
	if err != nil {
		return err
	}
	if to != s.state {
		s.tracker.Transition(string(s.state), string(to), string(ev))
	}
	s.state = to
	return nil
}

// ==========================================================================
// Recording buffer
// ==========================================================================

type recording struct {
	stream AudioStream
	format string

	done     chan struct{}
	stopOnce sync.Once
	release  sync.Once
	relErr   error
	wg       sync.WaitGroup

	mu      sync.Mutex
	chunks  [][]byte
	elapsed int
}

func newRecording(stream AudioStream, format string) *recording {
	return &recording{stream: stream, format: format, done: make(chan struct{})}
}

func (r *recording) append(chunk []byte) {
	r.mu.Lock()
	r.chunks = append(r.chunks, chunk)
	r.mu.Unlock()
}

func (r *recording) advance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elapsed++
	return r.elapsed
}

func (r *recording) seconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *recording) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// stop ends the timer, releases the stream exactly once and waits for the
// reader and the timer to exit.
func (r *recording) stop() error {
	r.stopOnce.Do(func() { close(r.done) })
	r.release.Do(func() { r.relErr = r.stream.Release() })
	r.wg.Wait()
	return r.relErr
}

// finish stops the recording and returns it as one immutable capture.
func (r *recording) finish() models.AudioCapture {
	_ = r.stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.AudioCapture{
		Data:     bytes.Join(r.chunks, nil),
		Format:   r.format,
		Duration: time.Duration(r.elapsed) * time.Second,
	}
}
