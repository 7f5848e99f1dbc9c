package chatbotsession

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/backend/backendtest"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
)

func newSession(t *testing.T, lang string) (*Session, *backendtest.Conversation, *[]models.Registration) {
	conv := &backendtest.Conversation{}
	var completed []models.Registration
	s := New(Dependencies{
		Conversation: conv,
		Locale:       i18n.NewLocale(lang),
		Logger:       logger.NewTestLogger(t),
		OnComplete: func(ctx context.Context, reg models.Registration) {
			completed = append(completed, reg)
		},
	})
	return s, conv, &completed
}

func reply(text string) *backend.ConversationReply {
	return &backend.ConversationReply{Text: text}
}

func TestNew_GreetsInActiveLanguage(t *testing.T) {
	s, _, _ := newSession(t, "hi")

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, models.SpeakerAssistant, turns[0].Speaker)
	assert.Equal(t, i18n.Greeting("hi"), turns[0].Text)
	assert.Equal(t, StateGreeting, s.State())
	assert.Regexp(t, regexp.MustCompile(`^session_\d+_[0-9a-f]{9}$`), s.ID())
}

func TestNewSessionID_Unique(t *testing.T) {
	now := time.Now()
	assert.NotEqual(t, NewSessionID(now), NewSessionID(now))
}

// ==========================================================================
// SendTurn
// ==========================================================================

func TestSendTurn_AppendsTwoTurnsInOrder(t *testing.T) {
	s, conv, _ := newSession(t, "en")
	conv.On("Exchange", mock.Anything, s.ID(), "Ram", "en").Return(reply("Thanks Ram. Your phone number?"), nil).Once()
	conv.On("Exchange", mock.Anything, s.ID(), "9876543210", "en").Return(reply("Which village?"), nil).Once()

	_, err := s.SendTurn(context.Background(), "Ram")
	require.NoError(t, err)
	assert.Len(t, s.Turns(), 3)
	assert.Equal(t, StateCollecting, s.State())

	_, err = s.SendTurn(context.Background(), "9876543210")
	require.NoError(t, err)

	turns := s.Turns()
	require.Len(t, turns, 5)
	assert.Equal(t, []string{
		i18n.Greeting("en"), "Ram", "Thanks Ram. Your phone number?", "9876543210", "Which village?",
	}, []string{turns[0].Text, turns[1].Text, turns[2].Text, turns[3].Text, turns[4].Text})
	assert.Equal(t, models.SpeakerUser, turns[3].Speaker)
	assert.False(t, s.CanComplete())
}

func TestSendTurn_FailureAppendsSyntheticErrorTurn(t *testing.T) {
	s, conv, _ := newSession(t, "en")
	conv.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.NewTransportError("conversation service", fmt.Errorf("connection refused"))).Once()

	before := len(s.Turns())
	_, err := s.SendTurn(context.Background(), "Ram")
	require.Error(t, err)

	turns := s.Turns()
	assert.Len(t, turns, before+2)
	last := turns[len(turns)-1]
	assert.True(t, last.Synthetic)
	assert.Equal(t, i18n.Message("en", i18n.KeyChatError), last.Text)
	assert.Equal(t, StateCollecting, s.State())

	// retryable
	conv.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(reply("ok"), nil).Once()
	_, err = s.SendTurn(context.Background(), "Ram")
	require.NoError(t, err)
	assert.Len(t, s.Turns(), before+4)
}

func TestSendTurn_RejectsEmptyAndConcurrent(t *testing.T) {
	s, conv, _ := newSession(t, "en")

	_, err := s.SendTurn(context.Background(), "   ")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	release := make(chan struct{})
	entered := make(chan struct{})
	conv.On("Exchange", mock.Anything, mock.Anything, "first", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(reply("ok"), nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.SendTurn(context.Background(), "first")
	}()
	<-entered

	_, err = s.SendTurn(context.Background(), "second")
	assert.True(t, errors.HasCode(err, errors.ErrCodeTurnInProgress))

	close(release)
	wg.Wait()
	assert.Len(t, s.Turns(), 3)
}

// ==========================================================================
// Completion detection
// ==========================================================================

func TestCompletionDetection(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name   string
		lang   string
		reply  *backend.ConversationReply
		review bool
	}{
		{"english marker", "en", reply("Your registration is COMPLETE."), true},
		{"hindi marker", "hi", reply("आपका पंजीकरण सफल रहा"), true},
		{"no marker", "en", reply("What is your district?"), false},
		{"negated marker", "en", reply("Your registration is incomplete, what is your phone number?"), false},
		{"hindi marker in english session", "en", reply("पंजीकरण पूर्ण हुआ"), true},
		{"explicit flag wins over text", "en", &backend.ConversationReply{Text: "almost complete", Complete: &no}, false},
		{"explicit flag without marker", "en", &backend.ConversationReply{Text: "Thank you", Complete: &yes}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, conv, _ := newSession(t, tt.lang)
			conv.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.reply, nil)

			_, err := s.SendTurn(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.review, s.State() == StateReviewing)
			assert.Equal(t, tt.review, s.CanComplete())
		})
	}
}

func TestSendTurn_RejectedWhileReviewing(t *testing.T) {
	s, conv, _ := newSession(t, "en")
	conv.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(reply("Registration complete"), nil).Once()

	_, err := s.SendTurn(context.Background(), "done")
	require.NoError(t, err)
	count := len(s.Turns())

	_, err = s.SendTurn(context.Background(), "one more")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))
	assert.Len(t, s.Turns(), count)
	conv.AssertNumberOfCalls(t, "Exchange", 1)
}

// ==========================================================================
// CompleteRegistration
// ==========================================================================

func toReviewing(t *testing.T, s *Session, conv *backendtest.Conversation) {
	t.Helper()
	conv.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(reply("registration complete"), nil).Once()
	_, err := s.SendTurn(context.Background(), "yes")
	require.NoError(t, err)
	require.Equal(t, StateReviewing, s.State())
}

func TestCompleteRegistration(t *testing.T) {
	s, conv, completed := newSession(t, "en")
	toReviewing(t, s, conv)

	conv.On("Finalize", mock.Anything, s.ID()).Return(&backend.FinalizeResult{
		Token: "tok", TempPassword: "543210", PhoneNumber: "9876543210",
	}, nil).Once()

	reg, err := s.CompleteRegistration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "543210", reg.TempPassword)
	assert.Equal(t, models.RoleWorker, reg.Role)
	assert.Equal(t, StateCompleted, s.State())
	require.Len(t, *completed, 1)
	assert.Equal(t, "tok", (*completed)[0].Token)
}

func TestCompleteRegistration_FailureKeepsTurnsAndRetries(t *testing.T) {
	s, conv, completed := newSession(t, "en")
	toReviewing(t, s, conv)
	turns := s.Turns()

	conv.On("Finalize", mock.Anything, s.ID()).Return(nil, errors.NewServiceError("conversation service", 500, "boom")).Once()
	_, err := s.CompleteRegistration(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, turns, s.Turns())
	assert.True(t, s.CanComplete())

	conv.On("Finalize", mock.Anything, s.ID()).Return(&backend.FinalizeResult{Token: "tok", TempPassword: "543210"}, nil).Once()
	_, err = s.CompleteRegistration(context.Background())
	require.NoError(t, err)
	assert.Len(t, *completed, 1)
}

func TestCompleteRegistration_NotBeforeReviewing(t *testing.T) {
	s, conv, _ := newSession(t, "en")

	_, err := s.CompleteRegistration(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))
	conv.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything)
}

func TestClose_SuppressesCompletion(t *testing.T) {
	s, conv, completed := newSession(t, "en")
	toReviewing(t, s, conv)
	require.NoError(t, s.Close())

	conv.On("Finalize", mock.Anything, mock.Anything).Return(&backend.FinalizeResult{Token: "tok", TempPassword: "x"}, nil)
	_, err := s.CompleteRegistration(context.Background())
	require.NoError(t, err)
	assert.Empty(t, *completed)
}
