package models

import "time"

// Strategy names the intake modality bound to a registration session.
type Strategy string

const (
	StrategyForm    Strategy = "form"
	StrategyChatbot Strategy = "chatbot"
	StrategyVoice   Strategy = "voice"
)

// SessionStatus is the coarse lifecycle shared by every strategy.
type SessionStatus string

const (
	StatusCollecting SessionStatus = "collecting"
	StatusReviewing  SessionStatus = "reviewing"
	StatusSubmitting SessionStatus = "submitting"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// Speaker of a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ConversationTurn is one entry of the append-only chatbot transcript.
type ConversationTurn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
	// Synthetic marks turns produced locally rather than by the service.
	Synthetic bool `json:"synthetic,omitempty"`
}

// AudioCapture is one finalized recording. It is never mutated after
// StopRecording; a retry replaces it.
type AudioCapture struct {
	Data     []byte        `json:"-"`
	Format   string        `json:"format"`
	Duration time.Duration `json:"duration"`
}

// Seconds returns the elapsed recording time in whole seconds.
func (a AudioCapture) Seconds() int {
	return int(a.Duration / time.Second)
}

// Registration is what every strategy hands to the completion listener.
type Registration struct {
	Strategy     Strategy `json:"strategy"`
	Token        string   `json:"token"`
	UserID       string   `json:"user_id,omitempty"`
	Role         Role     `json:"role"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	TempPassword string   `json:"temp_password,omitempty"`
	WorkerID     string   `json:"worker_id,omitempty"`
	Language     string   `json:"language,omitempty"`
	// Login is set when the form completed through the login sub-mode.
	Login bool `json:"login,omitempty"`
}

// DashboardTarget returns which dashboard the caller should route to.
func (r Registration) DashboardTarget() string {
	if r.Role == RoleEmployer {
		return "employer"
	}
	return "worker"
}
