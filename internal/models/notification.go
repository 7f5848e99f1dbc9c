package models

// SMSMessage is a text sent to a registrant's phone.
type SMSMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	SenderID    string `json:"senderId,omitempty"`
}

// RegistrationEvent is published to the workflow engine after completion.
type RegistrationEvent struct {
	UserID      string   `json:"userId"`
	PhoneNumber string   `json:"phoneNumber"`
	Role        Role     `json:"role"`
	Strategy    Strategy `json:"strategy"`
	Language    string   `json:"language"`
}

// ToVariables returns the event as workflow variables.
func (e RegistrationEvent) ToVariables() map[string]interface{} {
	return map[string]interface{}{
		"userId":      e.UserID,
		"phoneNumber": e.PhoneNumber,
		"role":        string(e.Role),
		"strategy":    string(e.Strategy),
		"language":    e.Language,
	}
}
