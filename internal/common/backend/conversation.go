package backend

import (
	"context"
	"net/http"
	"net/url"

	"rozgar-signup/internal/common/errors"
	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/validation"
)

type conversationRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Language  string `json:"language"`
}

type conversationResponse struct {
	Response             string `json:"response"`
	SessionID            string `json:"session_id"`
	RegistrationComplete *bool  `json:"registration_complete"`
}

// Exchange sends one user turn. Only the transport default timeout applies.
func (c *Client) Exchange(ctx context.Context, sessionID, message, language string) (*ConversationReply, error) {
	var out conversationResponse
	resp, err := c.send(ctx, "chatbot.conversation", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/chatbot/conversation",
		JSON:    conversationRequest{SessionID: sessionID, Message: message, Language: language},
		Timeout: c.timeouts.Conversation,
	}, validation.SchemaConversation, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("conversation service", resp)
	}
	return &ConversationReply{
		Text:      out.Response,
		SessionID: out.SessionID,
		Complete:  out.RegistrationComplete,
	}, nil
}

// Finalize asks the conversation service to create the identity gathered
// during the dialogue.
func (c *Client) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	var out FinalizeResult
	resp, err := c.send(ctx, "chatbot.complete_registration", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/chatbot/complete-registration",
		Query:   url.Values{"session_id": {sessionID}},
		Timeout: c.timeouts.Account,
	}, validation.SchemaFinalize, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		switch {
		case resp.Status == http.StatusNotFound:
			return nil, errors.NewSessionNotFoundError(sessionID)
		case isDuplicate(resp):
			return nil, errors.NewDuplicateRegistrationError(resp.Detail())
		case resp.Status == http.StatusBadRequest:
			return nil, errors.NewIncompleteDataError([]string{"name", "phone_number"}).
				WithMetadata("detail", resp.Detail())
		}
		return nil, statusError("conversation service", resp)
	}
	return &out, nil
}
