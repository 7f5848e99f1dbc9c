package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/validation"
	"rozgar-signup/internal/models"
)

type transcriptionResponse struct {
	TranscribedText string `json:"transcribed_text"`
	Language        string `json:"language"`
}

// Transcribe uploads one capture and returns the recognized text. The call
// is bounded by the transcription timeout.
func (c *Client) Transcribe(ctx context.Context, capture models.AudioCapture, language string) (string, error) {
	var out transcriptionResponse
	resp, err := c.send(ctx, "audio.transcribe", httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/transcribe",
		Query:  url.Values{"language": {language}},
		File: &httpclient.File{
			Field:       "file",
			Filename:    "recording." + FileExtension(capture.Format),
			ContentType: capture.Format,
			Data:        capture.Data,
		},
		Timeout: c.timeouts.Transcription,
	}, validation.SchemaTranscription, &out)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", statusError("transcription service", resp)
	}
	return strings.TrimSpace(out.TranscribedText), nil
}

// FileExtension maps a container mime type to an upload file extension.
func FileExtension(format string) string {
	base := strings.TrimSpace(strings.SplitN(format, ";", 2)[0])
	switch base {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "wav"
	case "audio/mpeg":
		return "mp3"
	default:
		return "bin"
	}
}
