package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/validation"
	"rozgar-signup/internal/models"
)

type extractionRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type extractionResponse struct {
	ParsedData   parsedData `json:"parsed_data"`
	OriginalText string     `json:"original_text"`
}

// parsedData tolerates the loose typing of the NLP endpoint: numbers may come
// back as strings and skills as a comma separated string.
type parsedData struct {
	Name              *string         `json:"name"`
	PhoneNumber       json.RawMessage `json:"phone_number"`
	Area              *string         `json:"area"`
	Village           *string         `json:"village"`
	District          *string         `json:"district"`
	State             *string         `json:"state"`
	JobType           *string         `json:"job_type"`
	ExpectedDailyWage json.RawMessage `json:"expected_daily_wage"`
	Skills            json.RawMessage `json:"skills"`
}

// Extract sends free text to the field extractor and normalizes the reply
// into a partial registrant. Any field may be empty.
func (c *Client) Extract(ctx context.Context, text, language string) (models.Registrant, error) {
	var out extractionResponse
	resp, err := c.send(ctx, "audio.parse_registration", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/audio/parse-registration",
		JSON:    extractionRequest{Text: text, Language: language},
		Timeout: c.timeouts.Extraction,
	}, validation.SchemaExtraction, &out)
	if err != nil {
		return models.Registrant{}, err
	}
	if !resp.OK() {
		return models.Registrant{}, statusError("field extractor", resp)
	}
	return out.ParsedData.registrant(), nil
}

func (p parsedData) registrant() models.Registrant {
	r := models.Registrant{
		Name:        str(p.Name),
		PhoneNumber: digitsOrString(p.PhoneNumber),
		Area:        str(p.Area),
		District:    str(p.District),
		State:       str(p.State),
	}
	if r.Area == "" {
		r.Area = str(p.Village)
	}
	if jt, ok := models.ParseJobType(str(p.JobType)); ok {
		r.JobType = jt
	}
	if wage, ok := parseWage(p.ExpectedDailyWage); ok {
		r.ExpectedDailyWage = wage
	}
	r.Skills = parseSkills(p.Skills)
	return r
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func digitsOrString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func parseWage(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f > 0 {
			return int(math.Round(f)), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, s)
		var n int
		if _, err := fmt.Sscanf(digits, "%d", &n); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func parseSkills(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := []string{}
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.ParseSkills(s)
	}
	return []string{}
}
