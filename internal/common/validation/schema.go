package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema names for backend replies.
const (
	SchemaIdentity      = "identity"
	SchemaCurrentUser   = "current_user"
	SchemaProfile       = "profile"
	SchemaTranscription = "transcription"
	SchemaExtraction    = "extraction"
	SchemaConversation  = "conversation"
	SchemaFinalize      = "finalize"

	// SchemaProfileRetryJob is the variables document of a profile replay job.
	SchemaProfileRetryJob = "profile_retry_job"
)

var schemaSources = map[string]string{
	SchemaIdentity: `{
		"type": "object",
		"required": ["token", "user_id", "role"],
		"properties": {
			"token":   {"type": "string", "minLength": 1},
			"user_id": {"type": "string", "minLength": 1},
			"role":    {"type": "string", "enum": ["worker", "employer"]},
			"name":    {"type": "string"}
		}
	}`,
	SchemaCurrentUser: `{
		"type": "object",
		"required": ["user_id", "role"],
		"properties": {
			"user_id":      {"type": "string", "minLength": 1},
			"name":         {"type": "string"},
			"phone_number": {"type": "string"},
			"role":         {"type": "string", "enum": ["worker", "employer"]},
			"language":     {"type": ["string", "null"]}
		}
	}`,
	SchemaProfile: `{
		"type": "object",
		"properties": {
			"message":   {"type": "string"},
			"worker_id": {"type": "string"}
		}
	}`,
	SchemaTranscription: `{
		"type": "object",
		"required": ["transcribed_text"],
		"properties": {
			"transcribed_text": {"type": "string"},
			"language":         {"type": "string"}
		}
	}`,
	SchemaExtraction: `{
		"type": "object",
		"required": ["parsed_data"],
		"properties": {
			"parsed_data": {
				"type": "object",
				"properties": {
					"name":                {"type": ["string", "null"]},
					"phone_number":        {"type": ["string", "number", "null"]},
					"area":                {"type": ["string", "null"]},
					"village":             {"type": ["string", "null"]},
					"district":            {"type": ["string", "null"]},
					"state":               {"type": ["string", "null"]},
					"job_type":            {"type": ["string", "null"]},
					"expected_daily_wage": {"type": ["number", "string", "null"]},
					"skills":              {"type": ["array", "string", "null"]}
				}
			},
			"original_text": {"type": "string"}
		}
	}`,
	SchemaConversation: `{
		"type": "object",
		"required": ["response"],
		"properties": {
			"response":              {"type": "string"},
			"session_id":            {"type": "string"},
			"registration_complete": {"type": "boolean"}
		}
	}`,
	SchemaFinalize: `{
		"type": "object",
		"required": ["token", "temp_password"],
		"properties": {
			"message":       {"type": "string"},
			"token":         {"type": "string", "minLength": 1},
			"temp_password": {"type": "string", "minLength": 1},
			"phone_number":  {"type": "string"},
			"user_id":       {"type": "string"},
			"role":          {"type": "string"}
		}
	}`,
	SchemaProfileRetryJob: `{
		"type": "object",
		"anyOf": [
			{"required": ["pendingId"]},
			{"required": ["userId", "token", "profile"]}
		],
		"properties": {
			"pendingId": {"type": "string", "minLength": 1},
			"userId":    {"type": "string", "minLength": 1},
			"token":     {"type": "string", "minLength": 1},
			"profile": {
				"type": "object",
				"required": ["name", "phone_number"],
				"properties": {
					"name":                {"type": "string", "minLength": 1},
					"phone_number":        {"type": "string", "minLength": 1},
					"expected_daily_wage": {"type": "integer", "minimum": 0},
					"skills":              {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}`,
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, len(schemaSources))
		for name, src := range schemaSources {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = fmt.Errorf("schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// ValidateDocument checks a raw JSON reply against a named schema.
func ValidateDocument(name string, body []byte) (*ValidationResult, error) {
	all, err := schemas()
	if err != nil {
		return nil, err
	}
	schema, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Fields returns the failing field names in order, without duplicates.
func (vr *ValidationResult) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range vr.Errors {
		if !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	return fields
}

func (vr *ValidationResult) add(field, code, message string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Code: code, Message: message})
	vr.Valid = false
}
