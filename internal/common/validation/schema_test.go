package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/models"
)

// ==========================================================================
// Reply Schemas
// ==========================================================================

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		body   string
		valid  bool
	}{
		{"identity ok", SchemaIdentity, `{"token":"t","user_id":"u","role":"worker"}`, true},
		{"identity missing token", SchemaIdentity, `{"user_id":"u","role":"worker"}`, false},
		{"identity bad role", SchemaIdentity, `{"token":"t","user_id":"u","role":"admin"}`, false},
		{"extraction with nulls", SchemaExtraction, `{"parsed_data":{"name":"Ram","phone_number":null,"expected_daily_wage":600}}`, true},
		{"extraction missing parsed_data", SchemaExtraction, `{"original_text":"x"}`, false},
		{"conversation flag", SchemaConversation, `{"response":"hi","registration_complete":true}`, true},
		{"conversation flag wrong type", SchemaConversation, `{"response":"hi","registration_complete":"yes"}`, false},
		{"finalize ok", SchemaFinalize, `{"token":"t","temp_password":"543210","phone_number":"9876543210"}`, true},
		{"transcription missing text", SchemaTranscription, `{"language":"hi"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateDocument(tt.schema, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
		})
	}
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	_, err := ValidateDocument("nope", []byte(`{}`))
	assert.Error(t, err)
}

// ==========================================================================
// Registration Fields
// ==========================================================================

func TestValidateRegistration(t *testing.T) {
	worker := models.Registrant{
		Name:              "Ram",
		PhoneNumber:       "9876543210",
		Password:          "secret",
		Role:              models.RoleWorker,
		Area:              "Rampur",
		District:          "Varanasi",
		State:             "UP",
		JobType:           models.JobMason,
		ExpectedDailyWage: 600,
	}

	t.Run("complete worker", func(t *testing.T) {
		assert.True(t, ValidateRegistration(worker).Valid)
	})

	t.Run("worker missing locality", func(t *testing.T) {
		r := worker
		r.Area, r.District = "", ""
		vr := ValidateRegistration(r)
		assert.False(t, vr.Valid)
		assert.Equal(t, []string{"area", "district"}, vr.Fields())
	})

	t.Run("worker zero wage", func(t *testing.T) {
		r := worker
		r.ExpectedDailyWage = 0
		vr := ValidateRegistration(r)
		assert.True(t, vr.HasErrors("expected_daily_wage"))
	})

	t.Run("employer needs only identity", func(t *testing.T) {
		r := models.Registrant{Name: "Shyam", PhoneNumber: "9876543211", Password: "pw", Role: models.RoleEmployer}
		assert.True(t, ValidateRegistration(r).Valid)
	})

	t.Run("employer missing name", func(t *testing.T) {
		r := models.Registrant{PhoneNumber: "9876543211", Password: "pw", Role: models.RoleEmployer}
		assert.Equal(t, []string{"name"}, ValidateRegistration(r).Fields())
	})

	t.Run("short phone", func(t *testing.T) {
		r := worker
		r.PhoneNumber = "12345"
		assert.True(t, ValidateRegistration(r).HasErrors("phone_number"))
	})
}

func TestValidateCredentials(t *testing.T) {
	assert.True(t, ValidateCredentials(models.Credentials{PhoneNumber: "9876543210", Password: "x"}).Valid)
	assert.Equal(t, []string{"password"}, ValidateCredentials(models.Credentials{PhoneNumber: "9876543210"}).Fields())
}
