package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapAdapter(zap.New(core)), logs
}

func TestFields_RedactSecrets(t *testing.T) {
	log, logs := observed()

	log.Info("Registration completed", map[string]interface{}{
		"userId":       "u-1",
		"token":        "eyJhbGciOi...",
		"tempPassword": "543210",
		"phone":        "9876543210",
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "u-1", ctx["userId"])
	assert.Equal(t, "[REDACTED]", ctx["token"])
	assert.Equal(t, "[REDACTED]", ctx["tempPassword"])
	assert.Equal(t, "******3210", ctx["phone"])
}

func TestWith_CarriesFields(t *testing.T) {
	log, logs := observed()

	log.With(map[string]interface{}{"sessionId": "s-1"}).Warn("Turn failed", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "s-1", logs.All()[0].ContextMap()["sessionId"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestMapToZapFields_Sorted(t *testing.T) {
	fields := mapToZapFields(map[string]interface{}{"b": 1, "a": 2, "c": 3})

	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "c", fields[2].Key)
	assert.Nil(t, mapToZapFields(nil))
}

func TestMaskPhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":    "******3210",
		"+919876543210": "*********3210",
		"123":           "***",
		"******3210":    "******3210",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskPhone(in), in)
	}
}

func TestNewWithOutput_Levels(t *testing.T) {
	l := NewWithOutput("warn", "json", "stderr")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
