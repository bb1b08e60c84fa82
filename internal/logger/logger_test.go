package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantlink/internal/config"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"user_id", "u-1",
		"token", "ExponentPushToken[abcdefghijkl]",
		"smtp_password", "hunter2",
		"dangling",
	})

	require.Len(t, out, 7)
	assert.Equal(t, "u-1", out[1])
	assert.Equal(t, "***hijkl]", out[3])
	assert.Equal(t, "[REDACTED]", out[5])
	assert.Equal(t, "dangling", out[6])
}

func TestMaskToken_Short(t *testing.T) {
	assert.Equal(t, "***", maskToken("abc"))
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "loud", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.False(t, log.SugaredLogger.Desugar().Core().Enabled(-1))
}
