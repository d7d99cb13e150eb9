package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(zerolog.New(&buf), "repair")

	log.Info().Str("account_id", "acc_1").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "repair", entry["component"])
	assert.Equal(t, "acc_1", entry["account_id"])
	assert.Equal(t, "hello", entry["message"])
}

func TestFromContext(t *testing.T) {
	var stored, fallback bytes.Buffer
	reqLog := zerolog.New(&stored).With().Str("request_id", "req-1").Logger()

	t.Run("request logger", func(t *testing.T) {
		ctx := WithContext(context.Background(), reqLog)
		l := FromContext(ctx, zerolog.New(&fallback))
		l.Info().Msg("inside")

		assert.Contains(t, stored.String(), `"request_id":"req-1"`)
		assert.Empty(t, fallback.String())
	})

	t.Run("fallback", func(t *testing.T) {
		l := FromContext(context.Background(), zerolog.New(&fallback))
		l.Info().Msg("outside")

		assert.Contains(t, fallback.String(), "outside")
	})
}
