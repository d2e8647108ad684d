package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "")
	t.Setenv("CHAT_TOP_N", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DefaultFaceMatchThreshold, cfg.Verification.FaceMatchThreshold)
	assert.Equal(t, DefaultTopN, cfg.Chat.TopN)
	assert.True(t, cfg.Verification.RejectExpired)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "95")
	t.Setenv("CHAT_TOP_N", "7")
	t.Setenv("VERIFY_STEP_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "localhost:9092, kafka:9092 ,")
	t.Setenv("VERIFY_REJECT_EXPIRED", "false")

	cfg := FromEnv()
	assert.Equal(t, 95.0, cfg.Verification.FaceMatchThreshold)
	assert.Equal(t, 7, cfg.Chat.TopN)
	assert.Equal(t, 3*time.Second, cfg.Verification.StepTimeout)
	assert.Equal(t, []string{"localhost:9092", "kafka:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Verification.RejectExpired)
}
