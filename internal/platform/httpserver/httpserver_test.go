package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"penny/internal/platform/config"
)

func TestWriteTimeoutCoversVerification(t *testing.T) {
	cfg := config.Server{Addr: ":0"}
	cfg.Verification.StepTimeout = 15 * time.Second
	cfg.Chat.StepTimeout = 20 * time.Second

	srv := New(cfg, http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 90*time.Second, srv.WriteTimeout)
}

func TestWriteTimeoutFloor(t *testing.T) {
	assert.Equal(t, time.Minute, WriteTimeout(config.Server{}))
}
