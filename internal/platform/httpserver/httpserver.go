// Package httpserver builds the API's *http.Server.
package httpserver

import (
	"net/http"
	"time"

	"penny/internal/platform/config"
)

// New builds the server. A verification upload blocks its response on
// three collaborator calls, so the write timeout is sized from the step
// timeout rather than fixed.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      WriteTimeout(cfg),
		IdleTimeout:       2 * time.Minute,
	}
}

// WriteTimeout covers the slower of a full verification run and a chat turn.
func WriteTimeout(cfg config.Server) time.Duration {
	verify := 4*cfg.Verification.StepTimeout + 30*time.Second
	chat := 2*cfg.Chat.StepTimeout + 10*time.Second
	return max(verify, chat, time.Minute)
}
