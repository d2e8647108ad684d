package handler

import (
	"penny/pkg/email"
)

// StartSessionRequest is the body of POST /session.
type StartSessionRequest struct {
	Email string `json:"email"`
}

// Validate normalizes the email and checks its shape.
func (r *StartSessionRequest) Validate() error {
	normalized, err := email.Validate(r.Email)
	if err != nil {
		return err
	}
	r.Email = normalized
	return nil
}
