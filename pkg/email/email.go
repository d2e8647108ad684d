// Package email normalizes and validates customer email addresses, which are
// the account key.
package email

import (
	"net/mail"
	"strings"
	"unicode"

	dErrors "penny/pkg/domain-errors"
)

const maxLength = 254

// Normalize trims and lower-cases an address so the same mailbox always maps
// to the same account key.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Validate normalizes addr and checks it is a single bare address.
func Validate(addr string) (string, error) {
	addr = Normalize(addr)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(addr) > maxLength {
		return "", dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || parsed.Name != "" {
		return "", dErrors.New(dErrors.CodeValidation, "email address is not valid")
	}
	at := strings.LastIndexByte(addr, '@')
	if !strings.Contains(addr[at+1:], ".") {
		return "", dErrors.New(dErrors.CodeValidation, "email address is not valid")
	}
	return addr, nil
}

// DeriveNameFromEmail guesses a display name from the local part, used when
// no extracted name is available.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Customer", ""
	}

	first := capitalize(parts[0])
	last := ""
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
