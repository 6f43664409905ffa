package services

import (
	"net/mail"
	"strings"
)

// NormalizeEmail is the storage form of an address: trimmed and lower-cased.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeAuthEmail returns the normalized address, or "" when it does not parse.
func NormalizeAuthEmail(raw string) string {
	email := NormalizeEmail(raw)
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeUsername(raw string) string {
	return strings.TrimSpace(raw)
}
