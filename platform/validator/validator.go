// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Channels accepted on inbound message payloads.
var channels = map[string]bool{"whatsapp": true, "sms": true, "email": true, "instagram": true, "facebook": true, "webchat": true}

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the "channel" rule registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		value := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		return value == "" || channels[value]
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}
