package controllers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MaxRunListLimit     = 100
	DefaultRunListLimit = 20
)

// RequestValidator centralizes request parameter validation.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// ValidateIntegrationID checks the path parameter is a plausible identifier.
func (v *RequestValidator) ValidateIntegrationID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("integration ID is required")
	}
	if err := v.validate.Var(id, "max=128,printascii"); err != nil {
		return "", fmt.Errorf("invalid integration ID")
	}
	return id, nil
}

// ValidateRunID checks the path parameter is a UUID.
func (v *RequestValidator) ValidateRunID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid run ID")
	}
	return id, nil
}

// ValidateLimit parses the limit query parameter with defaulting and a cap.
func (v *RequestValidator) ValidateLimit(raw string) (int64, error) {
	if raw == "" {
		return DefaultRunListLimit, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > MaxRunListLimit {
		limit = MaxRunListLimit
	}
	return limit, nil
}
