package service

import "fmt"

// ValidationError is returned when request data fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// VerificationError is returned when a submission fails the CAPTCHA check.
type VerificationError struct {
	Reason string
	Score  float64
}

func (e *VerificationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("captcha verification failed: %s", e.Reason)
	}
	return "captcha verification failed"
}
