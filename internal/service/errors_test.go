package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/formrelay/internal/service"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *service.ValidationError
		expected string
	}{
		{
			name:     "with field and message",
			err:      &service.ValidationError{Field: "email", Message: "Name and email are required fields"},
			expected: `validation error for "email": Name and email are required fields`,
		},
		{
			name:     "without field - returns message only",
			err:      &service.ValidationError{Field: "", Message: "invalid request body"},
			expected: "invalid request body",
		},
		{
			name:     "empty message with field",
			err:      &service.ValidationError{Field: "contactNumber", Message: ""},
			expected: `validation error for "contactNumber": `,
		},
		{
			name:     "both empty",
			err:      &service.ValidationError{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestVerificationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *service.VerificationError
		expected string
	}{
		{
			name:     "with reason",
			err:      &service.VerificationError{Reason: "score 0.10 below threshold 0.50", Score: 0.1},
			expected: "captcha verification failed: score 0.10 below threshold 0.50",
		},
		{
			name:     "without reason",
			err:      &service.VerificationError{},
			expected: "captcha verification failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrors_implement_error(t *testing.T) {
	var err error = &service.ValidationError{Field: "x", Message: "bad"}
	assert.Error(t, err)
	err = &service.VerificationError{Reason: "bad"}
	assert.Error(t, err)
}
