// Package captcha verifies reCAPTCHA tokens submitted with website forms.
package captcha

import "context"

// Result is the outcome of a token verification.
type Result struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
}

// Verifier checks a client-side CAPTCHA token.
type Verifier interface {
	// Verify returns the verification result. An error means the check itself
	// could not be performed (network, bad response), not that the token was
	// rejected.
	Verify(ctx context.Context, token, remoteIP string) (*Result, error)
	// Enabled reports whether tokens are actually checked.
	Enabled() bool
}

// Noop accepts every token. It is used when no secret is configured.
type Noop struct{}

// Verify always succeeds with a full score.
func (Noop) Verify(context.Context, string, string) (*Result, error) {
	return &Result{Success: true, Score: 1}, nil
}

// Enabled returns false.
func (Noop) Enabled() bool { return false }
