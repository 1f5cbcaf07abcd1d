package captcha

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	recaptcha "google.golang.org/api/recaptchaenterprise/v1"
)

// EnterpriseVerifier creates reCAPTCHA Enterprise assessments for tokens.
type EnterpriseVerifier struct {
	svc     *recaptcha.Service
	parent  string
	siteKey string
}

// NewEnterpriseVerifier builds a verifier for the given Google Cloud project
// and site key. Authentication comes from opts (option.WithAPIKey or
// CredentialsFileOption).
func NewEnterpriseVerifier(ctx context.Context, projectID, siteKey string, opts ...option.ClientOption) (*EnterpriseVerifier, error) {
	if projectID == "" {
		return nil, fmt.Errorf("recaptcha enterprise: project id is required")
	}
	svc, err := recaptcha.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating recaptcha enterprise client: %w", err)
	}
	return &EnterpriseVerifier{
		svc:     svc,
		parent:  "projects/" + projectID,
		siteKey: siteKey,
	}, nil
}

// Enabled returns true.
func (v *EnterpriseVerifier) Enabled() bool { return true }

// Verify creates an assessment and maps token validity and risk score.
func (v *EnterpriseVerifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	assessment := &recaptcha.GoogleCloudRecaptchaenterpriseV1Assessment{
		Event: &recaptcha.GoogleCloudRecaptchaenterpriseV1Event{
			Token:         token,
			SiteKey:       v.siteKey,
			UserIpAddress: remoteIP,
		},
	}

	resp, err := v.svc.Projects.Assessments.Create(v.parent, assessment).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating recaptcha assessment: %w", err)
	}

	res := &Result{}
	if tp := resp.TokenProperties; tp != nil {
		res.Success = tp.Valid
		res.Reason = tp.InvalidReason
	}
	if ra := resp.RiskAnalysis; ra != nil {
		res.Score = ra.Score
	}
	return res, nil
}

// CredentialsFileOption authenticates Enterprise calls with the service
// account key stored at path. The token source refreshes itself.
func CredentialsFileOption(ctx context.Context, path string) (option.ClientOption, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is admin configured
	if err != nil {
		return nil, fmt.Errorf("reading recaptcha credentials: %w", err)
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, data, recaptcha.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parsing recaptcha credentials: %w", err)
	}
	return option.WithHTTPClient(oauth2.NewClient(ctx, creds.TokenSource)), nil
}
