package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaharia-lab/formrelay/internal/build"
)

// DefaultSiteVerifyURL is Google's reCAPTCHA verification endpoint.
const DefaultSiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// siteVerifyResponse is the JSON body returned by siteverify.
type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// SiteVerifier checks tokens against the classic reCAPTCHA siteverify API
// using the site's secret key.
type SiteVerifier struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// NewSiteVerifier creates a SiteVerifier. An empty endpoint uses
// DefaultSiteVerifyURL.
func NewSiteVerifier(secret, endpoint string) *SiteVerifier {
	if endpoint == "" {
		endpoint = DefaultSiteVerifyURL
	}
	return &SiteVerifier{
		secret:     secret,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled returns true.
func (v *SiteVerifier) Enabled() bool { return true }

// Verify posts the token to siteverify.
func (v *SiteVerifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling siteverify: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify returned HTTP %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing siteverify response: %w", err)
	}

	return &Result{
		Success: body.Success,
		Score:   body.Score,
		Reason:  strings.Join(body.ErrorCodes, ","),
	}, nil
}
