package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v74/github"
)

// ErrNoAuthentication is returned before any network call when neither a
// token nor an installation id was supplied.
var ErrNoAuthentication = errors.New("no authentication: an OAuth token or a GitHub App installation id is required")

// ConfigurationError reports missing or unusable GitHub App credentials.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github app configuration error: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("github app configuration error: %s is not set", e.Field)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ScopeError reports OAuth scopes the token lacks.
type ScopeError struct {
	Missing []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("oauth token is missing required scopes: %s", strings.Join(e.Missing, ", "))
}

// AuthenticationError reports a rejected installation token exchange.
type AuthenticationError struct {
	InstallationID int64
	Err            error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("github app authentication failed for installation %d: %v", e.InstallationID, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FormatAPIError renders err as a message fit for an end user.
func FormatAPIError(err error) string {
	if err == nil {
		return "Unknown GitHub API error"
	}

	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("GitHub API error: %s (rate limit resets at %s)", rateErr.Message, rateErr.Rate.Reset.Format("15:04:05 MST"))
	}
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Sprintf("GitHub API error: %s", abuseErr.Message)
	}
	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusUnauthorized {
			return fmt.Sprintf("GitHub API error: authentication failed, please sign in again (%s)", respErr.Message)
		}
		return fmt.Sprintf("GitHub API error: %s", respErr.Message)
	}
	return fmt.Sprintf("GitHub error: %s", err.Error())
}
