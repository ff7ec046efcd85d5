package github

import (
	"fmt"
	"strings"
)

type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthOAuth
	AuthGitHubApp
)

func (m AuthMethod) String() string {
	switch m {
	case AuthOAuth:
		return "oauth"
	case AuthGitHubApp:
		return "github_app"
	default:
		return "none"
	}
}

// ParseAuthMethod accepts "oauth", "github_app" and the legacy "app".
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oauth":
		return AuthOAuth, nil
	case "github_app", "app":
		return AuthGitHubApp, nil
	case "":
		return AuthNone, nil
	}
	return AuthNone, fmt.Errorf("unknown auth method %q", s)
}

// Credential is either an OAuth token or a GitHub App installation id.
type Credential struct {
	method         AuthMethod
	token          string
	installationID int64
}

func OAuth(token string) Credential {
	if token == "" {
		return Credential{}
	}
	return Credential{method: AuthOAuth, token: token}
}

func GitHubApp(installationID int64) Credential {
	if installationID <= 0 {
		return Credential{}
	}
	return Credential{method: AuthGitHubApp, installationID: installationID}
}

// CredentialFrom picks the installation when one is given, else the token.
func CredentialFrom(token string, installationID int64) Credential {
	if installationID > 0 {
		return GitHubApp(installationID)
	}
	return OAuth(token)
}

func (c Credential) Method() AuthMethod    { return c.method }
func (c Credential) Token() string         { return c.token }
func (c Credential) InstallationID() int64 { return c.installationID }

func (c Credential) String() string {
	switch c.method {
	case AuthGitHubApp:
		return fmt.Sprintf("github_app(installation=%d)", c.installationID)
	case AuthOAuth:
		return "oauth(token=***)"
	}
	return "none"
}
