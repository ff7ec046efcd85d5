package github

import (
	"context"
	"slices"
	"strings"
)

const (
	ScopeRepo    = "repo"
	ScopeReadOrg = "read:org"

	scopesHeader = "X-OAuth-Scopes"
)

// ParseScopes splits an X-OAuth-Scopes header value.
func ParseScopes(header string) []string {
	scopes := []string{}
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// ValidateScopes reports which of required are absent from have. With no
// required scopes given, "repo" is required.
func ValidateScopes(have []string, required ...string) TokenScopeCheck {
	if len(required) == 0 {
		required = []string{ScopeRepo}
	}
	missing := []string{}
	for _, r := range required {
		if !slices.Contains(have, r) {
			missing = append(missing, r)
		}
	}
	return TokenScopeCheck{Granted: have, Missing: missing, Valid: len(missing) == 0}
}

// ValidateOAuthScopes asks GitHub who the token belongs to and checks its
// scopes for repo and read:org. Failures are reported in the result, never
// returned.
func ValidateOAuthScopes(ctx context.Context, api API) TokenScopeCheck {
	_, resp, err := api.AuthenticatedUser(ctx)
	if err != nil {
		return TokenScopeCheck{
			Granted: []string{},
			Missing: []string{ScopeRepo, ScopeReadOrg},
			Err:     err,
		}
	}
	var header string
	if resp != nil && resp.Response != nil {
		header = resp.Header.Get(scopesHeader)
	}
	return ValidateScopes(ParseScopes(header), ScopeRepo, ScopeReadOrg)
}
