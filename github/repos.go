package github

import (
	"context"
	"fmt"
	"slices"

	gogithub "github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"

	"github.com/urizennnn/autostandup-activity/batch"
)

const orgBatchSize = 5

// ListRepositories lists every repository the credential can see: the
// installation's repositories for a GitHub App, or the user's own plus
// every organization's repositories for OAuth. No two results share a
// FullName.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	switch c.cred.Method() {
	case AuthGitHubApp:
		return c.listInstallationRepositories(ctx)
	case AuthOAuth:
		return c.listOAuthRepositories(ctx)
	}
	return nil, ErrNoAuthentication
}

func (c *Client) listOAuthRepositories(ctx context.Context) ([]Repository, error) {
	CheckRateLimit(ctx, c.api, c.log)

	user, resp, err := c.api.AuthenticatedUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get authenticated user: %w", err)
	}
	var header string
	if resp != nil && resp.Response != nil {
		header = resp.Header.Get(scopesHeader)
	}
	scopes := ParseScopes(header)
	log := c.log.WithFields(logrus.Fields{"user": user.GetLogin(), "scopes": scopes})
	if check := ValidateScopes(scopes, ScopeRepo); !check.Valid {
		log.Warn("github: token lacks repo scope, private repositories are unreachable")
		return nil, &ScopeError{Missing: check.Missing}
	}
	if !slices.Contains(scopes, ScopeReadOrg) {
		log.Warn("github: token lacks read:org scope, organization repositories may be incomplete")
	}

	personal, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.Repository, *gogithub.Response, error) {
		return c.api.ListUserRepos(ctx, &gogithub.RepositoryListByAuthenticatedUserOptions{
			Visibility:  "all",
			Affiliation: "owner,collaborator,organization_member",
			Sort:        "updated",
			ListOptions: gogithub.ListOptions{Page: page, PerPage: 100},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list user repositories: %w", err)
	}

	orgs, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.Organization, *gogithub.Response, error) {
		return c.api.ListUserOrgs(ctx, &gogithub.ListOptions{Page: page, PerPage: 100})
	})
	if err != nil {
		log.WithError(err).Warn("github: listing organizations failed, using personal repositories only")
		orgs = nil
	}

	perOrg, err := batch.Process(ctx, orgs, orgBatchSize, func(ctx context.Context, org *gogithub.Organization) ([]*gogithub.Repository, error) {
		return c.listOrgRepositories(ctx, org.GetLogin()), nil
	})
	if err != nil {
		return nil, err
	}

	merged := slices.Clone(personal)
	for _, repos := range perOrg {
		merged = append(merged, repos...)
	}

	out := make([]Repository, 0, len(merged))
	for _, r := range merged {
		if r != nil {
			out = append(out, toRepository(r))
		}
	}
	out, removed := batch.DeduplicateBy(out, func(r Repository) string { return r.FullName })
	if removed > 0 {
		log.WithField("duplicates", removed).Info("github: removed duplicate repositories")
	}
	log.WithFields(logrus.Fields{
		"personal":      len(personal),
		"organizations": len(orgs),
		"total":         len(out),
	}).Info("github: repositories listed")
	return out, nil
}

// listOrgRepositories returns nil when the organization cannot be listed;
// one organization failing must not hide the others.
func (c *Client) listOrgRepositories(ctx context.Context, org string) []*gogithub.Repository {
	repos, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.Repository, *gogithub.Response, error) {
		return c.api.ListOrgRepos(ctx, org, &gogithub.RepositoryListByOrgOptions{
			Type:        "all",
			ListOptions: gogithub.ListOptions{Page: page, PerPage: 100},
		})
	})
	if err != nil {
		c.log.WithError(err).WithField("org", org).Warn("github: listing organization repositories failed")
		return nil
	}
	c.log.WithFields(logrus.Fields{"org": org, "count": len(repos)}).Debug("github: organization repositories")
	return repos
}

func (c *Client) listInstallationRepositories(ctx context.Context) ([]Repository, error) {
	CheckRateLimit(ctx, c.api, c.log)

	repos, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.Repository, *gogithub.Response, error) {
		list, resp, err := c.api.ListInstallationRepos(ctx, &gogithub.ListOptions{Page: page, PerPage: 100})
		if err != nil || list == nil {
			return nil, resp, err
		}
		return list.Repositories, resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list installation repositories: %w", err)
	}

	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, toRepository(r))
		}
	}
	c.log.WithFields(logrus.Fields{
		"installation_id": c.cred.InstallationID(),
		"total":           len(out),
	}).Info("github: installation repositories listed")
	return out, nil
}

func toRepository(r *gogithub.Repository) Repository {
	repo := Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Owner:       Owner{Login: r.GetOwner().GetLogin(), Type: r.GetOwner().GetType()},
		Private:     r.GetPrivate(),
		Language:    r.GetLanguage(),
		Description: r.GetDescription(),
	}
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.Time
		repo.UpdatedAt = &t
	}
	return repo
}
