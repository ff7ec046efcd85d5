package github

import (
	"context"

	gogithub "github.com/google/go-github/v74/github"
)

// API is the slice of the GitHub REST surface this package needs. The
// go-github adapter returned by NewAPI implements it, as do test doubles.
// List methods fetch one page; callers page with Response.NextPage.
type API interface {
	RateLimit(ctx context.Context) (*gogithub.RateLimits, *gogithub.Response, error)
	AuthenticatedUser(ctx context.Context) (*gogithub.User, *gogithub.Response, error)
	ListUserRepos(ctx context.Context, opts *gogithub.RepositoryListByAuthenticatedUserOptions) ([]*gogithub.Repository, *gogithub.Response, error)
	ListUserOrgs(ctx context.Context, opts *gogithub.ListOptions) ([]*gogithub.Organization, *gogithub.Response, error)
	ListOrgRepos(ctx context.Context, org string, opts *gogithub.RepositoryListByOrgOptions) ([]*gogithub.Repository, *gogithub.Response, error)
	ListInstallationRepos(ctx context.Context, opts *gogithub.ListOptions) (*gogithub.ListRepositories, *gogithub.Response, error)
	ListCommits(ctx context.Context, owner, repo string, opts *gogithub.CommitsListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error)
	ListUserInstallations(ctx context.Context, opts *gogithub.ListOptions) ([]*gogithub.Installation, *gogithub.Response, error)
}

type restAPI struct {
	gh *gogithub.Client
}

func NewAPI(gh *gogithub.Client) API {
	return &restAPI{gh: gh}
}

func (r *restAPI) RateLimit(ctx context.Context) (*gogithub.RateLimits, *gogithub.Response, error) {
	return r.gh.RateLimit.Get(ctx)
}

func (r *restAPI) AuthenticatedUser(ctx context.Context) (*gogithub.User, *gogithub.Response, error) {
	return r.gh.Users.Get(ctx, "")
}

func (r *restAPI) ListUserRepos(ctx context.Context, opts *gogithub.RepositoryListByAuthenticatedUserOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	return r.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
}

func (r *restAPI) ListUserOrgs(ctx context.Context, opts *gogithub.ListOptions) ([]*gogithub.Organization, *gogithub.Response, error) {
	return r.gh.Organizations.List(ctx, "", opts)
}

func (r *restAPI) ListOrgRepos(ctx context.Context, org string, opts *gogithub.RepositoryListByOrgOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	return r.gh.Repositories.ListByOrg(ctx, org, opts)
}

func (r *restAPI) ListInstallationRepos(ctx context.Context, opts *gogithub.ListOptions) (*gogithub.ListRepositories, *gogithub.Response, error) {
	return r.gh.Apps.ListRepos(ctx, opts)
}

func (r *restAPI) ListCommits(ctx context.Context, owner, repo string, opts *gogithub.CommitsListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
	return r.gh.Repositories.ListCommits(ctx, owner, repo, opts)
}

func (r *restAPI) ListUserInstallations(ctx context.Context, opts *gogithub.ListOptions) ([]*gogithub.Installation, *gogithub.Response, error) {
	return r.gh.Apps.ListUserInstallations(ctx, opts)
}

// paginate calls fetch with page 1, 2, ... until the response reports no
// next page, concatenating items in server order.
func paginate[T any](ctx context.Context, fetch func(ctx context.Context, page int) ([]T, *gogithub.Response, error)) ([]T, error) {
	var all []T
	page := 0
	for {
		items, resp, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		page = resp.NextPage
	}
}
