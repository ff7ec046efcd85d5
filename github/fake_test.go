package github

import (
	"context"
	"net/http"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v74/github"
)

// fakeAPI serves canned pages. Page 0 and 1 both mean the first page.
type fakeAPI struct {
	mu sync.Mutex

	rate      *gogithub.Rate
	rateErr   error
	scopes    string
	noScopes  bool
	userErr   error
	userLogin string

	userRepos     [][]*gogithub.Repository
	userReposErr  error
	orgs          []*gogithub.Organization
	orgsErr       error
	orgRepos      map[string][][]*gogithub.Repository
	orgErrs       map[string]error
	installRepos  [][]*gogithub.Repository
	installErr    error
	installations [][]*gogithub.Installation

	commits    map[string][]*gogithub.RepositoryCommit
	commitErrs map[string]error
	calls      []string
}

func pageOf[T any](pages [][]T, page int) ([]T, *gogithub.Response) {
	resp := &gogithub.Response{Response: &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}}
	if len(pages) == 0 {
		return nil, resp
	}
	i := max(page-1, 0)
	if i+1 < len(pages) {
		resp.NextPage = i + 2
	}
	return pages[i], resp
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) RateLimit(context.Context) (*gogithub.RateLimits, *gogithub.Response, error) {
	f.record("rate_limit")
	if f.rateErr != nil {
		return nil, nil, f.rateErr
	}
	rate := f.rate
	if rate == nil {
		rate = &gogithub.Rate{Limit: 5000, Remaining: 4990, Reset: gogithub.Timestamp{Time: time.Now().Add(time.Hour)}}
	}
	return &gogithub.RateLimits{Core: rate}, nil, nil
}

func (f *fakeAPI) AuthenticatedUser(context.Context) (*gogithub.User, *gogithub.Response, error) {
	f.record("user")
	if f.userErr != nil {
		return nil, nil, f.userErr
	}
	_, resp := pageOf[int](nil, 0)
	if !f.noScopes {
		resp.Header.Set(scopesHeader, f.scopes)
	}
	login := f.userLogin
	if login == "" {
		login = "octocat"
	}
	return &gogithub.User{Login: gogithub.Ptr(login)}, resp, nil
}

func (f *fakeAPI) ListUserRepos(_ context.Context, opts *gogithub.RepositoryListByAuthenticatedUserOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	f.record("user_repos")
	if f.userReposErr != nil {
		return nil, nil, f.userReposErr
	}
	items, resp := pageOf(f.userRepos, opts.Page)
	return items, resp, nil
}

func (f *fakeAPI) ListUserOrgs(_ context.Context, opts *gogithub.ListOptions) ([]*gogithub.Organization, *gogithub.Response, error) {
	f.record("user_orgs")
	if f.orgsErr != nil {
		return nil, nil, f.orgsErr
	}
	items, resp := pageOf([][]*gogithub.Organization{f.orgs}, opts.Page)
	return items, resp, nil
}

func (f *fakeAPI) ListOrgRepos(_ context.Context, org string, opts *gogithub.RepositoryListByOrgOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	f.record("org_repos:" + org)
	if err := f.orgErrs[org]; err != nil {
		return nil, nil, err
	}
	items, resp := pageOf(f.orgRepos[org], opts.Page)
	return items, resp, nil
}

func (f *fakeAPI) ListInstallationRepos(_ context.Context, opts *gogithub.ListOptions) (*gogithub.ListRepositories, *gogithub.Response, error) {
	f.record("installation_repos")
	if f.installErr != nil {
		return nil, nil, f.installErr
	}
	items, resp := pageOf(f.installRepos, opts.Page)
	return &gogithub.ListRepositories{TotalCount: gogithub.Ptr(len(items)), Repositories: items}, resp, nil
}

func (f *fakeAPI) ListCommits(_ context.Context, owner, repo string, opts *gogithub.CommitsListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
	fullName := owner + "/" + repo
	f.record("commits:" + fullName + "@" + opts.Author)
	if err := f.commitErrs[fullName]; err != nil {
		return nil, nil, err
	}
	var matched []*gogithub.RepositoryCommit
	for _, c := range f.commits[fullName] {
		if opts.Author == "" || c.GetAuthor().GetLogin() == opts.Author {
			matched = append(matched, c)
		}
	}
	// Two commits per page to exercise pagination.
	var pages [][]*gogithub.RepositoryCommit
	for i := 0; i < len(matched); i += 2 {
		pages = append(pages, matched[i:min(i+2, len(matched))])
	}
	items, resp := pageOf(pages, opts.Page)
	return items, resp, nil
}

func (f *fakeAPI) ListUserInstallations(_ context.Context, opts *gogithub.ListOptions) ([]*gogithub.Installation, *gogithub.Response, error) {
	f.record("installations")
	items, resp := pageOf(f.installations, opts.Page)
	return items, resp, nil
}

func ghRepo(id int64, fullName, ownerType string) *gogithub.Repository {
	owner, name := SplitRepoFullName(fullName)
	return &gogithub.Repository{
		ID:       gogithub.Ptr(id),
		Name:     gogithub.Ptr(name),
		FullName: gogithub.Ptr(fullName),
		Owner:    &gogithub.User{Login: gogithub.Ptr(owner), Type: gogithub.Ptr(ownerType)},
		Private:  gogithub.Ptr(true),
	}
}

func ghCommit(sha, login, message string) *gogithub.RepositoryCommit {
	date := gogithub.Timestamp{Time: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	rc := &gogithub.RepositoryCommit{
		SHA:     gogithub.Ptr(sha),
		HTMLURL: gogithub.Ptr("https://github.com/commit/" + sha),
		Commit: &gogithub.Commit{
			Message:   gogithub.Ptr(message),
			Author:    &gogithub.CommitAuthor{Name: gogithub.Ptr("Git " + login), Email: gogithub.Ptr(login + "@example.com"), Date: &date},
			Committer: &gogithub.CommitAuthor{Name: gogithub.Ptr("GitHub"), Email: gogithub.Ptr("noreply@github.com"), Date: &date},
		},
	}
	if login != "" {
		rc.Author = &gogithub.User{Login: gogithub.Ptr(login)}
	}
	return rc
}

func ghOrg(login string) *gogithub.Organization {
	return &gogithub.Organization{Login: gogithub.Ptr(login)}
}
