package scan

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urizennnn/autostandup-activity/digest"
	"github.com/urizennnn/autostandup-activity/github"
)

// stubAPI answers every call with a single page.
type stubAPI struct {
	repos   []*gogithub.Repository
	commits map[string][]*gogithub.RepositoryCommit
	listErr error
}

func okResponse() *gogithub.Response {
	return &gogithub.Response{Response: &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}}
}

func (s *stubAPI) RateLimit(context.Context) (*gogithub.RateLimits, *gogithub.Response, error) {
	rate := &gogithub.Rate{Limit: 5000, Remaining: 4000, Reset: gogithub.Timestamp{Time: time.Now().Add(time.Hour)}}
	return &gogithub.RateLimits{Core: rate}, okResponse(), nil
}

func (s *stubAPI) AuthenticatedUser(context.Context) (*gogithub.User, *gogithub.Response, error) {
	resp := okResponse()
	resp.Header.Set("X-OAuth-Scopes", "repo, read:org")
	return &gogithub.User{Login: gogithub.Ptr("octocat")}, resp, nil
}

func (s *stubAPI) ListUserRepos(context.Context, *gogithub.RepositoryListByAuthenticatedUserOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	return s.repos, okResponse(), s.listErr
}

func (s *stubAPI) ListUserOrgs(context.Context, *gogithub.ListOptions) ([]*gogithub.Organization, *gogithub.Response, error) {
	return nil, okResponse(), nil
}

func (s *stubAPI) ListOrgRepos(context.Context, string, *gogithub.RepositoryListByOrgOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
	return nil, okResponse(), nil
}

func (s *stubAPI) ListInstallationRepos(context.Context, *gogithub.ListOptions) (*gogithub.ListRepositories, *gogithub.Response, error) {
	if s.listErr != nil {
		return nil, nil, s.listErr
	}
	return &gogithub.ListRepositories{TotalCount: gogithub.Ptr(len(s.repos)), Repositories: s.repos}, okResponse(), nil
}

func (s *stubAPI) ListCommits(_ context.Context, owner, repo string, opts *gogithub.CommitsListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
	var out []*gogithub.RepositoryCommit
	for _, c := range s.commits[owner+"/"+repo] {
		if opts.Author == "" || c.GetAuthor().GetLogin() == opts.Author {
			out = append(out, c)
		}
	}
	return out, okResponse(), nil
}

func (s *stubAPI) ListUserInstallations(context.Context, *gogithub.ListOptions) ([]*gogithub.Installation, *gogithub.Response, error) {
	return nil, okResponse(), nil
}

type stubResolver struct {
	api github.API
	err error
}

func (r stubResolver) ResolveClient(_ context.Context, cred github.Credential) (*github.Client, error) {
	if r.err != nil {
		return nil, r.err
	}
	if cred.Method() == github.AuthNone {
		return nil, github.ErrNoAuthentication
	}
	return github.NewClient(r.api, cred, nil, github.Options{}), nil
}

type stubSummarizer struct {
	in  digest.Input
	err error
}

func (s *stubSummarizer) Summarize(_ context.Context, in digest.Input) (digest.Digest, error) {
	s.in = in
	if s.err != nil {
		return digest.Digest{}, s.err
	}
	return digest.Digest{Headline: "busy week"}, nil
}

type stubPublisher struct {
	mu   sync.Mutex
	sent []any
	err  error
}

func (p *stubPublisher) Publish(_ context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, v)
	return p.err
}

func repo(fullName string) *gogithub.Repository {
	owner, name := github.SplitRepoFullName(fullName)
	return &gogithub.Repository{
		ID:       gogithub.Ptr(int64(len(fullName))),
		Name:     gogithub.Ptr(name),
		FullName: gogithub.Ptr(fullName),
		Owner:    &gogithub.User{Login: gogithub.Ptr(owner), Type: gogithub.Ptr("User")},
	}
}

func commit(sha, login string) *gogithub.RepositoryCommit {
	return &gogithub.RepositoryCommit{
		SHA:    gogithub.Ptr(sha),
		Author: &gogithub.User{Login: gogithub.Ptr(login)},
		Commit: &gogithub.Commit{
			Message: gogithub.Ptr("change " + sha),
			Author:  &gogithub.CommitAuthor{Name: gogithub.Ptr(login), Date: &gogithub.Timestamp{Time: time.Now()}},
		},
	}
}

func window() (time.Time, time.Time) {
	until := time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC)
	return until.Add(-7 * 24 * time.Hour), until
}

func TestHandle_InstallationListsRepositories(t *testing.T) {
	api := &stubAPI{
		repos: []*gogithub.Repository{repo("acme/api"), repo("acme/web")},
		commits: map[string][]*gogithub.RepositoryCommit{
			"acme/api": {commit("a1", "dev"), commit("a2", "dev")},
		},
	}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{api: api}, nil, &stubPublisher{}, time.Minute, log)

	since, until := window()
	res := s.Handle(context.Background(), Job{ID: "job-1", InstallationID: 42, Author: "dev", Since: since, Until: until})

	require.Equal(t, StatusOK, res.Status, res.Error)
	assert.Equal(t, "job-1", res.ID)
	assert.Equal(t, "github_app", res.Auth)
	assert.Len(t, res.Commits, 2)
	assert.Equal(t, []RepoCount{{Repo: "acme/api", Commits: 2}, {Repo: "acme/web", Commits: 0}}, res.Repositories)
	require.NotNil(t, res.RateLimit)
	assert.Equal(t, 4000, res.RateLimit.Remaining)
	assert.Nil(t, res.Digest)
	assert.False(t, res.FinishedAt.IsZero())
}

func TestHandle_ExplicitReposSkipListing(t *testing.T) {
	api := &stubAPI{
		listErr: errors.New("listing should not happen"),
		commits: map[string][]*gogithub.RepositoryCommit{"me/tool": {commit("b1", "me")}},
	}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{api: api}, nil, &stubPublisher{}, 0, log)

	since, until := window()
	res := s.Handle(context.Background(), Job{AuthMethod: "oauth", Token: "gho_x", Repos: []string{"me/tool"}, Since: since, Until: until})

	require.Equal(t, StatusOK, res.Status, res.Error)
	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.JobID)
	assert.Len(t, res.Commits, 1)
}

func TestHandle_DigestRequested(t *testing.T) {
	api := &stubAPI{commits: map[string][]*gogithub.RepositoryCommit{"me/tool": {commit("c1", "me")}}}
	sum := &stubSummarizer{}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{api: api}, sum, &stubPublisher{}, 0, log)

	since, until := window()
	res := s.Handle(context.Background(), Job{Token: "gho_x", Repos: []string{"me/tool"}, Author: "me", Since: since, Until: until, Digest: true})

	require.NotNil(t, res.Digest)
	assert.Equal(t, "busy week", res.Digest.Headline)
	assert.Equal(t, "me", sum.in.Handle)
	require.Len(t, sum.in.Repositories, 1)
}

func TestHandle_DigestFailureKeepsCommits(t *testing.T) {
	api := &stubAPI{commits: map[string][]*gogithub.RepositoryCommit{"me/tool": {commit("c1", "me")}}}
	log, hook := test.NewNullLogger()
	s := New(stubResolver{api: api}, &stubSummarizer{err: errors.New("model down")}, &stubPublisher{}, 0, log)

	since, until := window()
	res := s.Handle(context.Background(), Job{Token: "gho_x", Repos: []string{"me/tool"}, Since: since, Until: until, Digest: true})

	assert.Equal(t, StatusOK, res.Status)
	assert.Nil(t, res.Digest)
	assert.Len(t, res.Commits, 1)
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "scan: digest failed, returning commits only" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestHandle_Failures(t *testing.T) {
	since, until := window()
	tests := []struct {
		name     string
		resolver stubResolver
		job      Job
		wantErr  string
		reauth   bool
	}{
		{
			name:    "no credential",
			job:     Job{Since: since, Until: until},
			wantErr: github.ErrNoAuthentication.Error(),
			reauth:  true,
		},
		{
			name:     "rejected installation",
			resolver: stubResolver{err: &github.AuthenticationError{InstallationID: 7, Err: errors.New("401")}},
			job:      Job{InstallationID: 7, Since: since, Until: until},
			wantErr:  "github app authentication failed for installation 7: 401",
			reauth:   true,
		},
		{
			name:     "missing app configuration",
			resolver: stubResolver{err: &github.ConfigurationError{Field: "GITHUB_APP_ID"}},
			job:      Job{InstallationID: 7, Since: since, Until: until},
			wantErr:  "GITHUB_APP_ID is not set",
		},
		{
			name:     "missing scopes",
			resolver: stubResolver{err: &github.ScopeError{Missing: []string{"repo"}}},
			job:      Job{Token: "gho_x", Since: since, Until: until},
			wantErr:  "oauth token is missing required scopes: repo; please reauthorize the application",
			reauth:   true,
		},
		{
			name:     "plain error",
			resolver: stubResolver{err: errors.New("boom")},
			job:      Job{Token: "gho_x", Since: since, Until: until},
			wantErr:  "GitHub error: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, _ := test.NewNullLogger()
			s := New(tt.resolver, nil, &stubPublisher{}, 0, log)
			res := s.Handle(context.Background(), tt.job)
			assert.Equal(t, StatusFailed, res.Status)
			assert.Contains(t, res.Error, tt.wantErr)
			assert.Equal(t, tt.reauth, res.Reauthenticate)
			assert.Empty(t, res.Commits)
		})
	}
}

func TestProcess_PublishesResult(t *testing.T) {
	api := &stubAPI{commits: map[string][]*gogithub.RepositoryCommit{"me/tool": {commit("d1", "me")}}}
	pub := &stubPublisher{}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{api: api}, nil, pub, 0, log)

	since, until := window()
	require.NoError(t, s.Process(context.Background(), Job{ID: "j", Token: "gho_x", Repos: []string{"me/tool"}, Since: since, Until: until}))

	require.Len(t, pub.sent, 1)
	res, ok := pub.sent[0].(Result)
	require.True(t, ok)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "j", res.JobID)
}

func TestProcess_InvalidJob(t *testing.T) {
	pub := &stubPublisher{}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{}, nil, pub, 0, log)

	since, until := window()
	require.NoError(t, s.Process(context.Background(), Job{Token: "gho_x", Since: until, Until: since}))

	require.Len(t, pub.sent, 1)
	res := pub.sent[0].(Result)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "invalid job")
}

func TestProcess_PublishError(t *testing.T) {
	pub := &stubPublisher{err: errors.New("redis gone")}
	log, _ := test.NewNullLogger()
	s := New(stubResolver{}, nil, pub, 0, log)

	since, until := window()
	err := s.Process(context.Background(), Job{ID: "j", Since: since, Until: until})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis gone")
}

func TestJobCredential(t *testing.T) {
	assert.Equal(t, github.AuthOAuth, Job{AuthMethod: "oauth", Token: "t", InstallationID: 3}.Credential().Method())
	assert.Equal(t, github.AuthGitHubApp, Job{AuthMethod: "app", Token: "t", InstallationID: 3}.Credential().Method())
	assert.Equal(t, github.AuthGitHubApp, Job{Token: "t", InstallationID: 3}.Credential().Method())
	assert.Equal(t, github.AuthOAuth, Job{Token: "t"}.Credential().Method())
	assert.Equal(t, github.AuthNone, Job{}.Credential().Method())
}
