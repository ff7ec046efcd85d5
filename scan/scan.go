// Package scan handles activity jobs: resolve the identity, pick the
// repositories, fetch the commits and hand back a result.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/urizennnn/autostandup-activity/digest"
	"github.com/urizennnn/autostandup-activity/github"
)

type Resolver interface {
	ResolveClient(ctx context.Context, cred github.Credential) (*github.Client, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, in digest.Input) (digest.Digest, error)
}

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

type Scanner struct {
	resolver   Resolver
	summarizer Summarizer
	publisher  Publisher
	validate   *validator.Validate
	timeout    time.Duration
	log        logrus.FieldLogger
	now        func() time.Time
}

// New builds a Scanner. summarizer may be nil, in which case digests are
// never produced. timeout bounds a whole job; zero means no bound.
func New(resolver Resolver, summarizer Summarizer, publisher Publisher, timeout time.Duration, log logrus.FieldLogger) *Scanner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		resolver:   resolver,
		summarizer: summarizer,
		publisher:  publisher,
		validate:   validator.New(),
		timeout:    timeout,
		log:        log,
		now:        time.Now,
	}
}

// Process validates and handles job, then publishes the result. Only a
// publish failure is returned; job failures travel inside the result.
func (s *Scanner) Process(ctx context.Context, job Job) error {
	var res Result
	if err := s.validate.Struct(job); err != nil {
		res = s.newResult(job)
		res.Status = StatusFailed
		res.Error = fmt.Sprintf("invalid job: %v", err)
		res.FinishedAt = s.now()
	} else {
		res = s.Handle(ctx, job)
	}
	if err := s.publisher.Publish(ctx, res); err != nil {
		return fmt.Errorf("publish result %s: %w", res.ID, err)
	}
	return nil
}

func (s *Scanner) Handle(ctx context.Context, job Job) Result {
	res := s.newResult(job)
	cred := job.Credential()
	log := s.log.WithFields(logrus.Fields{"job": res.ID, "auth": cred.Method().String()})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	client, err := s.resolver.ResolveClient(ctx, cred)
	if err != nil {
		return s.fail(res, err, log)
	}

	repos := job.Repos
	if len(repos) == 0 {
		listed, err := client.ListRepositories(ctx)
		if err != nil {
			return s.fail(res, err, log)
		}
		repos = make([]string, len(listed))
		for i, r := range listed {
			repos[i] = r.FullName
		}
	}

	commits, err := client.FetchCommitsAcrossRepositories(ctx, repos, job.Since, job.Until, job.Author)
	if err != nil {
		return s.fail(res, err, log)
	}
	res.Commits = commits
	res.Repositories = countPerRepo(repos, commits)
	res.RateLimit = github.CheckRateLimit(ctx, client.API(), log)

	if job.Digest && s.summarizer != nil {
		d, err := s.summarizer.Summarize(ctx, digest.BuildInput(job.Author, job.Since, job.Until, commits))
		if err != nil {
			log.WithError(err).Warn("scan: digest failed, returning commits only")
		} else {
			res.Digest = &d
		}
	}

	res.Status = StatusOK
	res.FinishedAt = s.now()
	log.WithFields(logrus.Fields{
		"repos":   len(repos),
		"commits": len(commits),
	}).Info("scan: job done")
	return res
}

func (s *Scanner) newResult(job Job) Result {
	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Result{
		ID:           id,
		JobID:        job.ID,
		Auth:         job.Credential().Method().String(),
		Since:        job.Since,
		Until:        job.Until,
		Repositories: []RepoCount{},
		Commits:      []github.Commit{},
	}
}

func (s *Scanner) fail(res Result, err error, log logrus.FieldLogger) Result {
	res.Status = StatusFailed
	res.Error, res.Reauthenticate = describe(err)
	res.FinishedAt = s.now()
	log.WithError(err).Warn("scan: job failed")
	return res
}

// describe renders err for the dashboard and says whether the user must
// sign in again.
func describe(err error) (string, bool) {
	var (
		cfgErr   *github.ConfigurationError
		scopeErr *github.ScopeError
		authErr  *github.AuthenticationError
	)
	switch {
	case errors.Is(err, github.ErrNoAuthentication):
		return err.Error(), true
	case errors.As(err, &scopeErr):
		return scopeErr.Error() + "; please reauthorize the application", true
	case errors.As(err, &authErr):
		return authErr.Error(), true
	case errors.As(err, &cfgErr):
		return cfgErr.Error(), false
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out fetching GitHub activity", false
	}
	return github.FormatAPIError(err), false
}

// countPerRepo counts commits for every scanned repository, in scan order,
// including those with none.
func countPerRepo(repos []string, commits []github.Commit) []RepoCount {
	counts := make(map[string]int, len(repos))
	for _, c := range commits {
		counts[c.Repository.FullName]++
	}
	out := make([]RepoCount, 0, len(repos))
	seen := make(map[string]bool, len(repos))
	for _, r := range repos {
		owner, _ := github.SplitRepoFullName(r)
		if owner == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, RepoCount{Repo: r, Commits: counts[r]})
	}
	return out
}
