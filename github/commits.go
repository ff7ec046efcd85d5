package github

import (
	"context"
	"time"

	gogithub "github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"

	"github.com/urizennnn/autostandup-activity/batch"
)

type repoTarget struct {
	owner, name string
}

func (t repoTarget) fullName() string { return t.owner + "/" + t.name }

// FetchCommits lists the commits of one repository between since and until,
// optionally filtered by author. Errors are logged and yield an empty
// slice so that one repository cannot fail a larger fetch.
func (c *Client) FetchCommits(ctx context.Context, owner, repo string, since, until time.Time, author string) []Commit {
	fullName := owner + "/" + repo
	raw, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
		return c.api.ListCommits(ctx, owner, repo, &gogithub.CommitsListOptions{
			Author:      author,
			Since:       since,
			Until:       until,
			ListOptions: gogithub.ListOptions{Page: page, PerPage: 100},
		})
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"repo":   fullName,
			"author": author,
		}).Warn("github: listing commits failed")
		return []Commit{}
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		if rc != nil {
			commits = append(commits, toCommit(rc, fullName))
		}
	}
	return commits
}

// FetchCommitsAcrossRepositories fetches commits for every "owner/name" in
// repoFullNames, batch by batch. Output follows the input order.
//
// When authorHint matches nothing anywhere, the fetch is repeated with each
// repository's owner as author, and if that is empty too, with no author
// filter. The first tier returning any commit wins.
func (c *Client) FetchCommitsAcrossRepositories(ctx context.Context, repoFullNames []string, since, until time.Time, authorHint string) ([]Commit, error) {
	if c.cred.Method() == AuthNone {
		return nil, ErrNoAuthentication
	}

	targets := make([]repoTarget, 0, len(repoFullNames))
	for _, fn := range repoFullNames {
		owner, name := SplitRepoFullName(fn)
		if owner == "" {
			c.log.WithField("repo", fn).Warn("github: skipping malformed repository name")
			continue
		}
		targets = append(targets, repoTarget{owner: owner, name: name})
	}
	if len(targets) == 0 {
		return []Commit{}, nil
	}

	CheckRateLimit(ctx, c.api, c.log)

	commits, err := c.fetchTier(ctx, targets, since, until, func(repoTarget) string { return authorHint })
	if err != nil || authorHint == "" || len(commits) > 0 || c.opts.DisableAuthorFallback {
		return commits, err
	}

	c.log.WithFields(logrus.Fields{"tier": 2, "author": authorHint, "repos": len(targets)}).
		Info("github: no commits for author, retrying with repository owner as author")
	commits, err = c.fetchTier(ctx, targets, since, until, func(t repoTarget) string { return t.owner })
	if err != nil || len(commits) > 0 {
		return commits, err
	}

	c.log.WithFields(logrus.Fields{"tier": 3, "author": authorHint, "repos": len(targets)}).
		Info("github: no commits for repository owners, retrying without author filter")
	return c.fetchTier(ctx, targets, since, until, func(repoTarget) string { return "" })
}

func (c *Client) fetchTier(ctx context.Context, targets []repoTarget, since, until time.Time, author func(repoTarget) string) ([]Commit, error) {
	perRepo, err := batch.Process(ctx, targets, c.opts.BatchSize, func(ctx context.Context, t repoTarget) ([]Commit, error) {
		return c.FetchCommits(ctx, t.owner, t.name, since, until, author(t)), nil
	})
	if err != nil {
		return nil, err
	}
	// A cancelled fetch logs per repository and looks empty; don't let it
	// pass for a real result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	commits := []Commit{}
	for _, cs := range perRepo {
		commits = append(commits, cs...)
	}
	return commits, nil
}

func toCommit(rc *gogithub.RepositoryCommit, fullName string) Commit {
	c := Commit{
		SHA:         rc.GetSHA(),
		AuthorLogin: rc.GetAuthor().GetLogin(),
		Message:     rc.GetCommit().GetMessage(),
		HTMLURL:     rc.GetHTMLURL(),
		Repository:  RepositoryRef{FullName: fullName},
	}
	if a := rc.GetCommit().GetAuthor(); a != nil {
		c.Author = &CommitIdentity{Name: a.GetName(), Email: a.GetEmail(), Date: a.GetDate().Time}
	}
	if cm := rc.GetCommit().GetCommitter(); cm != nil {
		c.Committer = &CommitIdentity{Name: cm.GetName(), Email: cm.GetEmail(), Date: cm.GetDate().Time}
	}
	if s := rc.GetStats(); s != nil {
		c.Stats = &CommitStats{Additions: s.GetAdditions(), Deletions: s.GetDeletions(), Total: s.GetTotal()}
	}
	return c
}
