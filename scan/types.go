package scan

import (
	"time"

	"github.com/urizennnn/autostandup-activity/digest"
	"github.com/urizennnn/autostandup-activity/github"
	"github.com/urizennnn/autostandup-activity/ratelimit"
)

// Job asks for the commit activity of one identity over a time window.
// With no Repos, every repository the identity can see is scanned.
type Job struct {
	ID             string    `json:"id"`
	AuthMethod     string    `json:"auth_method" validate:"omitempty,oneof=oauth github_app app"`
	Token          string    `json:"token,omitempty"`
	InstallationID int64     `json:"installation_id" validate:"gte=0"`
	Repos          []string  `json:"repos" validate:"dive,required"`
	Author         string    `json:"author,omitempty"`
	Since          time.Time `json:"since" validate:"required"`
	Until          time.Time `json:"until" validate:"required,gtfield=Since"`
	Digest         bool      `json:"digest"`
}

// Credential maps the job's auth fields onto a github.Credential. An
// unknown or empty auth method falls back to whichever id is present.
func (j Job) Credential() github.Credential {
	method, _ := github.ParseAuthMethod(j.AuthMethod)
	switch method {
	case github.AuthOAuth:
		return github.OAuth(j.Token)
	case github.AuthGitHubApp:
		return github.GitHubApp(j.InstallationID)
	}
	return github.CredentialFrom(j.Token, j.InstallationID)
}

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

type RepoCount struct {
	Repo    string `json:"repo"`
	Commits int    `json:"commits"`
}

type Result struct {
	ID     string `json:"id"`
	JobID  string `json:"job_id,omitempty"`
	Auth   string `json:"auth"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	// Reauthenticate tells the dashboard to show its sign-in prompt.
	Reauthenticate bool              `json:"reauthenticate,omitempty"`
	Since          time.Time         `json:"since"`
	Until          time.Time         `json:"until"`
	Repositories   []RepoCount       `json:"repositories"`
	Commits        []github.Commit   `json:"commits"`
	RateLimit      *ratelimit.Status `json:"rate_limit,omitempty"`
	Digest         *digest.Digest    `json:"digest,omitempty"`
	FinishedAt     time.Time         `json:"finished_at"`
}
