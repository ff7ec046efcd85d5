package github

import (
	"strings"
	"time"
)

type Owner struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Repository is a snapshot of a repository as listed by the API. FullName
// ("owner/name") identifies it within a listing.
type Repository struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Owner       Owner      `json:"owner"`
	Private     bool       `json:"private"`
	Language    string     `json:"language,omitempty"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CommitIdentity is the git-level author or committer of a commit.
type CommitIdentity struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

type RepositoryRef struct {
	FullName string `json:"full_name"`
}

// Commit is a listed commit stamped with the repository it was fetched from.
type Commit struct {
	SHA       string          `json:"sha"`
	Author    *CommitIdentity `json:"author"`
	Committer *CommitIdentity `json:"committer"`
	// AuthorLogin is the linked GitHub account, empty for unlinked commits.
	AuthorLogin string        `json:"author_login,omitempty"`
	Message     string        `json:"message"`
	HTMLURL     string        `json:"html_url"`
	Stats       *CommitStats  `json:"stats,omitempty"`
	Repository  RepositoryRef `json:"repository"`
}

type Account struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// AppInstallation is one grant of the GitHub App to a user or organization.
// Account is nil when the API returned none.
type AppInstallation struct {
	ID                  int64    `json:"id"`
	Account             *Account `json:"account"`
	AppSlug             string   `json:"app_slug"`
	AppID               int64    `json:"app_id"`
	RepositorySelection string   `json:"repository_selection"`
	TargetType          string   `json:"target_type"`
}

type TokenScopeCheck struct {
	Granted []string `json:"granted"`
	Missing []string `json:"missing"`
	Valid   bool     `json:"is_valid"`
	Err     error    `json:"-"`
}

// SplitRepoFullName splits "owner/name". Anything else yields two empty
// strings.
func SplitRepoFullName(fullName string) (owner, name string) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}
