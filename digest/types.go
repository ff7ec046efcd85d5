package digest

import "time"

type CommitLine struct {
	SHA       string `json:"sha"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	Additions int    `json:"additions,omitempty"`
	Deletions int    `json:"deletions,omitempty"`
}

type RepoActivity struct {
	Repo    string       `json:"repo"`
	Total   int          `json:"total"`
	Commits []CommitLine `json:"commits"`
}

// Input is what the model sees: commits grouped per repository, trimmed.
type Input struct {
	Handle       string         `json:"handle"`
	Since        time.Time      `json:"since"`
	Until        time.Time      `json:"until"`
	Repositories []RepoActivity `json:"repositories"`
}

type RepoSummary struct {
	Repo    string `json:"repo"`
	Summary string `json:"summary"`
}

type Digest struct {
	Headline     string        `json:"headline"`
	Highlights   []string      `json:"highlights"`
	Repositories []RepoSummary `json:"repositories"`
}
