// Package digest turns a window of commit activity into a short written
// digest using an OpenAI function-tool call.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"

	"github.com/urizennnn/autostandup-activity/github"
	"github.com/urizennnn/autostandup-activity/ratelimit"
)

const (
	toolName = "emit_activity_digest"

	maxCommitsPerRepo = 50
	maxMessageLen     = 200
)

type Summarizer struct {
	client  openai.Client
	limiter *ratelimit.Limiter
	log     logrus.FieldLogger
}

func New(apiKey string, limiter *ratelimit.Limiter, log logrus.FieldLogger) *Summarizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Summarizer{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
		log:     log,
	}
}

// BuildInput groups commits by repository in first-seen order, keeping the
// first line of each message and at most maxCommitsPerRepo commits each.
func BuildInput(handle string, since, until time.Time, commits []github.Commit) Input {
	in := Input{Handle: handle, Since: since.UTC(), Until: until.UTC(), Repositories: []RepoActivity{}}
	index := map[string]int{}
	for _, c := range commits {
		i, ok := index[c.Repository.FullName]
		if !ok {
			i = len(in.Repositories)
			index[c.Repository.FullName] = i
			in.Repositories = append(in.Repositories, RepoActivity{Repo: c.Repository.FullName})
		}
		ra := &in.Repositories[i]
		ra.Total++
		if len(ra.Commits) >= maxCommitsPerRepo {
			continue
		}
		ra.Commits = append(ra.Commits, toLine(c))
	}
	return in
}

func toLine(c github.Commit) CommitLine {
	author := c.AuthorLogin
	if author == "" && c.Author != nil {
		author = c.Author.Name
	}
	msg, _, _ := strings.Cut(c.Message, "\n")
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	line := CommitLine{SHA: shortSHA(c.SHA), Author: author, Message: msg}
	if c.Stats != nil {
		line.Additions = c.Stats.Additions
		line.Deletions = c.Stats.Deletions
	}
	return line
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func (s *Summarizer) Summarize(ctx context.Context, in Input) (Digest, error) {
	if len(in.Repositories) == 0 {
		return Digest{Headline: "No commit activity", Highlights: []string{}, Repositories: []RepoSummary{}}, nil
	}
	if err := s.limiter.WaitOpenAI(ctx); err != nil {
		return Digest{}, err
	}

	sys := `You summarize GitHub commit activity for a personal dashboard. Output ONE function call "` + toolName + `".
- headline: one sentence covering the whole window.
- highlights: up to five bullets, most significant work first, de-duplicating similar commits.
- repositories: one short summary per repository present in the input, using its exact "owner/name".
Be truthful; do not invent work that is not in the commits.`

	inJSON, err := json.Marshal(in)
	if err != nil {
		return Digest{}, fmt.Errorf("encode digest input: %w", err)
	}

	tool := openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        toolName,
		Description: openai.String("Return the activity digest in the exact structure the dashboard renders."),
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"headline": map[string]any{"type": "string"},
				"highlights": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"repositories": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"repo":    map[string]any{"type": "string"},
							"summary": map[string]any{"type": "string"},
						},
						"required": []string{"repo", "summary"},
					},
				},
			},
			"required": []string{"headline", "highlights", "repositories"},
		},
	})

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Seed:  openai.Int(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sys),
			openai.UserMessage(fmt.Sprintf(`{"instruction":"Summarize this activity","payload":%s}`, string(inJSON))),
		},
		Tools: []openai.ChatCompletionToolUnionParam{tool},
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Digest{}, err
	}
	if len(resp.Choices) == 0 {
		return Digest{}, fmt.Errorf("model returned no choices")
	}

	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name != toolName {
			continue
		}
		out, err := decodeDigest(tc.Function.Arguments)
		if err != nil {
			return Digest{}, err
		}
		s.log.WithFields(logrus.Fields{
			"handle":       in.Handle,
			"repositories": len(out.Repositories),
			"highlights":   len(out.Highlights),
			"tokens":       resp.Usage.TotalTokens,
		}).Info("digest: activity digest ready")
		return out, nil
	}
	return Digest{}, fmt.Errorf("model did not return tool call")
}

func decodeDigest(args string) (Digest, error) {
	var out Digest
	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return Digest{}, fmt.Errorf("bad tool args: %w", err)
	}
	if out.Headline == "" {
		return Digest{}, fmt.Errorf("empty digest")
	}
	if out.Highlights == nil {
		out.Highlights = []string{}
	}
	if out.Repositories == nil {
		out.Repositories = []RepoSummary{}
	}
	return out, nil
}
