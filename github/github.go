// Package github is the GitHub data-access layer: it resolves an
// authenticated client from an OAuth token or a GitHub App installation,
// enumerates the repositories visible to it and fetches commit histories.
//
// Results are plain values created per call; nothing is kept between calls
// apart from the Resolver's cache of installation clients.
package github

import "github.com/sirupsen/logrus"

// DefaultBatchSize bounds the repository fetches in flight at once.
const DefaultBatchSize = 100

type Options struct {
	// BatchSize is the number of repositories fetched concurrently.
	BatchSize int
	// DisableAuthorFallback stops the owner and unfiltered retries that run
	// when an author hint matches nothing.
	DisableAuthorFallback bool
}

// Client is an API bound to the credential that authenticated it.
type Client struct {
	api  API
	cred Credential
	log  logrus.FieldLogger
	opts Options
}

func NewClient(api API, cred Credential, log logrus.FieldLogger, opts Options) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Client{
		api:  api,
		cred: cred,
		log:  log.WithField("auth", cred.Method().String()),
		opts: opts,
	}
}

func (c *Client) API() API               { return c.api }
func (c *Client) Credential() Credential { return c.cred }
