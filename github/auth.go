package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	gogithub "github.com/google/go-github/v74/github"
	"github.com/jferrl/go-githubauth"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/urizennnn/autostandup-activity/cache"
	"github.com/urizennnn/autostandup-activity/ratelimit"
)

const (
	DefaultClientCacheSize = 1000
	// DefaultClientCacheTTL stays under the one hour life of an installation token.
	DefaultClientCacheTTL = 45 * time.Minute

	githubWebURL = "https://github.com"
)

// AppCredentials identify the GitHub App. Load them once at startup.
type AppCredentials struct {
	AppID      string
	PrivateKey []byte
}

type ResolverOptions struct {
	Limiter   *ratelimit.Limiter
	CacheSize int
	CacheTTL  time.Duration
	Fetch     Options
}

// Resolver turns a Credential into an authenticated Client.
type Resolver struct {
	app     AppCredentials
	log     logrus.FieldLogger
	opts    ResolverOptions
	clients *cache.Cache[int64, API]

	// installationTokens mints the installation token source; swapped in tests.
	installationTokens func(app AppCredentials, installationID int64) (oauth2.TokenSource, error)
	// baseURL points REST calls at another host (GitHub Enterprise, tests).
	baseURL string
}

func NewResolver(app AppCredentials, log logrus.FieldLogger, opts ResolverOptions) (*Resolver, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultClientCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultClientCacheTTL
	}
	clients, err := cache.New[int64, API](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("client cache: %w", err)
	}
	return &Resolver{
		app:                app,
		log:                log,
		opts:               opts,
		clients:            clients,
		installationTokens: installationTokenSource,
	}, nil
}

// ResolveClient authenticates with an OAuth token directly, or mints an
// installation token for a GitHub App installation.
func (r *Resolver) ResolveClient(ctx context.Context, cred Credential) (*Client, error) {
	switch cred.Method() {
	case AuthOAuth:
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token()})
		api, err := r.newAPI(ts)
		if err != nil {
			return nil, err
		}
		return NewClient(api, cred, r.log, r.opts.Fetch), nil

	case AuthGitHubApp:
		api, err := r.installationAPI(ctx, cred.InstallationID())
		if err != nil {
			return nil, err
		}
		return NewClient(api, cred, r.log, r.opts.Fetch), nil
	}
	return nil, ErrNoAuthentication
}

func (r *Resolver) installationAPI(ctx context.Context, installationID int64) (API, error) {
	if api, ok := r.clients.Get(installationID); ok {
		return api, nil
	}
	if r.app.AppID == "" {
		return nil, &ConfigurationError{Field: "GITHUB_APP_ID"}
	}
	if len(r.app.PrivateKey) == 0 {
		return nil, &ConfigurationError{Field: "GITHUB_PRIVATE_KEY"}
	}

	ts, err := r.installationTokens(r.app, installationID)
	if err != nil {
		return nil, &ConfigurationError{Field: "GITHUB_PRIVATE_KEY", Err: err}
	}
	// Exchange now so a rejected installation fails here, not on first use.
	tok, err := ts.Token()
	if err != nil {
		r.log.WithError(err).WithField("installation_id", installationID).Error("github: installation token exchange rejected")
		return nil, &AuthenticationError{InstallationID: installationID, Err: err}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	api, err := r.newAPI(oauth2.ReuseTokenSource(tok, ts))
	if err != nil {
		return nil, err
	}
	r.clients.Set(installationID, api, r.opts.CacheTTL)
	r.log.WithFields(logrus.Fields{
		"installation_id": installationID,
		"expires":         tok.Expiry,
	}).Info("github: installation client ready")
	return api, nil
}

// Forget drops a cached installation client, e.g. after the grant was revoked.
func (r *Resolver) Forget(installationID int64) {
	r.clients.Remove(installationID)
}

// newAPI stacks token auth over request pacing over the secondary rate
// limit waiter.
func (r *Resolver) newAPI(ts oauth2.TokenSource) (API, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiterClient(http.DefaultTransport)
	if err != nil {
		return nil, fmt.Errorf("secondary rate limit waiter: %w", err)
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   &ratelimit.Transport{Limiter: r.opts.Limiter, Base: waiter.Transport},
		},
	}

	gh := gogithub.NewClient(httpClient)
	if r.baseURL != "" {
		gh, err = gh.WithEnterpriseURLs(r.baseURL, r.baseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}
	return NewAPI(gh), nil
}

func installationTokenSource(app AppCredentials, installationID int64) (oauth2.TokenSource, error) {
	// The app JWT lives for ten minutes, the library default.
	appTokenSource, err := githubauth.NewApplicationTokenSource(app.AppID, app.PrivateKey)
	if err != nil {
		return nil, err
	}
	return githubauth.NewInstallationTokenSource(installationID, appTokenSource), nil
}

// ListAppInstallations lists every installation visible to the
// authenticated user. Installations without an account are kept with a nil
// Account.
func ListAppInstallations(ctx context.Context, api API) ([]AppInstallation, error) {
	raw, err := paginate(ctx, func(ctx context.Context, page int) ([]*gogithub.Installation, *gogithub.Response, error) {
		return api.ListUserInstallations(ctx, &gogithub.ListOptions{Page: page, PerPage: 100})
	})
	if err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}

	out := make([]AppInstallation, 0, len(raw))
	for _, in := range raw {
		if in == nil {
			continue
		}
		inst := AppInstallation{
			ID:                  in.GetID(),
			AppSlug:             in.GetAppSlug(),
			AppID:               in.GetAppID(),
			RepositorySelection: in.GetRepositorySelection(),
			TargetType:          in.GetTargetType(),
		}
		if in.Account != nil {
			inst.Account = &Account{Login: in.Account.GetLogin(), Type: in.Account.GetType()}
		}
		out = append(out, inst)
	}
	return out, nil
}

// FirstInstallationID returns the first installation's id, with ok false
// when there is none.
func FirstInstallationID(ctx context.Context, api API) (id int64, ok bool, err error) {
	installs, err := ListAppInstallations(ctx, api)
	if err != nil {
		return 0, false, err
	}
	if len(installs) == 0 {
		return 0, false, nil
	}
	return installs[0].ID, true, nil
}

// InstallationManagementURL links to the settings page of an installation.
func InstallationManagementURL(installationID int64, accountLogin, accountType string) string {
	if accountLogin != "" && accountType == "Organization" {
		return fmt.Sprintf("%s/organizations/%s/settings/installations/%d", githubWebURL, accountLogin, installationID)
	}
	return fmt.Sprintf("%s/settings/installations/%d", githubWebURL, installationID)
}
