package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/urizennnn/autostandup-activity/config"
	"github.com/urizennnn/autostandup-activity/digest"
	"github.com/urizennnn/autostandup-activity/github"
	"github.com/urizennnn/autostandup-activity/ratelimit"
	"github.com/urizennnn/autostandup-activity/redis"
	"github.com/urizennnn/autostandup-activity/scan"
)

var consumerName = fmt.Sprintf("%s-%d", "auto-standup-activity", os.Getpid())

const resultStreamMaxLen = 10000

func main() {
	log := logrus.New()
	log.Info("starting activity service")

	cfg, err := config.NewLoader("APP").Load()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}
	configureLogger(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.ConnectToRedisURL(cfg.RedisURL, cfg.JobStream, cfg.ConsumerGroup)
	if err != nil {
		log.WithError(err).Fatal("redis connection error")
	}
	defer rdb.Close()

	limiter := ratelimit.New(cfg.GithubRateLimit, cfg.OpenaiRateLimit)
	resolver, err := github.NewResolver(
		github.AppCredentials{AppID: cfg.GithubAppID, PrivateKey: []byte(cfg.GithubPrivateKey)},
		log,
		github.ResolverOptions{
			Limiter:   limiter,
			CacheSize: cfg.CacheSize,
			CacheTTL:  cfg.ClientCacheTTL,
			Fetch: github.Options{
				BatchSize:             cfg.CommitBatchSize,
				DisableAuthorFallback: !cfg.AuthorFallback,
			},
		},
	)
	if err != nil {
		log.WithError(err).Fatal("github resolver error")
	}

	// A nil *digest.Summarizer must not reach the interface.
	var summarizer scan.Summarizer
	if cfg.OpenaiApiKey != "" {
		summarizer = digest.New(cfg.OpenaiApiKey, limiter, log)
	} else {
		log.Info("APP_OPENAI_API_KEY not set, digests disabled")
	}

	publisher := redis.NewPublisher(rdb, cfg.ResultStream, resultStreamMaxLen)
	scanner := scan.New(resolver, summarizer, publisher, cfg.MessageTimeout, log)

	handle := func(ctx context.Context, msg goredis.XMessage) error {
		var job scan.Job
		if err := redis.DecodePayload(msg, &job); err != nil {
			// Redelivery can't fix a malformed payload.
			log.WithError(err).WithField("id", msg.ID).Warn("dropping undecodable job")
			return nil
		}
		jobCtx, cancel := graceContext(ctx, cfg.ShutdownGrace)
		defer cancel()
		return scanner.Process(jobCtx, job)
	}

	err = redis.WatchStreams(ctx, rdb, redis.WatchOptions{
		Stream:   cfg.JobStream,
		Group:    cfg.ConsumerGroup,
		Consumer: consumerName,
	}, handle, log)
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("watch streams")
	}
	log.Info("activity service stopped")
}

func configureLogger(log *logrus.Logger, cfg config.Config) {
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Env != "dev" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// graceContext outlives parent by grace, so a job in flight at shutdown
// can still finish and publish.
func graceContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stopAfter := context.AfterFunc(parent, func() {
		time.AfterFunc(grace, cancel)
	})
	return ctx, func() {
		stopAfter()
		cancel()
	}
}
