package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type SecretKey string

const (
	SecretGithubPrivateKey SecretKey = "APP_GITHUB_PRIVATE_KEY"
	SecretGithubAppID      SecretKey = "APP_GITHUB_APP_ID"
	SecretOpenAIKey        SecretKey = "APP_OPENAI_API_KEY"
)

type Config struct {
	// App
	Env           string        `split_words:"true" default:"prod" validate:"oneof=dev staging prod"`
	LogLevel      string        `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	ShutdownGrace time.Duration `split_words:"true" default:"15s" validate:"gt=0"`

	// Redis
	RedisURL      string `split_words:"true" validate:"required"`
	JobStream     string `split_words:"true" default:"activity:jobs" validate:"required"`
	ResultStream  string `split_words:"true" default:"activity:results" validate:"required"`
	ConsumerGroup string `split_words:"true" default:"scanners" validate:"required"`

	// GitHub App. Optional here: only the installation path needs them.
	GithubAppID      string `envconfig:"GITHUB_APP_ID"`
	GithubPrivateKey string `envconfig:"GITHUB_PRIVATE_KEY"`

	// OPENAI
	OpenaiApiKey string `split_words:"true"`

	// Performance tuning
	GithubRateLimit int           `split_words:"true" default:"80" validate:"gt=0"`
	OpenaiRateLimit int           `split_words:"true" default:"50" validate:"gt=0"`
	CacheSize       int           `split_words:"true" default:"1000" validate:"gt=0"`
	ClientCacheTTL  time.Duration `envconfig:"CLIENT_CACHE_TTL" default:"45m" validate:"gt=0,lt=1h"`
	CommitBatchSize int           `split_words:"true" default:"100" validate:"gt=0"`
	AuthorFallback  bool          `split_words:"true" default:"true"`
	MessageTimeout  time.Duration `split_words:"true" default:"5m" validate:"gt=0"`
}

type Loader struct {
	Prefix   string
	Validate *validator.Validate
	// Files overrides the dotenv lookup list when set.
	Files []string
}
