package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func NewLoader(prefix string) *Loader {
	v := validator.New()
	return &Loader{Prefix: prefix, Validate: v}
}

// Load reads dotenv files, then the environment, then validates. The
// result is meant to be loaded once at startup and passed down by value.
func (l *Loader) Load() (Config, error) {
	var cfg Config

	if err := l.loadDotEnv(); err != nil {
		logrus.WithError(err).Debug("dotenv skipped")
	}
	if err := envconfig.Process(l.Prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env load: %w", err)
	}
	cfg.GithubPrivateKey = NormalizePrivateKey(cfg.GithubPrivateKey)

	if err := l.Validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"env":            cfg.Env,
		"logLevel":       cfg.LogLevel,
		"redisURL_set":   cfg.RedisURL != "",
		"githubApp_set":  cfg.GithubAppID != "" && cfg.GithubPrivateKey != "",
		"openaiKey_set":  cfg.OpenaiApiKey != "",
		"commitBatch":    cfg.CommitBatchSize,
		"authorFallback": cfg.AuthorFallback,
	}).Info("config loaded")

	return cfg, nil
}

// NormalizePrivateKey restores newlines in a PEM key that was stored in a
// single-line env var with literal \n escapes.
func NormalizePrivateKey(key string) string {
	key = strings.TrimSpace(key)
	if !strings.Contains(key, "\n") && strings.Contains(key, `\n`) {
		key = strings.ReplaceAll(key, `\n`, "\n")
	}
	return key
}

func (l *Loader) loadDotEnv() error {
	files := l.Files
	if files == nil {
		files = []string{".env"}
		if appEnv := strings.TrimSpace(os.Getenv("APP_ENV")); appEnv != "" {
			files = append(files, ".env."+appEnv)
		}
		if goEnv := strings.TrimSpace(os.Getenv("GO_ENV")); goEnv != "" && goEnv != os.Getenv("APP_ENV") {
			files = append(files, ".env."+goEnv)
		}
	}

	var loadedAny bool
	for _, f := range files {
		if fileExists(f) {
			if err := godotenv.Overload(f); err != nil {
				logrus.WithError(err).WithField("file", f).Warn("dotenv: failed loading")
				continue
			}
			loadedAny = true
		}
	}

	if !loadedAny {
		return fmt.Errorf("no .env files found (looked for: %s)", strings.Join(files, ", "))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fetchSecret(key SecretKey) (string, error) {
	val := strings.TrimSpace(os.Getenv(string(key)))
	if val == "" {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return val, nil
}

func FetchSecretByName(secret SecretKey) (string, error) {
	return fetchSecret(secret)
}
