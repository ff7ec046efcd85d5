package github

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/urizennnn/autostandup-activity/ratelimit"
)

// CheckRateLimit reads the core quota. It logs and returns nil on failure so
// it can be called ahead of any bulk operation.
func CheckRateLimit(ctx context.Context, api API, log logrus.FieldLogger) *ratelimit.Status {
	limits, _, err := api.RateLimit(ctx)
	if err != nil {
		log.WithError(err).Warn("github: rate limit check failed")
		return nil
	}
	core := limits.GetCore()
	if core == nil {
		log.Warn("github: rate limit response has no core quota")
		return nil
	}

	status := &ratelimit.Status{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}
	fields := logrus.Fields{
		"limit":     status.Limit,
		"remaining": status.Remaining,
		"reset":     status.Reset,
		"used_pct":  status.UsedPercent(),
	}
	if status.Low() {
		log.WithFields(fields).Warn("github: rate limit headroom is low")
	} else {
		log.WithFields(fields).Debug("github: rate limit")
	}
	return status
}
