package ratelimit

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// LowHeadroomRatio is the share of the core quota under which headroom is
// considered low (50 of 5000 is low).
const LowHeadroomRatio = 0.02

// Status is a snapshot of the GitHub core quota.
type Status struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// UsedPercent is (limit-remaining)/limit*100, or 0 for an empty limit.
func (s Status) UsedPercent() float64 {
	if s.Limit <= 0 {
		return 0
	}
	return float64(s.Limit-s.Remaining) / float64(s.Limit) * 100
}

func (s Status) Low() bool {
	if s.Limit <= 0 {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*LowHeadroomRatio
}

type Limiter struct {
	github *rate.Limiter
	openai *rate.Limiter
}

// New builds a limiter from requests-per-minute budgets. A budget <= 0
// disables pacing for that bucket.
func New(githubReqPerMin, openaiReqPerMin int) *Limiter {
	return &Limiter{
		github: perMinute(githubReqPerMin),
		openai: perMinute(openaiReqPerMin),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
}

func (l *Limiter) WaitGithub(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.github.Wait(ctx)
}

func (l *Limiter) WaitOpenAI(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.openai.Wait(ctx)
}

// Transport paces each outgoing GitHub request through the limiter before
// handing it to Base.
type Transport struct {
	Limiter *Limiter
	Base    http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.WaitGithub(req.Context()); err != nil {
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
