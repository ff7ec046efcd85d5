package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// Handler processes one stream message. Returning nil acks it.
type Handler func(ctx context.Context, msg goredis.XMessage) error

type WatchOptions struct {
	Stream   string
	Group    string
	Consumer string
	Count    int64
	Block    time.Duration
	// BackoffMin and BackoffMax bound the wait after a failed read.
	BackoffMin time.Duration
	BackoffMax time.Duration
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Count <= 0 {
		o.Count = 10
	}
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 100 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 3 * time.Second
	}
	return o
}
