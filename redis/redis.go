package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectToRedisURL connects, pings and makes sure the consumer group exists
// on stream.
func ConnectToRedisURL(url, stream, group string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if err := rdb.
		XGroupCreateMkStream(ctx, stream, group, "$").
		Err(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = rdb.Close()
		return nil, fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}

	return rdb, nil
}

// WatchStreams reads the stream as a consumer group member until ctx ends,
// acking every message the handler accepts.
func WatchStreams(ctx context.Context, rdb *goredis.Client, opts WatchOptions, handle Handler, log logrus.FieldLogger) error {
	opts = opts.withDefaults()
	log = log.WithFields(logrus.Fields{"stream": opts.Stream, "consumer": opts.Consumer})
	backoff := opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    opts.Group,
			Consumer: opts.Consumer,
			Streams:  []string{opts.Stream, ">"},
			Count:    opts.Count,
			Block:    opts.Block,
			NoAck:    false,
		}).Result()
		switch {
		case errors.Is(err, goredis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).WithField("backoff", backoff).Warn("redis: read from stream failed")
			select {
			case <-time.After(backoff):
				backoff = nextBackoff(backoff, opts.BackoffMax)
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			backoff = opts.BackoffMin
		}
		for _, incomingStream := range res {
			for _, msg := range incomingStream.Messages {
				if err := handle(ctx, msg); err != nil {
					log.WithError(err).WithField("id", msg.ID).Error("redis: handling message failed")
					continue
				}
				if err := rdb.XAck(context.WithoutCancel(ctx), opts.Stream, opts.Group, msg.ID).Err(); err != nil {
					log.WithError(err).WithField("id", msg.ID).Error("redis: ack failed")
				}
			}
		}
	}
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur*2 > limit {
		return limit
	}
	return cur * 2
}

// DecodePayload unmarshals the JSON payload field of msg into v.
func DecodePayload(msg goredis.XMessage, v any) error {
	raw, ok := msg.Values[payloadField]
	if !ok {
		return fmt.Errorf("message %s has no %q field", msg.ID, payloadField)
	}
	var data []byte
	switch p := raw.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		return fmt.Errorf("message %s: unexpected payload type %T", msg.ID, raw)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("message %s: decode payload: %w", msg.ID, err)
	}
	return nil
}

// Publisher appends JSON payloads to a capped stream.
type Publisher struct {
	rdb    *goredis.Client
	stream string
	maxLen int64
}

func NewPublisher(rdb *goredis.Client, stream string, maxLen int64) *Publisher {
	return &Publisher{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (p *Publisher) Publish(ctx context.Context, v any) error {
	values, err := encodePayload(v)
	if err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func encodePayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return map[string]any{payloadField: string(data)}, nil
}
