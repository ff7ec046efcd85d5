package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	Repos []string `json:"repos"`
	Since string   `json:"since"`
}

func TestPayloadRoundTrip(t *testing.T) {
	values, err := encodePayload(job{Repos: []string{"acme/api"}, Since: "2024-03-01"})
	require.NoError(t, err)

	var got job
	require.NoError(t, DecodePayload(goredis.XMessage{ID: "1-0", Values: values}, &got))
	assert.Equal(t, []string{"acme/api"}, got.Repos)
}

func TestDecodePayloadErrors(t *testing.T) {
	var v job
	err := DecodePayload(goredis.XMessage{ID: "1-0", Values: map[string]any{}}, &v)
	assert.ErrorContains(t, err, `no "payload" field`)

	err = DecodePayload(goredis.XMessage{ID: "1-1", Values: map[string]any{"payload": 7}}, &v)
	assert.ErrorContains(t, err, "unexpected payload type")

	err = DecodePayload(goredis.XMessage{ID: "1-2", Values: map[string]any{"payload": "{"}}, &v)
	assert.ErrorContains(t, err, "decode payload")

	require.NoError(t, DecodePayload(goredis.XMessage{ID: "1-3", Values: map[string]any{"payload": []byte(`{"since":"x"}`)}}, &v))
	assert.Equal(t, "x", v.Since)
}

func TestNextBackoff(t *testing.T) {
	d := 100 * time.Millisecond
	var seen []time.Duration
	for i := 0; i < 7; i++ {
		d = nextBackoff(d, 3*time.Second)
		seen = append(seen, d)
	}
	assert.Equal(t, 200*time.Millisecond, seen[0])
	assert.Equal(t, 3*time.Second, seen[len(seen)-1])
}

func TestWatchOptionsDefaults(t *testing.T) {
	o := WatchOptions{Stream: "s", Group: "g", Consumer: "c"}.withDefaults()
	assert.Equal(t, int64(10), o.Count)
	assert.Equal(t, 5*time.Second, o.Block)
	assert.Equal(t, 100*time.Millisecond, o.BackoffMin)
	assert.Equal(t, 3*time.Second, o.BackoffMax)
}
