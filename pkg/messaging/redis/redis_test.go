package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/pkg/circuitbreaker"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not a url"}, nil, nil)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestRedisBroker_PublishTripsBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	m := metrics.New("test")
	b := newBroker(client, nil, m)
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, "booking.status_changed", map[string]string{"id": "1"})
		require.Error(t, err)
	}

	err := b.Publish(ctx, "booking.status_changed", map[string]string{"id": "1"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, float64(6), testutil.ToFloat64(m.RedisOperations.WithLabelValues("publish", "error")))
}

func TestRedisBroker_PublishRejectsUnencodable(t *testing.T) {
	b := newBroker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), nil, nil)
	defer b.Close()
	assert.ErrorContains(t, b.Publish(context.Background(), "x", make(chan int)), "failed to marshal message")
}
