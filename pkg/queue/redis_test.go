package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanPayload struct {
	Tickers []string `json:"tickers"`
}

type recordingJob struct {
	mu    sync.Mutex
	kind  string
	err   error
	got   []scanPayload
	calls int
	done  chan struct{}
}

func (j *recordingJob) Type() string { return j.kind }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := Decode[scanPayload](payload)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.calls++
	j.got = append(j.got, p)
	j.mu.Unlock()
	if j.done != nil {
		j.done <- struct{}{}
	}
	return j.err
}

var clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestQueue(t *testing.T, cfg Config) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := NewRedisQueue(client, nil, cfg, WithKeyPrefix("test:q"))
	q.now = func() time.Time { return clock }
	return q, mr
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{})
	job := &recordingJob{kind: "scan.request"}
	q.Register(job)

	id, err := q.Enqueue(ctx, "scan.request", scanPayload{Tickers: []string{"AAPL"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	took, err := q.processNext(ctx)
	require.NoError(t, err)
	assert.True(t, took)
	require.Equal(t, 1, job.calls)
	assert.Equal(t, []string{"AAPL"}, job.got[0].Tickers)

	n, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedMessageRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{RetryLimit: 1, RetryDelay: time.Minute})
	now := clock
	q.now = func() time.Time { return now }
	job := &recordingJob{kind: "scan.request", err: errors.New("lock held")}
	q.Register(job)

	_, err := q.Enqueue(ctx, "scan.request", scanPayload{})
	require.NoError(t, err)

	_, err = q.processNext(ctx)
	require.NoError(t, err)

	moved, err := q.moveDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved, "retry is not due yet")

	now = now.Add(2 * time.Minute)
	moved, err = q.moveDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	_, err = q.processNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, job.calls)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Attempts)
	assert.Equal(t, "lock held", dead[0].LastError)
}

func TestPermanentErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{RetryLimit: 5})
	q.Register(&recordingJob{kind: "scan.request"})

	// payload decodes into scanPayload only as an object
	require.NoError(t, q.client.LPush(ctx, q.queueKey(),
		`{"id":"m1","type":"scan.request","payload":"not-an-object"}`).Err())

	_, err := q.processNext(ctx)
	require.NoError(t, err)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "m1", dead[0].ID)

	retries, err := q.client.ZCard(ctx, q.retryKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, retries)
}

func TestUnknownTypeIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{})

	_, err := q.Enqueue(ctx, "nobody.home", scanPayload{})
	require.NoError(t, err)
	_, err = q.processNext(ctx)
	require.NoError(t, err)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "nobody.home", dead[0].Type)
}

func TestProcessNextEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t, Config{PollTimeout: time.Second})
	took, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.False(t, took)
}

func TestStartConsumesUntilStop(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{Workers: 2})
	job := &recordingJob{kind: "scan.request", done: make(chan struct{}, 1)}
	q.Register(job)
	q.Register(&recordingJob{kind: "scan.request"}) // duplicate ignored

	require.NoError(t, q.Start(ctx))
	assert.Error(t, q.Start(ctx), "second start")

	_, err := q.Enqueue(ctx, "scan.request", scanPayload{Tickers: []string{"MSFT"}})
	require.NoError(t, err)

	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
		t.Fatal("message was not consumed")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))
	require.NoError(t, q.Stop(stopCtx), "stop is idempotent")
}

func TestStartFailsWithoutRedis(t *testing.T) {
	q, mr := newTestQueue(t, Config{})
	mr.Close()
	assert.Error(t, q.Start(context.Background()))
}

func TestDecodeEmptyPayload(t *testing.T) {
	v, err := Decode[scanPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, v.Tickers)

	_, err = Decode[scanPayload](json.RawMessage(`[`))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestJobFunc(t *testing.T) {
	called := false
	j := JobFunc{Kind: "k", Fn: func(context.Context, json.RawMessage) error { called = true; return nil }}
	assert.Equal(t, "k", j.Type())
	require.NoError(t, j.Handle(context.Background(), nil))
	assert.True(t, called)
}
