package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/nestq/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokerFactory creates a fresh broker for one test case
type brokerFactory func(t *testing.T, options ...Option) Broker[int]

// acceptanceTest represents a single acceptance test case
type acceptanceTest struct {
	name string
	test func(t *testing.T, createBroker brokerFactory)
}

func runAcceptanceTests(t *testing.T, name string, factory brokerFactory) {
	tests := []acceptanceTest{
		{"creates unique topics", testUniqueTopics},
		{"reuses existing topics", testReuseTopics},
		{"validates topic names and handlers", testValidation},
		{"delivers each value to exactly one consumer", testCompetingConsumers},
		{"preserves fifo order for a single consumer", testSingleConsumerOrder},
		{"reports publish after stop", testPublishAfterStop},
		{"stops when the last producer is done", testProducerCountdown},
		{"contains handler failures to one consumer", testHandlerFailure},
		{"unsubscribes cleanly", testUnsubscribe},
		{"stops taking buffered values once cancelled", testCancelWithBacklog},
		{"handles context cancellation", testContextCancellation},
		{"never hands end-of-stream to a handler", testSentinelFiltered},
		{"signals end-of-stream once to stream handlers", testStreamHandler},
		{"closes every topic", testClose},
		{"bounds waits by context", testWaitDeadline},
		{"honours per-topic capacity", testTopicCapacity},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", name, tt.name), func(t *testing.T) {
			tt.test(t, factory)
		})
	}
}

func TestBrokerImplementations(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		runAcceptanceTests(t, "Local", func(t *testing.T, options ...Option) Broker[int] {
			b, err := Local[int](options...)
			require.NoError(t, err)
			t.Cleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = b.Close(ctx)
			})
			return b
		})
	})
}

func TestLocal_Options(t *testing.T) {
	_, err := Local[int](Capacity(0))
	require.ErrorIs(t, err, queue.ErrInvalidCapacity)

	_, err = Local[int](TopicCapacity("coords", -1))
	require.ErrorIs(t, err, queue.ErrInvalidCapacity)

	_, err = Local[int](TopicCapacity("", 3))
	require.ErrorIs(t, err, ErrEmptyTopic)

	b, err := Local[int]()
	require.NoError(t, err)
	tp, err := b.Topic(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, queue.DefaultCapacity, tp.Cap())
}

func TestLocal_StopLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b, err := Local[int](Logger(logger))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "logged", 1))
	require.NoError(t, b.Publish(ctx, "logged", 2))
	require.NoError(t, b.StopPublishing(ctx, "logged"))
	require.NoError(t, b.StopPublishing(ctx, "logged"))

	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("topic stopped")), out)
	assert.Contains(t, out, "state=draining")
	assert.Contains(t, out, "buffered=2")
	assert.Contains(t, out, "subscriptions=0")
	assert.Contains(t, out, "topic=logged")
	require.NoError(t, b.Close(waitCtx(t)))
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testUniqueTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1, err := broker.Topic(context.Background(), "test1")
	require.NoError(t, err)
	topic2, err := broker.Topic(context.Background(), "test2")
	require.NoError(t, err)
	assert.NotSame(t, topic1, topic2)
	assert.Equal(t, []string{"test1", "test2"}, broker.Topics())
}

func testReuseTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1, err := broker.Topic(context.Background(), "test")
	require.NoError(t, err)
	topic2, err := broker.Topic(context.Background(), "test")
	require.NoError(t, err)
	assert.Same(t, topic1, topic2)

	require.NoError(t, broker.Publish(context.Background(), "test", 1))
	assert.Equal(t, 1, topic1.Len())
}

func testValidation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	_, err := broker.Topic(ctx, "")
	require.ErrorIs(t, err, ErrEmptyTopic)
	require.ErrorIs(t, broker.Publish(ctx, "", 1), ErrEmptyTopic)
	require.ErrorIs(t, broker.StopPublishing(ctx, ""), ErrEmptyTopic)
	_, err = broker.Producer(ctx, "")
	require.ErrorIs(t, err, ErrEmptyTopic)

	_, err = broker.Subscribe(ctx, "test", nil)
	require.ErrorIs(t, err, ErrNilHandler)
	_, err = broker.SubscribeStream(ctx, "test", nil)
	require.ErrorIs(t, err, ErrNilHandler)
}

func testCompetingConsumers(t *testing.T, createBroker brokerFactory) {
	const (
		values    = 1000
		consumers = 4
	)
	broker := createBroker(t, Capacity(3))
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []int
	)
	subs := make([]Subscription, consumers)
	for i := range subs {
		sub, err := broker.Subscribe(ctx, "work", func(_ context.Context, v int) error {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		subs[i] = sub
	}

	for i := range values {
		require.NoError(t, broker.Publish(ctx, "work", i))
	}
	require.NoError(t, broker.StopPublishing(ctx, "work"))
	require.NoError(t, broker.Wait(waitCtx(t)))

	require.Len(t, seen, values)
	sort.Ints(seen)
	for i, v := range seen {
		require.Equal(t, i, v)
	}

	var total int64
	for _, s := range subs {
		<-s.Done()
		assert.NoError(t, s.Err())
		total += s.Delivered()
	}
	assert.Equal(t, int64(values), total)
	assert.True(t, broker.HasStoppedPublishing(ctx, "work"))
}

func testSingleConsumerOrder(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t, Capacity(1))
	ctx := context.Background()

	var got []int
	sub, err := broker.Subscribe(ctx, "ordered", func(_ context.Context, v int) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)

	for i := range 500 {
		require.NoError(t, broker.Publish(ctx, "ordered", i))
	}
	require.NoError(t, broker.StopPublishing(ctx, "ordered"))
	<-sub.Done()

	require.Len(t, got, 500)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func testPublishAfterStop(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	assert.False(t, broker.HasStoppedPublishing(ctx, "late"))
	require.NoError(t, broker.StopPublishing(ctx, "late"))
	require.NoError(t, broker.StopPublishing(ctx, "late"), "stop is idempotent")
	assert.True(t, broker.HasStoppedPublishing(ctx, "late"))

	err := broker.Publish(ctx, "late", 1)
	require.ErrorIs(t, err, ErrStopped)
	assert.Contains(t, err.Error(), "late")

	tp, err := broker.Topic(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, 0, tp.Len())
	assert.Equal(t, queue.Drained, tp.State())
}

func testProducerCountdown(t *testing.T, createBroker brokerFactory) {
	const producers = 3
	broker := createBroker(t, Capacity(2))
	ctx := context.Background()

	var delivered atomic.Int64
	sub, err := broker.Subscribe(ctx, "multi", func(context.Context, int) error {
		delivered.Add(1)
		return nil
	})
	require.NoError(t, err)

	handles := make([]Producer[int], producers)
	for i := range handles {
		handles[i], err = broker.Producer(ctx, "multi")
		require.NoError(t, err)
	}

	// The fastest producer finishing first must not cut off the others.
	require.NoError(t, handles[0].Publish(ctx, 0))
	handles[0].Done()
	handles[0].Done()
	assert.False(t, broker.HasStoppedPublishing(ctx, "multi"))
	require.ErrorIs(t, handles[0].Publish(ctx, 1), ErrProducerDone)

	var wg sync.WaitGroup
	for _, p := range handles[1:] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.Done()
			for i := range 100 {
				assert.NoError(t, p.Publish(ctx, i))
			}
		}()
	}
	wg.Wait()

	assert.True(t, broker.HasStoppedPublishing(ctx, "multi"))
	<-sub.Done()
	assert.Equal(t, int64(201), delivered.Load())
}

func testHandlerFailure(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t, Capacity(4))
	ctx := context.Background()
	boom := errors.New("disk full")

	var failed atomic.Bool
	faulty, err := broker.Subscribe(ctx, "sink", func(_ context.Context, v int) error {
		failed.Store(true)
		return boom
	})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, "sink", -1))
	<-faulty.Done()

	var healthyCount atomic.Int64
	healthy, err := broker.Subscribe(ctx, "sink", func(context.Context, int) error {
		healthyCount.Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := range 49 {
		require.NoError(t, broker.Publish(ctx, "sink", i))
	}
	require.NoError(t, broker.StopPublishing(ctx, "sink"))

	err = broker.Wait(waitCtx(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), faulty.ID())

	<-healthy.Done()
	require.True(t, failed.Load())
	require.ErrorIs(t, faulty.Err(), boom)
	assert.NoError(t, healthy.Err())
	assert.Equal(t, int64(0), faulty.Delivered())
	assert.Equal(t, int64(49), healthyCount.Load(), "only the value that failed is lost")
}

func testUnsubscribe(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "idle", func(context.Context, int) error { return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "idle", sub.Topic())

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after unsubscribe")
	}
	assert.NoError(t, sub.Err())
	assert.False(t, broker.HasStoppedPublishing(ctx, "idle"), "unsubscribe leaves the topic running")
	require.NoError(t, broker.Wait(waitCtx(t)))
}

func testCancelWithBacklog(t *testing.T, createBroker brokerFactory) {
	tests := []struct {
		name    string
		cancel  func(sub Subscription, cancel context.CancelFunc)
		wantErr error
	}{
		{"unsubscribe", func(sub Subscription, _ context.CancelFunc) { sub.Unsubscribe() }, nil},
		{"context", func(_ Subscription, cancel context.CancelFunc) { cancel() }, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := createBroker(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			for i := range 20 {
				require.NoError(t, broker.Publish(ctx, "backlog", i))
			}

			started := make(chan struct{})
			release := make(chan struct{})
			var handled atomic.Int64
			sub, err := broker.Subscribe(ctx, "backlog", func(context.Context, int) error {
				if handled.Add(1) == 1 {
					close(started)
					<-release
				}
				return nil
			})
			require.NoError(t, err)

			<-started
			tt.cancel(sub, cancel)
			close(release)

			select {
			case <-sub.Done():
			case <-time.After(time.Second):
				t.Fatal("worker did not exit")
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, sub.Err(), tt.wantErr)
			} else {
				require.NoError(t, sub.Err())
			}
			assert.Equal(t, int64(1), handled.Load(), "the cancelled worker took more buffered values")
			assert.Equal(t, int64(1), sub.Delivered())

			topic, err := broker.Topic(context.Background(), "backlog")
			require.NoError(t, err)
			assert.Equal(t, 19, topic.Len(), "the backlog stays for other consumers")
		})
	}
}

func testContextCancellation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := broker.Subscribe(ctx, "cancel", func(context.Context, int) error { return nil })
	require.NoError(t, err)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not observe cancellation")
	}
	require.ErrorIs(t, sub.Err(), context.Canceled)

	full, err := broker.Topic(context.Background(), "full")
	require.NoError(t, err)
	for range full.Cap() {
		require.NoError(t, full.Publish(context.Background(), 1))
	}
	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	require.ErrorIs(t, full.Publish(short, 2), context.DeadlineExceeded)
}

func testSentinelFiltered(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	var calls atomic.Int64
	sub, err := broker.Subscribe(ctx, "zeros", func(_ context.Context, v int) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, broker.Publish(ctx, "zeros", 0))
	}
	require.NoError(t, broker.StopPublishing(ctx, "zeros"))
	<-sub.Done()

	assert.Equal(t, int64(3), calls.Load(), "zero values are payload, end-of-stream is not")
}

func testStreamHandler(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	var (
		values []int
		ends   int
	)
	sub, err := broker.SubscribeStream(ctx, "stream", func(_ context.Context, v int, ok bool) error {
		if !ok {
			ends++
			return nil
		}
		values = append(values, v)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "stream", 1))
	require.NoError(t, broker.Publish(ctx, "stream", 2))
	require.NoError(t, broker.StopPublishing(ctx, "stream"))
	<-sub.Done()

	assert.Equal(t, []int{1, 2}, values)
	assert.Equal(t, 1, ends)
	assert.Equal(t, int64(2), sub.Delivered())
}

func testClose(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	ctx := context.Background()

	var subs []Subscription
	for _, name := range []string{"a", "b", "c"} {
		sub, err := broker.Subscribe(ctx, name, func(context.Context, int) error { return nil })
		require.NoError(t, err)
		subs = append(subs, sub)
	}

	require.NoError(t, broker.Close(waitCtx(t)))
	for _, s := range subs {
		assert.True(t, broker.HasStoppedPublishing(ctx, s.Topic()))
		select {
		case <-s.Done():
		default:
			t.Fatalf("subscription on %s still running after close", s.Topic())
		}
	}
}

func testWaitDeadline(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	_, err := broker.Subscribe(context.Background(), "forever", func(context.Context, int) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, broker.Wait(ctx), context.DeadlineExceeded)
}

func testTopicCapacity(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t, Capacity(8), TopicCapacity("small", 2))
	ctx := context.Background()

	small, err := broker.Topic(ctx, "small")
	require.NoError(t, err)
	big, err := broker.Topic(ctx, "big")
	require.NoError(t, err)

	assert.Equal(t, 2, small.Cap())
	assert.Equal(t, 8, big.Cap())
	assert.Equal(t, "small", small.Name())
	assert.Equal(t, queue.Running, small.State())
}
