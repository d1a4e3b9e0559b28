package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_FIFO(t *testing.T) {
	r := NewRing[int](4, Block, Park)
	require.Equal(t, 4, r.Cap())

	for i := 1; i <= 4; i++ {
		require.True(t, r.TryPush(i))
	}
	assert.False(t, r.TryPush(5), "ring is full")
	assert.Equal(t, 4, r.Len())

	for i := 1; i <= 4; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.TryPop()
	assert.False(t, ok)
}

func TestRing_CapacityRoundsUp(t *testing.T) {
	assert.Equal(t, 8, NewRing[int](5, Block, Park).Cap())
	assert.Equal(t, 1, NewRing[int](1, Block, Park).Cap())
	assert.Panics(t, func() { NewRing[int](0, Block, Park) })
}

func TestRing_OverwriteDropsOldest(t *testing.T) {
	r := NewRing[int](4, Overwrite, Park)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		require.NoError(t, r.Push(ctx, i))
	}

	assert.Equal(t, uint64(2), r.Dropped())
	var got []int
	for {
		v, ok := r.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{3, 4, 5, 6}, got)
}

func TestRing_BlockWaitsForConsumer(t *testing.T) {
	r := NewRing[int](2, Block, Park)
	ctx := context.Background()
	require.NoError(t, r.Push(ctx, 1))
	require.NoError(t, r.Push(ctx, 2))

	pushed := make(chan error, 1)
	go func() { pushed <- r.Push(ctx, 3) }()

	select {
	case <-pushed:
		t.Fatal("push into a full blocking ring returned early")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := r.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	require.NoError(t, <-pushed)
	assert.Equal(t, uint64(0), r.Dropped())
}

func TestRing_BlockHonorsCancellation(t *testing.T) {
	r := NewRing[int](1, Block, Park)
	require.True(t, r.TryPush(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Push(ctx, 2), context.DeadlineExceeded)
}

func TestRing_PopWaitStrategies(t *testing.T) {
	for _, strategy := range []WaitStrategy{Park, Spin} {
		r := NewRing[string](4, Block, strategy)
		go func() {
			time.Sleep(5 * time.Millisecond)
			r.TryPush("ready")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		v, err := r.Pop(ctx)
		cancel()
		require.NoError(t, err)
		assert.Equal(t, "ready", v)
	}
}

func TestRing_PopCancelledWhenEmpty(t *testing.T) {
	r := NewRing[int](4, Block, Park)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRing_DrainLatest(t *testing.T) {
	r := NewRing[int](8, Overwrite, Park)

	_, n := r.DrainLatest()
	assert.Zero(t, n)

	for i := 1; i <= 5; i++ {
		r.TryPush(i)
	}
	latest, n := r.DrainLatest()
	assert.Equal(t, 5, latest)
	assert.Equal(t, 5, n)
	assert.Zero(t, r.Len())
}

// TestRing_ConcurrentOrder streams values through a blocking ring and checks
// the consumer sees all of them, in order.
func TestRing_ConcurrentOrder(t *testing.T) {
	const total = 20000
	r := NewRing[int](16, Block, Park)
	ctx := context.Background()

	go func() {
		for i := 0; i < total; i++ {
			if err := r.Push(ctx, i); err != nil {
				return
			}
		}
	}()

	for want := 0; want < total; want++ {
		got, err := r.Pop(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestRing_ConcurrentOverwrite checks that with a racing overwriting producer
// the consumer only ever sees increasing values.
func TestRing_ConcurrentOverwrite(t *testing.T) {
	const total = 20000
	r := NewRing[int](8, Overwrite, Spin)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= total; i++ {
			_ = r.Push(ctx, i)
		}
	}()

	last := 0
	for last < total {
		v, err := r.Pop(ctx)
		require.NoError(t, err)
		require.Greater(t, v, last)
		last = v
	}
	<-done
}

func TestSnapshot_LoadBeforePublish(t *testing.T) {
	s := NewSnapshot[int]()
	_, version, ok := s.Load()
	assert.False(t, ok)
	assert.Zero(t, version)
	assert.Zero(t, s.Version())
}

func TestSnapshot_VersionsIncrease(t *testing.T) {
	s := NewSnapshot[string]()
	assert.Equal(t, uint64(1), s.Publish("a"))
	assert.Equal(t, uint64(2), s.Publish("b"))

	v, version, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, uint64(2), version)
}

func TestSnapshot_WaitForNewer(t *testing.T) {
	s := NewSnapshot[int]()
	s.Publish(10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, version, err := s.Wait(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, uint64(1), version)

	go func() {
		time.Sleep(5 * time.Millisecond)
		s.Publish(20)
	}()
	v, version, err = s.Wait(ctx, version)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, uint64(2), version)
}

func TestSnapshot_WaitTimesOut(t *testing.T) {
	s := NewSnapshot[int]()
	s.Publish(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, version, err := s.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), version)
}

type frame struct {
	id    uint64
	check uint64 // always id * 3
}

// TestSnapshot_NeverBetweenPublishes runs N publishes against concurrent
// readers. Every observed value must be exactly one of the published values,
// with a version no greater than N that matches the value.
func TestSnapshot_NeverBetweenPublishes(t *testing.T) {
	const publishes = 5000
	s := NewSnapshot[frame]()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastVersion uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				f, version, ok := s.Load()
				if !ok {
					continue
				}
				if f.check != f.id*3 || f.id != version || version > publishes || version < lastVersion {
					t.Errorf("inconsistent read: %+v at version %d (last %d)", f, version, lastVersion)
					return
				}
				lastVersion = version
			}
		}()
	}

	for i := uint64(1); i <= publishes; i++ {
		s.Publish(frame{id: i, check: i * 3})
	}
	close(stop)
	wg.Wait()

	_, version, _ := s.Load()
	assert.Equal(t, uint64(publishes), version)
}

type command struct {
	target string
	value  int
}

func newCommandQueue(capacity int) *ControlQueue[string, command] {
	return NewControlQueue(capacity, func(c command) string { return c.target })
}

func TestControlQueue_Coalesces(t *testing.T) {
	q := newCommandQueue(4)

	require.NoError(t, q.Enqueue(command{target: "window", value: 1}))
	require.NoError(t, q.Enqueue(command{target: "window", value: 2}))

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(1), q.Coalesced())

	c, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, command{target: "window", value: 2}, c)
	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestControlQueue_FIFOOfDistinctKeys(t *testing.T) {
	q := newCommandQueue(4)
	require.NoError(t, q.Enqueue(command{target: "a", value: 1}))
	require.NoError(t, q.Enqueue(command{target: "b", value: 1}))
	require.NoError(t, q.Enqueue(command{target: "a", value: 2}))
	require.NoError(t, q.Enqueue(command{target: "c", value: 1}))

	var got []command
	n := q.Drain(func(c command) { got = append(got, c) })

	assert.Equal(t, 3, n)
	assert.Equal(t, []command{{"a", 2}, {"b", 1}, {"c", 1}}, got)
	assert.Zero(t, q.Len())
}

func TestControlQueue_Bounded(t *testing.T) {
	q := newCommandQueue(2)
	require.NoError(t, q.Enqueue(command{target: "a"}))
	require.NoError(t, q.Enqueue(command{target: "b"}))

	assert.ErrorIs(t, q.Enqueue(command{target: "c"}), ErrQueueFull)
	assert.NoError(t, q.Enqueue(command{target: "a", value: 9}), "coalescing never needs a free slot")
}

func TestControlQueue_DrainAllowsReentrantEnqueue(t *testing.T) {
	q := newCommandQueue(2)
	require.NoError(t, q.Enqueue(command{target: "a"}))

	q.Drain(func(c command) {
		require.NoError(t, q.Enqueue(command{target: "followup"}))
	})

	c, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "followup", c.target)
}

func TestControlQueue_ConcurrentProducers(t *testing.T) {
	q := newCommandQueue(8)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = q.Enqueue(command{target: "resize", value: i})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(8*500-1), q.Coalesced())
}
