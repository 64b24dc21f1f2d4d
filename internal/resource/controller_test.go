package resource

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Limit exceeded
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())

	// Non-positive sizes are ignored.
	require.NoError(t, c.AcquireMemory(0))
	c.ReleaseMemory(-3)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_SelectSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentSelects: 2})
	ctx := context.Background()

	require.NoError(t, c.AcquireSelect(ctx))
	require.NoError(t, c.AcquireSelect(ctx))
	assert.Equal(t, int64(2), c.InFlight())

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireSelect(waitCtx), context.DeadlineExceeded)
	assert.Equal(t, int64(2), c.InFlight())

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		assert.NoError(t, c.AcquireSelect(ctx))
	}()

	c.ReleaseSelect()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not admitted")
	}

	c.ReleaseSelect()
	c.ReleaseSelect()
	assert.Zero(t, c.InFlight())
}

func TestController_UnlimitedSelects(t *testing.T) {
	c := NewController(Config{})

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.AcquireSelect(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(64), c.InFlight())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireSelect(context.Background()))
	c.ReleaseSelect()
	require.NoError(t, c.AcquireMemory(1<<40))
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.InFlight())
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
}
