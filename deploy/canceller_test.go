package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/marosg42/virtual-cluster/testflinger"
	"github.com/stretchr/testify/assert"
)

func TestSafeCancel_CancelsRunningJobOnce(t *testing.T) {
	client := newMockClient()
	client.running["j1"] = true
	c := NewCanceller(client, testLogger())
	defer c.Close()

	assert.True(t, c.SafeCancel(context.Background(), "j1"))
	assert.False(t, c.SafeCancel(context.Background(), "j1"))
	assert.Equal(t, 1, client.cancelCount("j1"))
}

func TestSafeCancel_NotRunningMarksWithoutCancelling(t *testing.T) {
	client := newMockClient()
	c := NewCanceller(client, testLogger())
	defer c.Close()

	assert.False(t, c.SafeCancel(context.Background(), "j1"))
	assert.Zero(t, client.cancelCount("j1"))

	// Marked terminal: the second call must not even query the service.
	assert.False(t, c.SafeCancel(context.Background(), "j1"))
	assert.Equal(t, 1, client.runningCount("j1"))
}

func TestSafeCancel_AlreadyTerminalAbsorbed(t *testing.T) {
	client := newMockClient()
	client.running["j1"] = true
	client.cancelErr["j1"] = fmt.Errorf("cancel j1: %w", testflinger.ErrAlreadyTerminal)
	c := NewCanceller(client, testLogger())
	defer c.Close()

	assert.False(t, c.SafeCancel(context.Background(), "j1"))

	// The race outcome is bookkept; no further cancel attempts follow.
	assert.False(t, c.SafeCancel(context.Background(), "j1"))
	assert.Equal(t, 1, client.cancelCount("j1"))
}

func TestSafeCancel_FailureLeavesJobRetryable(t *testing.T) {
	client := newMockClient()
	client.running["j1"] = true
	client.cancelErr["j1"] = errors.New("connection refused")
	c := NewCanceller(client, testLogger())
	defer c.Close()

	assert.False(t, c.SafeCancel(context.Background(), "j1"))

	client.mu.Lock()
	delete(client.cancelErr, "j1")
	client.mu.Unlock()

	assert.True(t, c.SafeCancel(context.Background(), "j1"))
	assert.Equal(t, 2, client.cancelCount("j1"))
}

func TestSafeCancel_ConcurrentCallsCancelAtMostOnce(t *testing.T) {
	client := newMockClient()
	client.running["j1"] = true
	c := NewCanceller(client, testLogger())
	defer c.Close()

	var wg sync.WaitGroup
	var cancelled atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SafeCancel(context.Background(), "j1") {
				cancelled.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), cancelled.Load())
	assert.Equal(t, 1, client.cancelCount("j1"))
}

func TestSafeCancel_AfterClose(t *testing.T) {
	client := newMockClient()
	client.running["j1"] = true
	c := NewCanceller(client, testLogger())
	c.Close()

	assert.False(t, c.SafeCancel(context.Background(), "j1"))
	assert.Zero(t, client.cancelCount("j1"))
}
