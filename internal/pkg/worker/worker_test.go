package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySink 前 failures 次调用返回错误
type flakySink struct {
	mu        sync.Mutex
	failures  int
	calls     int
	delivered []string
}

func (s *flakySink) PushToAccount(accountID, title, body string, ext map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("push gateway unavailable")
	}
	s.delivered = append(s.delivered, accountID)
	return nil
}

func (s *flakySink) snapshot() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]string(nil), s.delivered...)
}

func TestPushPool_Delivers(t *testing.T) {
	sink := &flakySink{}
	pool := NewPushPool(sink, nil, 2, 16)
	pool.Start()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, pool.PushToAccount(id, "title", "body", nil))
	}
	pool.Stop()

	_, delivered := sink.snapshot()
	assert.ElementsMatch(t, []string{"1", "2", "3"}, delivered)
}

func TestPushPool_RetriesFailures(t *testing.T) {
	sink := &flakySink{failures: 2}
	pool := NewPushPool(sink, nil, 1, 4)
	pool.Backoff = time.Millisecond
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.PushToAccount("7", "title", "body", map[string]string{"post_id": "1"}))

	assert.Eventually(t, func() bool {
		_, delivered := sink.snapshot()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)

	calls, _ := sink.snapshot()
	assert.Equal(t, 3, calls)
}

func TestPushPool_GivesUpAfterMaxRetry(t *testing.T) {
	sink := &flakySink{failures: 100}
	pool := NewPushPool(sink, nil, 1, 4)
	pool.Backoff = time.Millisecond
	pool.MaxRetry = 2
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.PushToAccount("7", "title", "body", nil))

	assert.Eventually(t, func() bool {
		calls, _ := sink.snapshot()
		return calls == 3
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	calls, delivered := sink.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, delivered)
}

func TestPushPool_QueueFull(t *testing.T) {
	pool := NewPushPool(&flakySink{}, nil, 1, 2)
	// 未启动 worker，队列写满后拒绝
	require.NoError(t, pool.PushToAccount("1", "t", "b", nil))
	require.NoError(t, pool.PushToAccount("2", "t", "b", nil))
	assert.ErrorIs(t, pool.PushToAccount("3", "t", "b", nil), ErrQueueFull)
}

func TestPushPool_RejectsAfterStop(t *testing.T) {
	pool := NewPushPool(&flakySink{}, nil, 1, 4)
	pool.Start()
	pool.Stop()
	assert.ErrorIs(t, pool.PushToAccount("1", "t", "b", nil), ErrQueueFull)
}
