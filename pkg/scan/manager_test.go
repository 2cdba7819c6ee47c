package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeScanner struct {
	cb      Callback
	started int
	stopped int
}

func (f *fakeScanner) Start(_ []Filter, _ Settings, cb Callback) error {
	f.cb = cb
	f.started++
	return nil
}

func (f *fakeScanner) Stop(_ Callback) error {
	f.stopped++
	return nil
}

func result(address string) Result {
	return Result{Address: address, Name: address}
}

func receive(t *testing.T, events <-chan Event) (Event, bool) {
	select {
	case event, ok := <-events:
		return event, ok
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}, false
	}
}

func TestManagerDedup(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)
	assert.Equal(t, 1, scanner.started)

	scanner.cb.OnResults(result("aa"))
	scanner.cb.OnResults(result("bb"))
	scanner.cb.OnResults(result("aa"))
	scanner.cb.OnResults(result("cc"))

	event, ok := receive(t, events)
	assert.True(t, ok)
	assert.Equal(t, "aa", event.Device.Address)

	event, ok = receive(t, events)
	assert.True(t, ok)
	assert.Equal(t, "bb", event.Device.Address)

	event, ok = receive(t, events)
	assert.True(t, ok)
	assert.Equal(t, "cc", event.Device.Address)

	manager.Stop()

	_, ok = receive(t, events)
	assert.False(t, ok)
}

func TestManagerBatchOrder(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	// batches are expanded in order with duplicates dropped
	scanner.cb.OnResults(result("aa"), result("bb"), result("aa"))

	event, _ := receive(t, events)
	assert.Equal(t, "aa", event.Device.Address)

	event, _ = receive(t, events)
	assert.Equal(t, "bb", event.Device.Address)

	manager.Stop()

	_, ok := receive(t, events)
	assert.False(t, ok)
}

func TestManagerStop(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	// stop without a session is a no-op
	manager.Stop()
	assert.Equal(t, 0, scanner.stopped)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)
	assert.True(t, manager.Scanning())

	manager.Stop()
	manager.Stop()
	assert.False(t, manager.Scanning())
	assert.Equal(t, 1, scanner.stopped)

	_, ok := receive(t, events)
	assert.False(t, ok)

	// deliveries after stop are dropped
	scanner.cb.OnResults(result("aa"))
}

func TestManagerRestart(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events1, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	// a second start is rejected
	events2, err := manager.Start(context.Background(), nil, Settings{})
	assert.Equal(t, ErrScanning, err)
	assert.Nil(t, events2)

	scanner.cb.OnResults(result("aa"))
	event, _ := receive(t, events1)
	assert.Equal(t, "aa", event.Device.Address)

	manager.Stop()

	// stopping resets the seen set
	events2, err = manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	scanner.cb.OnResults(result("aa"))
	event, _ = receive(t, events2)
	assert.Equal(t, "aa", event.Device.Address)

	manager.Stop()
}

func TestManagerClearSeen(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	scanner.cb.OnResults(result("aa"))
	event, _ := receive(t, events)
	assert.Equal(t, "aa", event.Device.Address)

	scanner.cb.OnResults(result("aa"))

	manager.ClearSeen()

	scanner.cb.OnResults(result("aa"))
	event, _ = receive(t, events)
	assert.Equal(t, "aa", event.Device.Address)

	manager.Stop()
}

func TestManagerFailure(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	scanner.cb.OnResults(result("aa"))
	scanner.cb.OnFailure(FailureInternal)

	event, ok := receive(t, events)
	assert.True(t, ok)
	assert.Equal(t, "aa", event.Device.Address)
	assert.NoError(t, event.Err)

	// the failure is observed exactly once, then the stream is closed
	event, ok = receive(t, events)
	assert.True(t, ok)
	assert.Error(t, event.Err)
	assert.Equal(t, FailureInternal, FailureCode(event.Err))

	_, ok = receive(t, events)
	assert.False(t, ok)

	// a failed session no longer counts as active
	assert.False(t, manager.Scanning())

	events, err = manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	manager.Stop()

	_, ok = receive(t, events)
	assert.False(t, ok)
}

func TestManagerFailureAfterStop(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	manager.Stop()

	// failures after stop are dropped
	scanner.cb.OnFailure(FailureInternal)

	_, ok := receive(t, events)
	assert.False(t, ok)
}

func TestManagerBackpressure(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	events, err := manager.Start(context.Background(), nil, Settings{Buffer: 1})
	assert.NoError(t, err)

	// the callback blocks once the buffer is full
	delivered := make(chan struct{})
	go func() {
		scanner.cb.OnResults(result("aa"), result("bb"), result("cc"))
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("expected delivery to block")
	case <-time.After(10 * time.Millisecond):
	}

	// draining the stream unblocks the callback
	event, _ := receive(t, events)
	assert.Equal(t, "aa", event.Device.Address)
	event, _ = receive(t, events)
	assert.Equal(t, "bb", event.Device.Address)
	event, _ = receive(t, events)
	assert.Equal(t, "cc", event.Device.Address)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("expected delivery to finish")
	}

	manager.Stop()
}

func TestManagerConsumerWalkAway(t *testing.T) {
	scanner := &fakeScanner{}
	manager := NewManager(context.Background(), scanner)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := manager.Start(ctx, nil, Settings{Buffer: 1})
	assert.NoError(t, err)

	// a blocked delivery unblocks when the consumer walks away
	delivered := make(chan struct{})
	go func() {
		scanner.cb.OnResults(result("aa"), result("bb"))
		close(delivered)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("expected delivery to abort")
	}

	// the stream drains and closes
	for {
		_, ok := receive(t, events)
		if !ok {
			break
		}
	}

	assert.Eventually(t, func() bool {
		return !manager.Scanning()
	}, time.Second, 10*time.Millisecond)
}

func TestManagerLifecycle(t *testing.T) {
	scanner := &fakeScanner{}

	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager(ctx, scanner)

	events, err := manager.Start(context.Background(), nil, Settings{})
	assert.NoError(t, err)

	// cancelling the lifecycle context stops the session
	cancel()

	_, ok := receive(t, events)
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return !manager.Scanning()
	}, time.Second, 10*time.Millisecond)
}
