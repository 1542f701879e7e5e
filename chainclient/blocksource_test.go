package chainclient

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

// testTimeout is how long a test waits for an expected notification.
const testTimeout = 5 * time.Second

// fakeHeightQuerier is a HeightQuerier backed by an atomic counter.
type fakeHeightQuerier struct {
	height atomic.Uint32
}

func (f *fakeHeightQuerier) BestHeight() (uint32, error) {
	return f.height.Load(), nil
}

// receiveHeight reads one height from the subscription or fails the test.
func receiveHeight(t *testing.T, heights <-chan uint32) uint32 {
	t.Helper()

	select {
	case height := <-heights:
		return height

	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for height")
		return 0
	}
}

// TestPollingBlockSource checks that the polling block source delivers the
// current height on subscribe and fans out strictly increasing heights.
func TestPollingBlockSource(t *testing.T) {
	t.Parallel()

	backend := &fakeHeightQuerier{}
	backend.height.Store(100)

	tick := ticker.NewForce(time.Hour)
	source := NewPollingBlockSource(backend, tick)

	require.NoError(t, source.Start())
	defer source.Stop()

	heights, cancel, err := source.SubscribeBlocks()
	require.NoError(t, err)
	defer cancel()

	// The current best height arrives without any tick.
	require.EqualValues(t, 100, receiveHeight(t, heights))

	// A tick that finds a new height notifies the subscriber.
	backend.height.Store(101)
	tick.Force <- time.Now()
	require.EqualValues(t, 101, receiveHeight(t, heights))

	// A tick without progress stays silent.
	tick.Force <- time.Now()
	select {
	case height := <-heights:
		t.Fatalf("unexpected height %d", height)

	case <-time.After(20 * time.Millisecond):
	}

	// A late subscriber starts at the latest height.
	lateHeights, lateCancel, err := source.SubscribeBlocks()
	require.NoError(t, err)
	defer lateCancel()

	require.EqualValues(t, 101, receiveHeight(t, lateHeights))

	// Both subscribers see the next height.
	backend.height.Store(105)
	tick.Force <- time.Now()
	require.EqualValues(t, 105, receiveHeight(t, heights))
	require.EqualValues(t, 105, receiveHeight(t, lateHeights))
}

// TestPollingBlockSourceShutdown checks that subscriptions are refused after
// shutdown has begun.
func TestPollingBlockSourceShutdown(t *testing.T) {
	t.Parallel()

	backend := &fakeHeightQuerier{}
	backend.height.Store(42)

	source := NewPollingBlockSource(backend, ticker.NewForce(time.Hour))
	require.NoError(t, source.Start())

	source.Stop()

	_, _, err := source.SubscribeBlocks()
	require.ErrorIs(t, err, ErrBlockSourceShuttingDown)
}
