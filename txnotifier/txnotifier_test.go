package txnotifier

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// testTimeout is how long a test waits for an expected notification.
const testTimeout = 5 * time.Second

// TestTxNotifier checks that subscribers receive published and confirmed
// events in order.
func TestTxNotifier(t *testing.T) {
	t.Parallel()

	n := New()
	require.NoError(t, n.Start())
	defer func() {
		require.NoError(t, n.Stop())
	}()

	client, err := n.SubscribeTransactionEvents()
	require.NoError(t, err)
	defer client.Cancel()

	tx := wire.NewMsgTx(2)

	n.NotifyTransactionPublished(TransactionPublishedEvent{
		PublishID: "pub-1",
		Tx:        tx,
		Fee:       btcutil.Amount(500),
		Desc:      "local-anchor",
	})
	n.NotifyTransactionConfirmed(TransactionConfirmedEvent{
		PublishID: "pub-1",
		Tx:        tx,
	})

	select {
	case update := <-client.Updates():
		event, ok := update.(TransactionPublishedEvent)
		require.True(t, ok, "expected published event, got %T", update)
		require.Equal(t, "pub-1", event.PublishID)
		require.Equal(t, btcutil.Amount(500), event.Fee)

	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for published event")
	}

	select {
	case update := <-client.Updates():
		event, ok := update.(TransactionConfirmedEvent)
		require.True(t, ok, "expected confirmed event, got %T", update)
		require.Equal(t, "pub-1", event.PublishID)

	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for confirmed event")
	}
}
