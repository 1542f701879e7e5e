package txpublisher

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestPublishResultValidate tests the validate method of the PublishResult
// struct.
func TestPublishResultValidate(t *testing.T) {
	t.Parallel()

	cmd := &PublishCmd{}

	// An empty result will give an error.
	r := PublishResult{}
	require.ErrorIs(t, r.Validate(), ErrInvalidPublishResult)

	// Unknown event type will give an error.
	r = PublishResult{
		Cmd:   cmd,
		Tx:    &wire.MsgTx{},
		Event: sentinalPublishEvent,
	}
	require.ErrorIs(t, r.Validate(), ErrInvalidPublishResult)

	// A confirmed event without a tx will give an error.
	r = PublishResult{
		Cmd:   cmd,
		Event: PublishConfirmed,
	}
	require.ErrorIs(t, r.Validate(), ErrInvalidPublishResult)

	// A result without its command will give an error.
	r = PublishResult{
		Tx:    &wire.MsgTx{},
		Event: PublishConfirmed,
	}
	require.ErrorIs(t, r.Validate(), ErrInvalidPublishResult)

	// A rejection does not need a tx, funding may never have succeeded.
	r = PublishResult{
		Cmd:   cmd,
		Event: PublishRejected,
	}
	require.NoError(t, r.Validate())

	// Test a valid confirmed result.
	r = PublishResult{
		Cmd:   cmd,
		Tx:    &wire.MsgTx{},
		Event: PublishConfirmed,
	}
	require.NoError(t, r.Validate())
}
