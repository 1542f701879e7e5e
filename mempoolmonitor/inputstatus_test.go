package mempoolmonitor

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/chainclient"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestCheckInputStatus checks the mapping of the three backend probes onto
// the input status.
func TestCheckInputStatus(t *testing.T) {
	t.Parallel()

	op := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 2}

	testCases := []struct {
		name          string
		parentConfs   fn.Option[uint32]
		spendableExcl bool
		spendableIncl bool
		expected      InputStatus
	}{
		{
			name:          "input unspent",
			parentConfs:   fn.Some(uint32(6)),
			spendableExcl: true,
			spendableIncl: true,
			expected:      InputStatus{},
		},
		{
			name:          "confirmed conflicting spend",
			parentConfs:   fn.Some(uint32(6)),
			spendableExcl: false,
			spendableIncl: false,
			expected:      InputStatus{SpentConfirmed: true},
		},
		{
			name:          "unconfirmed conflicting spend",
			parentConfs:   fn.Some(uint32(6)),
			spendableExcl: true,
			spendableIncl: false,
			expected:      InputStatus{SpentUnconfirmed: true},
		},
		{
			name:          "unconfirmed parent spent in mempool",
			parentConfs:   fn.Some(uint32(0)),
			spendableExcl: false,
			spendableIncl: false,
			expected:      InputStatus{SpentUnconfirmed: true},
		},
		{
			name:          "unconfirmed parent unspent",
			parentConfs:   fn.Some(uint32(0)),
			spendableExcl: false,
			spendableIncl: true,
			expected:      InputStatus{},
		},
		{
			name:          "unknown parent",
			parentConfs:   fn.None[uint32](),
			spendableExcl: false,
			spendableIncl: false,
			expected:      InputStatus{},
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := &chainclient.MockChainClient{}
			defer client.AssertExpectations(t)

			client.On("GetTxConfirmations", op.Hash).Return(
				tc.parentConfs, nil,
			)
			client.On("IsOutputSpendable", op, false).Return(
				tc.spendableExcl, nil,
			)
			client.On("IsOutputSpendable", op, true).Return(
				tc.spendableIncl, nil,
			)

			status, err := checkInputStatus(client, op)
			require.NoError(t, err)
			require.Equal(t, tc.expected, status)
		})
	}
}

// TestCheckInputStatusError checks that a failing probe surfaces its error.
func TestCheckInputStatusError(t *testing.T) {
	t.Parallel()

	op := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 2}
	probeErr := errors.New("backend down")

	client := &chainclient.MockChainClient{}

	client.On("GetTxConfirmations", op.Hash).Return(
		fn.None[uint32](), probeErr,
	)
	client.On("IsOutputSpendable", op, false).Return(true, nil).Maybe()
	client.On("IsOutputSpendable", op, true).Return(true, nil).Maybe()

	_, err := checkInputStatus(client, op)
	require.ErrorIs(t, err, probeErr)
}

// TestRejectionKind checks the mapping of the input status onto the terminal
// rejection reason.
func TestRejectionKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, ConflictingTxConfirmed,
		InputStatus{SpentConfirmed: true}.rejectionKind())
	require.Equal(t, ConflictingTxUnconfirmed,
		InputStatus{SpentUnconfirmed: true}.rejectionKind())
	require.Equal(t, WalletInputGone, InputStatus{}.rejectionKind())
}
