package mempoolmonitor

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/chainclient"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// InputStatus describes whether the claimed input of a missing transaction
// has been spent by somebody else, and if so whether that spend has
// confirmed.
type InputStatus struct {
	// SpentConfirmed is true when a conflicting spend of the input has
	// been mined.
	SpentConfirmed bool

	// SpentUnconfirmed is true when a conflicting spend of the input sits
	// in the mempool.
	SpentUnconfirmed bool
}

// checkInputStatus probes the backend for the status of the claimed input.
// The three queries are independent, so they run concurrently.
func checkInputStatus(client chainclient.ChainClient,
	op wire.OutPoint) (InputStatus, error) {

	var (
		parentConfs   fn.Option[uint32]
		spendableExcl bool
		spendableIncl bool
	)

	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		parentConfs, err = client.GetTxConfirmations(op.Hash)
		return err
	})
	eg.Go(func() error {
		var err error
		spendableExcl, err = client.IsOutputSpendable(op, false)
		return err
	})
	eg.Go(func() error {
		var err error
		spendableIncl, err = client.IsOutputSpendable(op, true)
		return err
	})

	if err := eg.Wait(); err != nil {
		return InputStatus{}, err
	}

	var status InputStatus
	parentConfs.WhenSome(func(confs uint32) {
		if confs == 0 {
			// The parent itself is unconfirmed, so any conflicting
			// spend of it cannot be confirmed either.
			status.SpentUnconfirmed = !spendableIncl
			return
		}

		status.SpentConfirmed = !spendableExcl
		status.SpentUnconfirmed = spendableExcl && !spendableIncl
	})

	// An unknown parent means the input cannot be spent by anyone, which
	// leaves both flags unset.

	return status, nil
}

// rejectionKind maps the input status onto the terminal rejection reason for
// a transaction that is no longer in the mempool.
func (s InputStatus) rejectionKind() RejectionKind {
	switch {
	case s.SpentConfirmed:
		return ConflictingTxConfirmed

	case s.SpentUnconfirmed:
		return ConflictingTxUnconfirmed

	default:
		return WalletInputGone
	}
}
