package txpublisher

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// TxInfo describes the pre-signed transaction to publish and the deadline it
// must meet.
type TxInfo struct {
	// Tx is the pre-signed transaction spending the contract output. Its
	// feerate is the floor below which no replacement may fall.
	Tx *wire.MsgTx

	// ConfirmBefore is the absolute block height by which the
	// transaction should be confirmed. The remaining deadline drives the
	// fee policy.
	ConfirmBefore uint32
}

// PublishCmd is the full request handed to a publisher: what to publish, how
// to re-sign it, and the audit context it belongs to.
type PublishCmd struct {
	// InputOutpoint is the contract output the transaction claims. It is
	// never unlocked by cleanup and anchors the conflict diagnosis when
	// the transaction goes missing.
	InputOutpoint wire.OutPoint

	// TxInfo is the pre-signed transaction and its deadline.
	TxInfo TxInfo

	// Desc is a short human-readable description of the claim, e.g.
	// "local-anchor" or "htlc-success".
	Desc string

	// WitnessData tells the funder how to re-sign the transaction after
	// wallet inputs have been added.
	WitnessData WitnessData

	// ChannelID is the funding outpoint of the channel the transaction
	// belongs to, if known. It is only used for event reporting.
	ChannelID fn.Option[wire.OutPoint]

	// RemoteNodeID is the hex-encoded public key of the channel peer, if
	// known. It is only used for event reporting.
	RemoteNodeID fn.Option[string]
}

// FundedTx is a fully funded and signed broadcast candidate.
type FundedTx struct {
	// Tx is the signed transaction including any wallet inputs and
	// change.
	Tx *wire.MsgTx

	// Fee is the absolute fee the transaction pays.
	Fee btcutil.Amount

	// FeeRate is the effective feerate of the transaction.
	FeeRate chainfee.SatPerKWeight
}

// WalletInputs returns the outpoints the wallet added on top of the contract
// input.
func (f *FundedTx) WalletInputs(contractInput wire.OutPoint) []wire.OutPoint {
	var ops []wire.OutPoint
	for _, txIn := range f.Tx.TxIn {
		if txIn.PreviousOutPoint == contractInput {
			continue
		}

		ops = append(ops, txIn.PreviousOutPoint)
	}

	return ops
}

// FundRequest asks the funder for a broadcast candidate at a target feerate.
type FundRequest struct {
	// Cmd is the publish command being served.
	Cmd *PublishCmd

	// TargetFeeRate is the feerate the candidate should reach.
	TargetFeeRate chainfee.SatPerKWeight

	// PreviousAttempt is the attempt being replaced, if this request
	// funds an RBF replacement. The funder must reuse its wallet inputs
	// where possible so the replacement actually conflicts.
	PreviousAttempt fn.Option[*FundedTx]
}

// Funder adds wallet inputs and change to a pre-signed transaction and signs
// the result. Implementations must lock the wallet inputs they select until
// the publisher releases them.
type Funder interface {
	// FundTransaction returns a signed candidate at the requested
	// feerate, or an error when the wallet cannot fund or sign it.
	FundTransaction(req *FundRequest) (*FundedTx, error)
}

// PrePublisher runs the pre-publish checks of a command and returns the
// transaction to fund, possibly with claim-specific adjustments applied.
type PrePublisher interface {
	// CheckPreconditions validates the command. A returned error
	// terminates the publisher with a PreconditionsFailed rejection.
	CheckPreconditions(cmd *PublishCmd) (*wire.MsgTx, error)
}

// TimeLockWaiter blocks until the absolute and relative time locks of a
// transaction have expired.
type TimeLockWaiter interface {
	// WaitForTimeLocks returns once the transaction is broadcastable, or
	// with an error when quit is closed first.
	WaitForTimeLocks(tx *wire.MsgTx, quit <-chan struct{}) error
}
