package mempoolmonitor

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ErrInvalidTxResult is returned when a TxResult breaks the invariants tied
// to its event type.
var ErrInvalidTxResult = errors.New("invalid tx result")

// ResultEvent describes the stage a monitored broadcast has reached.
type ResultEvent uint8

const (
	// sentinalEvent is used as a sentinel to check whether the event is
	// unknown.
	sentinalEvent ResultEvent = iota

	// TxInMempool is sent on every new block while the transaction sits
	// unconfirmed in the mempool. It carries the current block height.
	TxInMempool

	// TxRecentlyConfirmed is sent when the transaction has at least one
	// confirmation but has not reached its required depth yet.
	TxRecentlyConfirmed

	// TxDeeplyBuried is the terminal success event, sent once the
	// transaction has reached its required confirmation depth.
	TxDeeplyBuried

	// TxRejected is the terminal failure event. The attached reason
	// explains why the transaction can no longer confirm.
	TxRejected
)

// String returns a human-readable name of the event.
func (e ResultEvent) String() string {
	switch e {
	case TxInMempool:
		return "InMempool"

	case TxRecentlyConfirmed:
		return "RecentlyConfirmed"

	case TxDeeplyBuried:
		return "DeeplyBuried"

	case TxRejected:
		return "Rejected"

	default:
		return "Unknown"
	}
}

// RejectionKind enumerates the reasons a replaceable transaction can be
// definitively rejected. The first five kinds are produced by the monitor,
// the last two by the publisher pipeline before a broadcast is attempted.
type RejectionKind uint8

const (
	// UnknownTxFailure is a broadcast failure we have no special handling
	// for.
	UnknownTxFailure RejectionKind = iota

	// ConflictingTxUnconfirmed means a conflicting transaction sits in
	// the mempool and ours cannot replace it.
	ConflictingTxUnconfirmed

	// ConflictingTxConfirmed means a conflicting transaction spending
	// the claimed input has confirmed. The contract output is
	// permanently out of reach for this publisher.
	ConflictingTxConfirmed

	// WalletInputGone means one of the wallet inputs added for fees has
	// been spent by an unrelated wallet transaction.
	WalletInputGone

	// TxSkipped means the broadcast could not be evaluated, typically
	// because the backend failed to answer the input-status probe. The
	// caller may retry on the next block.
	TxSkipped

	// PreconditionsFailed means the pre-publish checks rejected the
	// transaction before any broadcast was attempted.
	PreconditionsFailed

	// FundingFailed means the wallet could not fund or sign the
	// transaction at the requested feerate.
	FundingFailed
)

// String returns a human-readable name of the rejection kind.
func (k RejectionKind) String() string {
	switch k {
	case ConflictingTxUnconfirmed:
		return "ConflictingTxUnconfirmed"

	case ConflictingTxConfirmed:
		return "ConflictingTxConfirmed"

	case WalletInputGone:
		return "WalletInputGone"

	case TxSkipped:
		return "TxSkipped"

	case PreconditionsFailed:
		return "PreconditionsFailed"

	case FundingFailed:
		return "FundingFailed"

	default:
		return "UnknownTxFailure"
	}
}

// RejectionReason carries the structured cause of a terminal rejection.
type RejectionReason struct {
	// Kind is the broad class of the failure.
	Kind RejectionKind

	// RetryNextBlock is set for transient failures that are worth
	// retrying once a new block has arrived.
	RetryNextBlock bool

	// Err is the underlying error, if any.
	Err error
}

// String returns a human-readable description of the reason.
func (r RejectionReason) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%v: %v", r.Kind, r.Err)
	}

	return r.Kind.String()
}

// TxResult reports the status of a monitored broadcast. A monitor delivers
// any number of intermediate results followed by exactly one terminal
// result.
type TxResult struct {
	// Event describes what happened to the broadcast.
	Event ResultEvent

	// Txid is the hash of the monitored transaction.
	Txid chainhash.Hash

	// Tx is the monitored transaction. Always set for terminal events.
	Tx *wire.MsgTx

	// BlockHeight is the height that triggered the result. Set for
	// TxInMempool.
	BlockHeight uint32

	// Confs is the current number of confirmations. Set for
	// TxRecentlyConfirmed and TxDeeplyBuried.
	Confs uint32

	// Reason explains a TxRejected event.
	Reason RejectionReason
}

// Terminal returns true if no further results will follow this one.
func (r *TxResult) Terminal() bool {
	return r.Event == TxDeeplyBuried || r.Event == TxRejected
}

// Validate checks the result against the invariants of its event type.
func (r *TxResult) Validate() error {
	switch r.Event {
	case TxInMempool, TxRecentlyConfirmed, TxDeeplyBuried, TxRejected:

	default:
		return fmt.Errorf("%w: unknown event %d", ErrInvalidTxResult,
			r.Event)
	}

	if r.Terminal() && r.Tx == nil {
		return fmt.Errorf("%w: terminal event %v without tx",
			ErrInvalidTxResult, r.Event)
	}

	return nil
}

// String returns a human-readable description of the result.
func (r *TxResult) String() string {
	switch r.Event {
	case TxInMempool:
		return fmt.Sprintf("%v(%v, height=%d)", r.Event, r.Txid,
			r.BlockHeight)

	case TxRecentlyConfirmed:
		return fmt.Sprintf("%v(%v, confs=%d)", r.Event, r.Txid,
			r.Confs)

	case TxRejected:
		return fmt.Sprintf("%v(%v, %v)", r.Event, r.Txid, r.Reason)

	default:
		return fmt.Sprintf("%v(%v)", r.Event, r.Txid)
	}
}
