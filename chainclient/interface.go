package chainclient

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ChainClient is the interface the publisher and the mempool monitor use to
// talk to the backing bitcoin node and its wallet. The methods map onto a
// Bitcoin-Core-like RPC surface.
type ChainClient interface {
	// PublishTransaction performs cursory validation (dust checks, etc)
	// and broadcasts the passed transaction to the Bitcoin network. The
	// label is attached to the transaction in the backing wallet when
	// supported.
	//
	// Errors returned by the backend are classified with
	// ClassifyPublishError before the caller acts on them.
	PublishTransaction(tx *wire.MsgTx, label string) error

	// GetTxConfirmations returns the number of confirmations of the given
	// transaction. A returned None means the backend does not know the
	// transaction at all, neither in the mempool nor in a block. Zero
	// confirmations means the transaction is in the mempool.
	GetTxConfirmations(txid chainhash.Hash) (fn.Option[uint32], error)

	// IsOutputSpendable returns whether the given output is unspent from
	// the point of view of the backend. When includeMempool is true,
	// unconfirmed spends count as spending the output.
	IsOutputSpendable(op wire.OutPoint, includeMempool bool) (bool, error)

	// AbandonTransaction tells the backing wallet to forget an
	// unconfirmed transaction so its inputs become spendable again. It is
	// a no-op for mined transactions and for transactions still in the
	// mempool.
	AbandonTransaction(txid chainhash.Hash) error

	// UnlockOutpoints releases the wallet locks held on the given
	// outpoints so coin selection can use them again.
	UnlockOutpoints(ops []wire.OutPoint) error
}

// BlockSource delivers a stream of block heights as new blocks are connected
// to the best chain.
type BlockSource interface {
	// SubscribeBlocks returns a channel over which new best-chain heights
	// are delivered in ascending order, along with a cancel closure that
	// terminates the subscription. The current height is delivered as the
	// first item.
	SubscribeBlocks() (<-chan uint32, func(), error)
}
