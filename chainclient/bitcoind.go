package chainclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// noTxInfoMsg is the error fragment bitcoind returns from getrawtransaction
// when the transaction is neither in the mempool nor in a block.
const noTxInfoMsg = "no such mempool or blockchain transaction"

// BitcoindClient implements ChainClient against the RPC interface of a
// bitcoind node with its wallet enabled.
type BitcoindClient struct {
	rpc *rpcclient.Client
}

// Compile-time check to ensure BitcoindClient satisfies the ChainClient
// interface.
var _ ChainClient = (*BitcoindClient)(nil)

// NewBitcoindClient wraps an existing RPC connection into a ChainClient. The
// caller keeps ownership of the connection and is responsible for shutting it
// down.
func NewBitcoindClient(rpc *rpcclient.Client) *BitcoindClient {
	return &BitcoindClient{
		rpc: rpc,
	}
}

// PublishTransaction broadcasts the transaction to the network.
//
// NOTE: part of the ChainClient interface.
func (b *BitcoindClient) PublishTransaction(tx *wire.MsgTx,
	label string) error {

	txid, err := b.rpc.SendRawTransaction(tx, false)
	if err != nil {
		return err
	}

	log.Debugf("Published transaction %v with label=%v", txid, label)

	return nil
}

// GetTxConfirmations queries the confirmation count of the given transaction,
// returning None when the node does not know the transaction at all.
//
// NOTE: part of the ChainClient interface.
func (b *BitcoindClient) GetTxConfirmations(
	txid chainhash.Hash) (fn.Option[uint32], error) {

	rawTx, err := b.rpc.GetRawTransactionVerbose(&txid)

	switch {
	// An unknown transaction is a meaningful answer, not an error.
	case err != nil && isNoTxInfoErr(err):
		return fn.None[uint32](), nil

	case err != nil:
		return fn.None[uint32](), fmt.Errorf("getrawtransaction "+
			"%v: %w", txid, err)
	}

	return fn.Some(uint32(rawTx.Confirmations)), nil
}

// IsOutputSpendable checks whether the given output is still unspent.
//
// NOTE: part of the ChainClient interface.
func (b *BitcoindClient) IsOutputSpendable(op wire.OutPoint,
	includeMempool bool) (bool, error) {

	txOut, err := b.rpc.GetTxOut(&op.Hash, op.Index, includeMempool)
	if err != nil {
		return false, fmt.Errorf("gettxout %v: %w", op, err)
	}

	// bitcoind returns a null result for spent or unknown outputs.
	return txOut != nil, nil
}

// AbandonTransaction marks the given unconfirmed wallet transaction as
// abandoned. The RPC has no rpcclient wrapper, so it goes through a raw
// request.
//
// NOTE: part of the ChainClient interface.
func (b *BitcoindClient) AbandonTransaction(txid chainhash.Hash) error {
	param, err := json.Marshal(txid.String())
	if err != nil {
		return err
	}

	_, err = b.rpc.RawRequest(
		"abandontransaction", []json.RawMessage{param},
	)
	if err != nil {
		return fmt.Errorf("abandontransaction %v: %w", txid, err)
	}

	return nil
}

// UnlockOutpoints releases the wallet locks on the given outpoints.
//
// NOTE: part of the ChainClient interface.
func (b *BitcoindClient) UnlockOutpoints(ops []wire.OutPoint) error {
	if len(ops) == 0 {
		return nil
	}

	unlock := make([]*wire.OutPoint, 0, len(ops))
	for i := range ops {
		unlock = append(unlock, &ops[i])
	}

	return b.rpc.LockUnspent(true, unlock)
}

// BestHeight returns the current best-chain height known to the node.
func (b *BitcoindClient) BestHeight() (uint32, error) {
	height, err := b.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}

	return uint32(height), nil
}

// isNoTxInfoErr returns true if the error means the queried transaction is
// unknown to the node.
func isNoTxInfoErr(err error) bool {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == btcjson.ErrRPCNoTxInfo
	}

	return strings.Contains(strings.ToLower(err.Error()), noTxInfoMsg)
}
