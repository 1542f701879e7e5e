package txnotifier

import (
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/subscribe"
)

// TxNotifier is the subsystem through which all transaction publish and
// confirmation events pipe. It takes subscriptions for its events and
// notifies all subscribers whenever a publisher reports a broadcast or a
// deeply buried confirmation.
type TxNotifier struct {
	started atomic.Bool
	stopped atomic.Bool

	ntfnServer *subscribe.Server
}

// TransactionPublishedEvent is sent when a replaceable transaction has been
// handed to the network for the first time.
type TransactionPublishedEvent struct {
	// PublishID identifies the publisher that broadcast the transaction.
	PublishID string

	// ChannelID is the funding outpoint of the channel the transaction
	// belongs to, if known.
	ChannelID fn.Option[wire.OutPoint]

	// RemoteNodeID is the hex-encoded public key of the channel peer, if
	// known.
	RemoteNodeID fn.Option[string]

	// Tx is the broadcast transaction.
	Tx *wire.MsgTx

	// Fee is the fee paid by the transaction.
	Fee btcutil.Amount

	// Desc is the human-readable description of the claim, e.g.
	// "local-anchor" or "htlc-success".
	Desc string
}

// TransactionConfirmedEvent is sent when a published transaction has reached
// its required confirmation depth.
type TransactionConfirmedEvent struct {
	// PublishID identifies the publisher that broadcast the transaction.
	PublishID string

	// ChannelID is the funding outpoint of the channel the transaction
	// belongs to, if known.
	ChannelID fn.Option[wire.OutPoint]

	// RemoteNodeID is the hex-encoded public key of the channel peer, if
	// known.
	RemoteNodeID fn.Option[string]

	// Tx is the confirmed transaction.
	Tx *wire.MsgTx
}

// New creates a new transaction notifier.
func New() *TxNotifier {
	return &TxNotifier{
		ntfnServer: subscribe.NewServer(),
	}
}

// Start starts the TxNotifier and all goroutines it needs to carry out its
// task.
func (n *TxNotifier) Start() error {
	if !n.started.CompareAndSwap(false, true) {
		return nil
	}

	log.Info("TxNotifier starting")

	return n.ntfnServer.Start()
}

// Stop signals the notifier for a graceful shutdown.
func (n *TxNotifier) Stop() error {
	if !n.stopped.CompareAndSwap(false, true) {
		return nil
	}

	return n.ntfnServer.Stop()
}

// SubscribeTransactionEvents returns a subscribe.Client that will receive
// updates any time the notifier is made aware of a new event.
func (n *TxNotifier) SubscribeTransactionEvents() (*subscribe.Client, error) {
	return n.ntfnServer.Subscribe()
}

// NotifyTransactionPublished notifies subscribers that a transaction has been
// broadcast.
func (n *TxNotifier) NotifyTransactionPublished(
	event TransactionPublishedEvent) {

	if err := n.ntfnServer.SendUpdate(event); err != nil {
		log.Errorf("Unable to send published update: %v", err)
	}
}

// NotifyTransactionConfirmed notifies subscribers that a transaction has
// reached its required depth.
func (n *TxNotifier) NotifyTransactionConfirmed(
	event TransactionConfirmedEvent) {

	if err := n.ntfnServer.SendUpdate(event); err != nil {
		log.Errorf("Unable to send confirmed update: %v", err)
	}
}
