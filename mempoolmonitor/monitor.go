package mempoolmonitor

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/chainclient"
	"github.com/lightninglabs/txpublisher/txnotifier"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// DefaultMinDepth is the number of confirmations after which a monitored
// transaction is considered irreversible.
const DefaultMinDepth uint32 = 3

// resultChanSize bounds the number of undelivered intermediate results. One
// result is produced per block at most, so the consumer has ample time to
// drain.
const resultChanSize = 10

// EventSink receives the audit events produced by the monitor. It is
// injected at construction rather than reached through a global.
type EventSink interface {
	// NotifyTransactionPublished is invoked once when the monitored
	// transaction has been handed to the network.
	NotifyTransactionPublished(txnotifier.TransactionPublishedEvent)

	// NotifyTransactionConfirmed is invoked once when the monitored
	// transaction reaches its required depth.
	NotifyTransactionConfirmed(txnotifier.TransactionConfirmedEvent)
}

// Compile-time check to ensure the notifier implements EventSink.
var _ EventSink = (*txnotifier.TxNotifier)(nil)

// Config bundles the dependencies and the log context of a Monitor.
type Config struct {
	// ChainClient talks to the backing bitcoin node.
	ChainClient chainclient.ChainClient

	// Blocks delivers new best-chain heights.
	Blocks chainclient.BlockSource

	// Events receives the publish and confirm audit events.
	Events EventSink

	// MinDepth is the number of confirmations required to report the
	// terminal TxDeeplyBuried result.
	MinDepth uint32

	// PublishID identifies the publisher this monitor works for.
	PublishID string

	// ChannelID is the channel the transaction belongs to, if known.
	ChannelID fn.Option[wire.OutPoint]

	// RemoteNodeID is the channel peer, if known.
	RemoteNodeID fn.Option[string]
}

// Monitor publishes one signed transaction and watches the mempool and the
// chain until the transaction is deeply buried or definitively rejected.
// Exactly one terminal TxResult is delivered per monitor, after which the
// monitor stops on its own.
type Monitor struct {
	started sync.Once
	stopped sync.Once

	cfg Config

	resultChan chan *TxResult

	wg   sync.WaitGroup
	quit chan struct{}
}

// New creates a monitor for a single broadcast attempt.
func New(cfg Config) *Monitor {
	if cfg.MinDepth == 0 {
		cfg.MinDepth = DefaultMinDepth
	}

	return &Monitor{
		cfg:        cfg,
		resultChan: make(chan *TxResult, resultChanSize),
		quit:       make(chan struct{}),
	}
}

// Publish broadcasts the transaction and begins monitoring it. The input is
// the contract outpoint the transaction claims, used to diagnose conflicts
// when the transaction goes missing. The returned stream carries
// intermediate results followed by exactly one terminal result. Calling
// Publish more than once returns the same stream without publishing again.
func (m *Monitor) Publish(tx *wire.MsgTx, input wire.OutPoint, desc string,
	fee btcutil.Amount) <-chan *TxResult {

	m.started.Do(func() {
		m.wg.Add(1)
		go m.monitor(tx, input, desc, fee)
	})

	return m.resultChan
}

// Stop terminates monitoring without delivering further results. It is safe
// to call multiple times and after the terminal result has been delivered.
func (m *Monitor) Stop() {
	m.stopped.Do(func() {
		close(m.quit)
		m.wg.Wait()
	})
}

// monitor is the main goroutine of the monitor. It broadcasts the
// transaction, classifies an eventual broadcast failure, and otherwise
// watches the transaction until a terminal result is known.
func (m *Monitor) monitor(tx *wire.MsgTx, input wire.OutPoint, desc string,
	fee btcutil.Amount) {

	defer m.wg.Done()

	txid := tx.TxHash()

	// Subscribe before publishing so no block is missed between the
	// broadcast and the first confirmation check.
	blocks, cancel, err := m.cfg.Blocks.SubscribeBlocks()
	if err != nil {
		m.deliverRejected(tx, txid, RejectionReason{
			Kind: UnknownTxFailure,
			Err:  err,
		})

		return
	}
	defer cancel()

	label := fmt.Sprintf("txpublisher:%s:%s", m.cfg.PublishID, desc)

	err = m.cfg.ChainClient.PublishTransaction(tx, label)
	if err != nil {
		m.handlePublishError(tx, txid, input, err)
		return
	}

	log.Infof("Published %s tx %v, fee=%v, publish_id=%s", desc, txid,
		fee, m.cfg.PublishID)

	m.cfg.Events.NotifyTransactionPublished(
		txnotifier.TransactionPublishedEvent{
			PublishID:    m.cfg.PublishID,
			ChannelID:    m.cfg.ChannelID,
			RemoteNodeID: m.cfg.RemoteNodeID,
			Tx:           tx,
			Fee:          fee,
			Desc:         desc,
		},
	)

	m.waitForConfirmation(blocks, tx, txid, input)
}

// handlePublishError maps a broadcast failure onto a terminal rejection.
func (m *Monitor) handlePublishError(tx *wire.MsgTx, txid chainhash.Hash,
	input wire.OutPoint, pubErr error) {

	switch chainclient.ClassifyPublishError(pubErr) {
	// The mempool holds a conflicting transaction our fee cannot
	// displace.
	case chainclient.PublishErrorRejectedReplacement:
		m.deliverRejected(tx, txid, RejectionReason{
			Kind: ConflictingTxUnconfirmed,
			Err:  pubErr,
		})

	// An input is gone. Probe the contract input to find out who spent
	// it.
	case chainclient.PublishErrorInputsMissingOrSpent:
		status, err := checkInputStatus(m.cfg.ChainClient, input)
		if err != nil {
			log.Warnf("Input status probe for %v failed: %v",
				input, err)

			// Unlike the per-block re-check, a failed probe at
			// publish time ends this attempt. The caller decides
			// whether to retry on the next block.
			m.deliverRejected(tx, txid, RejectionReason{
				Kind:           TxSkipped,
				RetryNextBlock: true,
				Err:            err,
			})

			return
		}

		m.deliverRejected(tx, txid, RejectionReason{
			Kind: status.rejectionKind(),
			Err:  pubErr,
		})

	default:
		m.deliverRejected(tx, txid, RejectionReason{
			Kind: UnknownTxFailure,
			Err:  pubErr,
		})
	}
}

// waitForConfirmation re-checks the transaction on every new block until it
// is deeply buried or definitively gone.
func (m *Monitor) waitForConfirmation(blocks <-chan uint32, tx *wire.MsgTx,
	txid chainhash.Hash, input wire.OutPoint) {

	for {
		select {
		case height, ok := <-blocks:
			if !ok {
				return
			}

			if m.checkConfirmations(tx, txid, input, height) {
				return
			}

		case <-m.quit:
			return
		}
	}
}

// checkConfirmations performs the per-block confirmation check. It returns
// true once a terminal result has been delivered.
func (m *Monitor) checkConfirmations(tx *wire.MsgTx, txid chainhash.Hash,
	input wire.OutPoint, height uint32) bool {

	confsOpt, err := m.cfg.ChainClient.GetTxConfirmations(txid)
	if err != nil {
		// A flaky backend is not a verdict on the transaction. Try
		// again on the next block.
		log.Warnf("Unable to query confirmations of %v: %v", txid,
			err)

		return false
	}

	// The backend does not know the transaction anymore, so it was
	// evicted or replaced. The input probe tells us which.
	if confsOpt.IsNone() {
		status, err := checkInputStatus(m.cfg.ChainClient, input)
		if err != nil {
			log.Warnf("Input status probe for %v failed: %v, "+
				"retrying next block", input, err)

			return false
		}

		m.deliverRejected(tx, txid, RejectionReason{
			Kind: status.rejectionKind(),
		})

		return true
	}

	confs := confsOpt.UnwrapOr(0)

	switch {
	case confs == 0:
		log.Debugf("Tx %v still in mempool at height %d", txid,
			height)

		m.deliver(&TxResult{
			Event:       TxInMempool,
			Txid:        txid,
			Tx:          tx,
			BlockHeight: height,
		})

		return false

	case confs >= m.cfg.MinDepth:
		log.Infof("Tx %v deeply buried with %d confs, publish_id=%s",
			txid, confs, m.cfg.PublishID)

		m.cfg.Events.NotifyTransactionConfirmed(
			txnotifier.TransactionConfirmedEvent{
				PublishID:    m.cfg.PublishID,
				ChannelID:    m.cfg.ChannelID,
				RemoteNodeID: m.cfg.RemoteNodeID,
				Tx:           tx,
			},
		)

		m.deliver(&TxResult{
			Event: TxDeeplyBuried,
			Txid:  txid,
			Tx:    tx,
			Confs: confs,
		})

		return true

	default:
		log.Debugf("Tx %v confirmed with %d of %d confs", txid,
			confs, m.cfg.MinDepth)

		m.deliver(&TxResult{
			Event: TxRecentlyConfirmed,
			Txid:  txid,
			Tx:    tx,
			Confs: confs,
		})

		return false
	}
}

// deliverRejected delivers the terminal rejection result.
func (m *Monitor) deliverRejected(tx *wire.MsgTx, txid chainhash.Hash,
	reason RejectionReason) {

	log.Infof("Tx %v rejected: %v, publish_id=%s", txid, reason,
		m.cfg.PublishID)

	m.deliver(&TxResult{
		Event:  TxRejected,
		Txid:   txid,
		Tx:     tx,
		Reason: reason,
	})
}

// deliver hands a result to the consumer, giving up if the monitor is
// stopped first.
func (m *Monitor) deliver(result *TxResult) {
	select {
	case m.resultChan <- result:
	case <-m.quit:
	}
}
