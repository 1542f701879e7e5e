package txpublisher

import (
	"context"
	"errors"
	prand "math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/chainclient"
	"github.com/lightninglabs/txpublisher/mempoolmonitor"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/oklog/ulid/v2"
)

// msgChanSize bounds the number of undelivered internal messages of a
// publisher.
const msgChanSize = 16

// minCheckFeeDelay is the lower bound of the jittered fee check delay.
const minCheckFeeDelay = time.Millisecond

// publishState tracks where in its lifecycle a publisher is.
type publishState uint8

const (
	// stateCheckingPreconditions runs the pre-publish checks.
	stateCheckingPreconditions publishState = iota

	// stateCheckingTimeLocks waits for the transaction's time locks to
	// expire.
	stateCheckingTimeLocks

	// stateFunding waits for the wallet to fund the first attempt.
	stateFunding

	// stateWaiting has exactly one attempt in flight and watches its
	// progress.
	stateWaiting

	// stateFundingReplacement waits for the wallet to fund an RBF
	// replacement while the current attempt keeps being monitored.
	stateFundingReplacement

	// statePublishing has two concurrent attempts and waits for the
	// network to pick one.
	statePublishing

	// stateCleaningUp releases the resources of the losing attempt.
	stateCleaningUp

	// stateStopping has delivered its terminal result and waits for the
	// caller to stop the publisher.
	stateStopping

	// stateStopped is the final state.
	stateStopped
)

// String returns a human-readable name of the state.
func (s publishState) String() string {
	switch s {
	case stateCheckingPreconditions:
		return "CheckingPreconditions"

	case stateCheckingTimeLocks:
		return "CheckingTimeLocks"

	case stateFunding:
		return "Funding"

	case stateWaiting:
		return "Waiting"

	case stateFundingReplacement:
		return "FundingReplacement"

	case statePublishing:
		return "Publishing"

	case stateCleaningUp:
		return "CleaningUp"

	case stateStopping:
		return "Stopping"

	case stateStopped:
		return "Stopped"

	default:
		return "Unknown"
	}
}

// pubMsg is an internal message processed by the publisher's event loop.
type pubMsg interface {
	pubMsg()
}

// fundingMsg carries the outcome of an asynchronous funding request.
type fundingMsg struct {
	funded      *FundedTx
	err         error
	replacement bool
}

// monitorMsg forwards one result of an attempt's mempool monitor.
type monitorMsg struct {
	attemptID uint64
	res       *mempoolmonitor.TxResult
}

// cleanupDoneMsg signals that the losing attempt has been released.
type cleanupDoneMsg struct{}

func (*fundingMsg) pubMsg()     {}
func (*monitorMsg) pubMsg()     {}
func (*cleanupDoneMsg) pubMsg() {}

// attempt is one funded broadcast candidate and its monitor.
type attempt struct {
	// id distinguishes the attempt from its replacements.
	id uint64

	// fundedTx is the funded and signed candidate.
	fundedTx *FundedTx

	// monitor watches the candidate after broadcast.
	monitor *mempoolmonitor.Monitor
}

// Config bundles the dependencies of a TxPublisher.
type Config struct {
	// ChainClient talks to the backing bitcoin node.
	ChainClient chainclient.ChainClient

	// Blocks delivers new best-chain heights.
	Blocks chainclient.BlockSource

	// Estimator supplies network feerate estimates.
	Estimator chainfee.Estimator

	// Funder adds wallet inputs and signs broadcast candidates.
	Funder Funder

	// PrePublisher runs the pre-publish checks.
	PrePublisher PrePublisher

	// TimeLockWaiter blocks until the transaction is broadcastable.
	TimeLockWaiter TimeLockWaiter

	// Events receives the publish and confirm audit events.
	Events mempoolmonitor.EventSink

	// Clock is the time source of the publisher. It is injectable for
	// testing.
	Clock clock.Clock

	// MinDepth is the number of confirmations after which an attempt is
	// considered irreversible.
	MinDepth uint32

	// MaxRetryDelay is the upper bound of the jittered fee check delay.
	MaxRetryDelay time.Duration

	// MaxFeeRate caps the feerate of any attempt.
	MaxFeeRate chainfee.SatPerKWeight

	// RandSource returns uniform floats in [0, 1). It is injectable for
	// testing.
	RandSource func() float64
}

// applyDefaults fills in the optional fields of the config.
func (cfg *Config) applyDefaults() {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.MaxFeeRate == 0 {
		cfg.MaxFeeRate = DefaultMaxFeeRate
	}
	if cfg.RandSource == nil {
		cfg.RandSource = prand.Float64
	}
}

// TxPublisher drives one publish command from precondition checks through
// funding, broadcast, RBF replacements and cleanup to a single terminal
// PublishResult. At most two attempts are in flight at any time.
type TxPublisher struct {
	started sync.Once
	stopped sync.Once

	cfg *Config
	cmd *PublishCmd

	// id identifies this publisher in logs, labels and events.
	id string

	state publishState

	// currentHeight is the best known chain height.
	currentHeight uint32

	// nextAttemptID numbers funding attempts.
	nextAttemptID uint64

	// current is the attempt the network has last accepted.
	current *attempt

	// bumped is the RBF replacement racing current, set only in
	// statePublishing.
	bumped *attempt

	// confirmed is the attempt that reached its required depth, if any.
	confirmed *attempt

	// afterCleanup is the state entered once the pending cleanup
	// finishes.
	afterCleanup publishState

	// policy decides replacement feerates.
	policy feePolicy

	// checkFeeChan fires when the fee policy should be re-evaluated. Nil
	// while no check is scheduled.
	checkFeeChan <-chan time.Time

	// stash buffers messages that arrive while the publisher is funding
	// or cleaning up.
	stash    *queue.BackpressureQueue[pubMsg]
	stashLen int

	msgChan    chan pubMsg
	resultChan chan *PublishResult
	resultSent bool

	wg   sync.WaitGroup
	quit chan struct{}
}

// New creates a publisher for a single command.
func New(cfg *Config, cmd *PublishCmd) *TxPublisher {
	cfg.applyDefaults()

	drop := func(queueLen int, _ pubMsg) bool {
		return queueLen >= maxStashSize
	}

	return &TxPublisher{
		cfg: cfg,
		cmd: cmd,
		id:  ulid.Make().String(),
		policy: feePolicy{
			estimator:    cfg.Estimator,
			maxFeeRate:   cfg.MaxFeeRate,
			floorFeeRate: chainfee.FeePerKwFloor,
		},
		stash:      queue.NewBackpressureQueue[pubMsg](maxStashSize, drop),
		msgChan:    make(chan pubMsg, msgChanSize),
		resultChan: make(chan *PublishResult, 1),
		quit:       make(chan struct{}),
	}
}

// ID returns the identifier of this publisher.
func (p *TxPublisher) ID() string {
	return p.id
}

// Publish starts the publisher and returns the stream carrying its single
// terminal result. The stream is closed once the publisher has stopped.
// Calling Publish more than once returns the same stream without starting
// again.
func (p *TxPublisher) Publish() <-chan *PublishResult {
	p.started.Do(func() {
		p.wg.Add(1)
		go p.eventLoop()
	})

	return p.resultChan
}

// Stop terminates the publisher, releasing the wallet inputs of all attempts
// that did not confirm. It is safe to call multiple times.
func (p *TxPublisher) Stop() {
	p.stopped.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

// eventLoop is the main goroutine of the publisher.
func (p *TxPublisher) eventLoop() {
	defer p.wg.Done()

	log.Debugf("Publisher %s starting for %s tx, confirm_before=%d",
		p.id, p.cmd.Desc, p.cmd.TxInfo.ConfirmBefore)

	tx, err := p.cfg.PrePublisher.CheckPreconditions(p.cmd)
	if err != nil {
		p.sendRejected(mempoolmonitor.RejectionReason{
			Kind: mempoolmonitor.PreconditionsFailed,
			Err:  err,
		}, nil)
		p.shutdown()

		return
	}

	p.state = stateCheckingTimeLocks
	if err := p.cfg.TimeLockWaiter.WaitForTimeLocks(tx, p.quit); err != nil {
		p.shutdown()
		return
	}

	blocks, cancel, err := p.cfg.Blocks.SubscribeBlocks()
	if err != nil {
		p.sendRejected(mempoolmonitor.RejectionReason{
			Kind: mempoolmonitor.UnknownTxFailure,
			Err:  err,
		}, nil)
		p.shutdown()

		return
	}
	defer cancel()

	select {
	case height := <-blocks:
		p.currentHeight = height

	case <-p.quit:
		p.shutdown()
		return
	}

	p.state = stateFunding
	if !p.fundInitialAttempt() {
		p.shutdown()
		return
	}

	for {
		select {
		case msg := <-p.msgChan:
			p.handleMsg(msg)

		case height, ok := <-blocks:
			if !ok {
				p.shutdown()
				return
			}

			p.currentHeight = height

		case <-p.checkFeeChan:
			p.checkFeeChan = nil
			p.handleCheckFee()

		case <-p.quit:
			p.shutdown()
			return
		}
	}
}

// remainingBlocks returns the number of blocks left until the deadline.
// Negative when the deadline has passed.
func (p *TxPublisher) remainingBlocks() int32 {
	return int32(p.cmd.TxInfo.ConfirmBefore) - int32(p.currentHeight)
}

// fundInitialAttempt asks the estimator for the initial feerate and kicks off
// the first funding request. It returns false when the publisher is done.
func (p *TxPublisher) fundInitialAttempt() bool {
	rate, err := p.policy.initialFeeRate(p.remainingBlocks())
	if err != nil {
		p.sendRejected(mempoolmonitor.RejectionReason{
			Kind: mempoolmonitor.FundingFailed,
			Err:  err,
		}, nil)

		return false
	}

	p.fundAttempt(rate, fn.None[*FundedTx](), false)

	return true
}

// fundAttempt spawns the asynchronous funding request and posts its outcome
// back to the event loop.
func (p *TxPublisher) fundAttempt(rate chainfee.SatPerKWeight,
	prev fn.Option[*FundedTx], replacement bool) {

	req := &FundRequest{
		Cmd:             p.cmd,
		TargetFeeRate:   rate,
		PreviousAttempt: prev,
	}

	log.Debugf("Publisher %s funding attempt at %v, replacement=%v",
		p.id, rate, replacement)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		funded, err := p.cfg.Funder.FundTransaction(req)
		p.postMsg(&fundingMsg{
			funded:      funded,
			err:         err,
			replacement: replacement,
		})
	}()
}

// postMsg hands a message to the event loop, giving up when the publisher is
// stopped first.
func (p *TxPublisher) postMsg(msg pubMsg) {
	select {
	case p.msgChan <- msg:
	case <-p.quit:
	}
}

// handleMsg dispatches one internal message based on its type and the
// current state.
func (p *TxPublisher) handleMsg(msg pubMsg) {
	switch m := msg.(type) {
	case *fundingMsg:
		p.handleFunding(m)

	case *monitorMsg:
		p.handleMonitorResult(m)

	case *cleanupDoneMsg:
		p.handleCleanupDone()

	default:
		log.Errorf("Publisher %s: unexpected message %T", p.id, msg)
	}
}

// handleFunding processes the outcome of a funding request.
func (p *TxPublisher) handleFunding(msg *fundingMsg) {
	if msg.err != nil {
		// A failed replacement is not fatal, the current attempt is
		// still being monitored.
		if msg.replacement {
			log.Warnf("Publisher %s: replacement funding "+
				"failed: %v", p.id, msg.err)

			p.enterState(stateWaiting)

			return
		}

		p.sendRejected(mempoolmonitor.RejectionReason{
			Kind: mempoolmonitor.FundingFailed,
			Err:  msg.err,
		}, nil)
		p.enterState(stateStopping)

		return
	}

	a := p.startAttempt(msg.funded)

	if msg.replacement {
		p.bumped = a
		p.enterState(statePublishing)

		return
	}

	p.current = a
	p.enterState(stateWaiting)
}

// startAttempt creates the monitor of a funded candidate, publishes it and
// starts forwarding its results into the event loop.
func (p *TxPublisher) startAttempt(funded *FundedTx) *attempt {
	p.nextAttemptID++

	a := &attempt{
		id:       p.nextAttemptID,
		fundedTx: funded,
		monitor: mempoolmonitor.New(mempoolmonitor.Config{
			ChainClient:  p.cfg.ChainClient,
			Blocks:       p.cfg.Blocks,
			Events:       p.cfg.Events,
			MinDepth:     p.cfg.MinDepth,
			PublishID:    p.id,
			ChannelID:    p.cmd.ChannelID,
			RemoteNodeID: p.cmd.RemoteNodeID,
		}),
	}

	log.Infof("Publisher %s: attempt %d publishing tx %v at %v", p.id,
		a.id, funded.Tx.TxHash(), funded.FeeRate)
	log.Tracef("Publisher %s: attempt %d tx: %v", p.id, a.id,
		spewTx(funded.Tx))

	results := a.monitor.Publish(
		funded.Tx, p.cmd.InputOutpoint, p.cmd.Desc, funded.Fee,
	)

	p.wg.Add(1)
	go p.forwardResults(a, results)

	return a
}

// forwardResults pumps the results of one monitor into the event loop until
// the terminal result has been forwarded.
func (p *TxPublisher) forwardResults(a *attempt,
	results <-chan *mempoolmonitor.TxResult) {

	defer p.wg.Done()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}

			p.postMsg(&monitorMsg{attemptID: a.id, res: res})

			if res.Terminal() {
				return
			}

		case <-p.quit:
			return
		}
	}
}

// attemptForID resolves a monitor message to a live attempt, or nil when the
// attempt has already been cleaned up.
func (p *TxPublisher) attemptForID(id uint64) *attempt {
	if p.current != nil && p.current.id == id {
		return p.current
	}
	if p.bumped != nil && p.bumped.id == id {
		return p.bumped
	}

	return nil
}

// handleMonitorResult processes one result of an attempt's monitor.
func (p *TxPublisher) handleMonitorResult(msg *monitorMsg) {
	a := p.attemptForID(msg.attemptID)
	if a == nil {
		log.Debugf("Publisher %s: dropping result %v of stale "+
			"attempt %d", p.id, msg.res, msg.attemptID)

		return
	}

	switch p.state {
	case stateWaiting:
		p.handleResultWaiting(a, msg.res)

	case statePublishing:
		p.handleResultPublishing(a, msg.res)

	// The publisher is busy replacing or cleaning up. Terminal results
	// are kept for the next steady state, intermediate ones are retried
	// shortly since they only carry freshness.
	case stateFundingReplacement, stateCleaningUp:
		if msg.res.Terminal() {
			p.stashMsg(msg)
			return
		}

		p.redeliverLater(msg)

	default:
		log.Debugf("Publisher %s: ignoring result %v in state %v",
			p.id, msg.res, p.state)
	}
}

// handleResultWaiting processes a monitor result while exactly one attempt is
// in flight.
func (p *TxPublisher) handleResultWaiting(a *attempt,
	res *mempoolmonitor.TxResult) {

	switch res.Event {
	case mempoolmonitor.TxInMempool:
		p.armCheckFee()

	case mempoolmonitor.TxRecentlyConfirmed:
		// A confirmed transaction can no longer be replaced.
		p.checkFeeChan = nil

	case mempoolmonitor.TxDeeplyBuried:
		p.confirmed = a
		p.sendConfirmed(a)
		p.enterState(stateStopping)

	case mempoolmonitor.TxRejected:
		p.sendRejected(res.Reason, a.fundedTx.Tx)
		p.enterState(stateStopping)
	}
}

// handleResultPublishing processes a monitor result while an RBF replacement
// races the current attempt. The first meaningful result decides the winner.
func (p *TxPublisher) handleResultPublishing(a *attempt,
	res *mempoolmonitor.TxResult) {

	replacement := a == p.bumped

	switch res.Event {
	case mempoolmonitor.TxInMempool:
		// The replacement made it into the mempool, which means it
		// displaced the current attempt.
		if replacement {
			p.promoteReplacement()
		}

		// The old attempt still being in the mempool carries no
		// verdict, the replacement may simply not have propagated
		// yet.

	case mempoolmonitor.TxRecentlyConfirmed:
		p.resolveRace(a)
		p.checkFeeChan = nil

	case mempoolmonitor.TxDeeplyBuried:
		p.confirmed = a
		p.sendConfirmed(a)

		// Retire the loser's slot before starting its cleanup, so
		// shutdown only ever sees the winner.
		loser := p.otherAttempt(a)
		p.current, p.bumped = a, nil

		if loser != nil {
			p.cleanupLoser(loser, a, stateStopping)
			return
		}

		p.enterState(stateStopping)

	case mempoolmonitor.TxRejected:
		// The replacement was rejected outright, keep the current
		// attempt.
		if replacement {
			log.Warnf("Publisher %s: replacement attempt %d "+
				"rejected: %v", p.id, a.id, res.Reason)

			p.bumped = nil
			p.cleanupLoser(a, p.current, stateWaiting)

			return
		}

		// The current attempt is gone. If a conflicting spend won,
		// that conflict is expected to be our own replacement, which
		// keeps racing. Anything else rejects the replacement too
		// once its monitor notices, but the conflict kinds let us
		// resolve right away.
		switch res.Reason.Kind {
		case mempoolmonitor.ConflictingTxUnconfirmed,
			mempoolmonitor.ConflictingTxConfirmed:

			p.promoteReplacement()

		default:
			// The input itself is unusable, no attempt can
			// succeed.
			loser := p.bumped
			p.bumped = nil
			p.sendRejected(res.Reason, a.fundedTx.Tx)
			p.current = nil
			p.cleanupBoth(a, loser)
		}
	}
}

// otherAttempt returns the live attempt that is not a, or nil.
func (p *TxPublisher) otherAttempt(a *attempt) *attempt {
	if p.current != nil && p.current != a {
		return p.current
	}
	if p.bumped != nil && p.bumped != a {
		return p.bumped
	}

	return nil
}

// resolveRace marks a as the surviving attempt and cleans up the other one.
func (p *TxPublisher) resolveRace(winner *attempt) {
	loser := p.otherAttempt(winner)

	p.current = winner
	p.bumped = nil

	if loser != nil {
		p.cleanupLoser(loser, winner, stateWaiting)
		return
	}

	p.enterState(stateWaiting)
}

// promoteReplacement makes the replacement the current attempt and cleans up
// the displaced one.
func (p *TxPublisher) promoteReplacement() {
	loser := p.current

	p.current = p.bumped
	p.bumped = nil

	p.cleanupLoser(loser, p.current, stateWaiting)
}

// cleanupLoser stops the losing attempt's monitor, abandons its transaction
// and unlocks the wallet inputs not shared with the winner. The work runs
// off the event loop, which parks in stateCleaningUp until it is done.
func (p *TxPublisher) cleanupLoser(loser, winner *attempt, next publishState) {
	p.afterCleanup = next
	p.state = stateCleaningUp

	var winnerInputs []wire.OutPoint
	if winner != nil {
		winnerInputs = winner.fundedTx.WalletInputs(p.cmd.InputOutpoint)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.releaseAttempt(loser, winnerInputs)
		p.postMsg(&cleanupDoneMsg{})
	}()
}

// cleanupBoth releases both attempts after a terminal rejection. No inputs
// are shared with a winner, so everything except the contract input is
// unlocked.
func (p *TxPublisher) cleanupBoth(a, b *attempt) {
	p.afterCleanup = stateStopping
	p.state = stateCleaningUp

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.releaseAttempt(a, nil)
		if b != nil {
			p.releaseAttempt(b, nil)
		}
		p.postMsg(&cleanupDoneMsg{})
	}()
}

// releaseAttempt abandons the attempt's transaction and unlocks its wallet
// inputs, keeping the ones in keep locked. The contract input is never
// unlocked.
func (p *TxPublisher) releaseAttempt(a *attempt, keep []wire.OutPoint) {
	a.monitor.Stop()

	txid := a.fundedTx.Tx.TxHash()
	if err := p.cfg.ChainClient.AbandonTransaction(txid); err != nil {
		log.Warnf("Publisher %s: unable to abandon tx %v: %v", p.id,
			txid, err)
	}

	unlock := outPointsExcept(
		a.fundedTx.WalletInputs(p.cmd.InputOutpoint), keep,
	)
	if len(unlock) == 0 {
		return
	}

	log.Debugf("Publisher %s: unlocking %d inputs of attempt %d", p.id,
		len(unlock), a.id)

	if err := p.cfg.ChainClient.UnlockOutpoints(unlock); err != nil {
		log.Warnf("Publisher %s: unable to unlock inputs of tx %v: "+
			"%v", p.id, txid, err)
	}
}

// outPointsExcept returns the outpoints of ops that do not appear in
// exclude.
func outPointsExcept(ops, exclude []wire.OutPoint) []wire.OutPoint {
	excluded := make(map[wire.OutPoint]struct{}, len(exclude))
	for _, op := range exclude {
		excluded[op] = struct{}{}
	}

	var result []wire.OutPoint
	for _, op := range ops {
		if _, ok := excluded[op]; ok {
			continue
		}

		result = append(result, op)
	}

	return result
}

// handleCleanupDone leaves stateCleaningUp for whatever state the cleanup
// was parked on.
func (p *TxPublisher) handleCleanupDone() {
	if p.state != stateCleaningUp {
		log.Errorf("Publisher %s: cleanup done in state %v", p.id,
			p.state)

		return
	}

	p.enterState(p.afterCleanup)
}

// enterState transitions the state machine and replays stashed messages when
// a steady state is entered.
func (p *TxPublisher) enterState(next publishState) {
	log.Tracef("Publisher %s: %v -> %v", p.id, p.state, next)

	p.state = next

	switch next {
	case stateWaiting, statePublishing:
		p.replayStash()
	}
}

// stashMsg keeps a message for replay once the publisher is back in a steady
// state. When the stash is full the message is dropped.
func (p *TxPublisher) stashMsg(msg pubMsg) {
	err := p.stash.Enqueue(context.Background(), msg)
	if err != nil {
		if errors.Is(err, queue.ErrItemDropped) {
			log.Warnf("Publisher %s: stash full, dropping %T",
				p.id, msg)

			return
		}

		log.Errorf("Publisher %s: unable to stash %T: %v", p.id, msg,
			err)

		return
	}

	p.stashLen++
}

// replayStash re-processes the stashed messages in arrival order.
func (p *TxPublisher) replayStash() {
	n := p.stashLen
	p.stashLen = 0

	for i := 0; i < n; i++ {
		msg, err := p.stash.Dequeue(context.Background()).Unpack()
		if err != nil {
			log.Errorf("Publisher %s: stash dequeue: %v", p.id,
				err)

			return
		}

		p.handleMsg(msg)
	}
}

// redeliverLater re-posts a message after the stale result delay.
func (p *TxPublisher) redeliverLater(msg pubMsg) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case <-p.cfg.Clock.TickAfter(staleResultDelay):
		case <-p.quit:
			return
		}

		p.postMsg(msg)
	}()
}

// armCheckFee schedules the next fee check after a jittered delay. The
// jitter spreads the wallet load of many concurrent publishers.
func (p *TxPublisher) armCheckFee() {
	jitter := time.Duration(
		p.cfg.RandSource() *
			float64(p.cfg.MaxRetryDelay-minCheckFeeDelay),
	)

	p.checkFeeChan = p.cfg.Clock.TickAfter(minCheckFeeDelay + jitter)
}

// handleCheckFee re-evaluates the fee policy against the current attempt and
// kicks off a replacement when one is warranted.
func (p *TxPublisher) handleCheckFee() {
	// Fee checks only matter while a single unconfirmed attempt is being
	// watched. In any other state the next TxInMempool result re-arms
	// the timer.
	if p.state != stateWaiting || p.current == nil {
		return
	}

	next, err := p.policy.replacementFeeRate(
		p.remainingBlocks(), p.current.fundedTx.FeeRate,
	)
	if err != nil {
		log.Warnf("Publisher %s: fee estimate failed: %v", p.id, err)
		return
	}

	next.WhenSome(func(rate chainfee.SatPerKWeight) {
		p.state = stateFundingReplacement
		p.fundAttempt(rate, fn.Some(p.current.fundedTx), true)
	})
}

// sendConfirmed delivers the terminal success result.
func (p *TxPublisher) sendConfirmed(a *attempt) {
	log.Infof("Publisher %s: attempt %d confirmed", p.id, a.id)

	p.sendResult(&PublishResult{
		ID:    p.id,
		Cmd:   p.cmd,
		Event: PublishConfirmed,
		Tx:    a.fundedTx.Tx,
	})
}

// sendRejected delivers the terminal failure result.
func (p *TxPublisher) sendRejected(reason mempoolmonitor.RejectionReason,
	tx *wire.MsgTx) {

	log.Infof("Publisher %s: rejected: %v", p.id, reason)

	p.sendResult(&PublishResult{
		ID:     p.id,
		Cmd:    p.cmd,
		Event:  PublishRejected,
		Tx:     tx,
		Reason: reason,
	})
}

// sendResult delivers the terminal result exactly once.
func (p *TxPublisher) sendResult(res *PublishResult) {
	if p.resultSent {
		log.Errorf("Publisher %s: duplicate terminal result %v",
			p.id, res)

		return
	}

	p.resultSent = true
	p.resultChan <- res
}

// shutdown releases every live attempt that did not confirm and closes the
// result stream. The wallet inputs of a confirmed attempt stay locked, as do
// the contract input in all cases.
func (p *TxPublisher) shutdown() {
	p.state = stateStopped

	for _, a := range []*attempt{p.current, p.bumped} {
		if a == nil {
			continue
		}

		if a == p.confirmed {
			a.monitor.Stop()
			continue
		}

		p.releaseAttempt(a, nil)
	}

	p.current = nil
	p.bumped = nil

	close(p.resultChan)

	log.Debugf("Publisher %s stopped", p.id)
}
