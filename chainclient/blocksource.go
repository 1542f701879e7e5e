package chainclient

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
)

// DefaultPollInterval is the default interval at which the polling block
// source queries the backend for a new best height.
const DefaultPollInterval = 10 * time.Second

// ErrBlockSourceShuttingDown is returned when a subscription is requested
// while the block source is shutting down.
var ErrBlockSourceShuttingDown = errors.New("block source shutting down")

// HeightQuerier is the narrow view of the backend the polling block source
// needs.
type HeightQuerier interface {
	// BestHeight returns the current best-chain height known to the
	// backend.
	BestHeight() (uint32, error)
}

// blockSub is a single active block subscription.
type blockSub struct {
	heights chan uint32
	quit    chan struct{}
}

// PollingBlockSource implements BlockSource by polling the backend's best
// height on a ticker. It is a fallback for backends without push
// notifications, which is all a plain bitcoind RPC connection offers without
// ZMQ.
type PollingBlockSource struct {
	started sync.Once
	stopped sync.Once

	backend HeightQuerier
	ticker  ticker.Ticker

	subCounter atomic.Uint64

	mu         sync.Mutex
	subs       map[uint64]*blockSub
	bestHeight uint32

	wg   sync.WaitGroup
	quit chan struct{}
}

// Compile-time check to ensure PollingBlockSource satisfies the BlockSource
// interface.
var _ BlockSource = (*PollingBlockSource)(nil)

// NewPollingBlockSource creates a block source polling the given backend on
// the given ticker.
func NewPollingBlockSource(backend HeightQuerier,
	t ticker.Ticker) *PollingBlockSource {

	return &PollingBlockSource{
		backend: backend,
		ticker:  t,
		subs:    make(map[uint64]*blockSub),
		quit:    make(chan struct{}),
	}
}

// Start fetches the initial height and begins polling.
func (p *PollingBlockSource) Start() error {
	var startErr error
	p.started.Do(func() {
		height, err := p.backend.BestHeight()
		if err != nil {
			startErr = err
			return
		}
		p.bestHeight = height

		p.ticker.Resume()

		p.wg.Add(1)
		go p.pollLoop()
	})

	return startErr
}

// Stop terminates polling and cancels all subscriptions.
func (p *PollingBlockSource) Stop() {
	p.stopped.Do(func() {
		close(p.quit)
		p.ticker.Stop()
		p.wg.Wait()
	})
}

// SubscribeBlocks registers a new block height subscription. The current
// height is delivered immediately.
//
// NOTE: part of the BlockSource interface.
func (p *PollingBlockSource) SubscribeBlocks() (<-chan uint32, func(), error) {
	select {
	case <-p.quit:
		return nil, nil, ErrBlockSourceShuttingDown
	default:
	}

	sub := &blockSub{
		// The buffer gives slow consumers room for a burst of blocks
		// without stalling the poll loop.
		heights: make(chan uint32, 20),
		quit:    make(chan struct{}),
	}

	id := p.subCounter.Add(1)

	p.mu.Lock()
	sub.heights <- p.bestHeight
	p.subs[id] = sub
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if s, ok := p.subs[id]; ok {
			close(s.quit)
			delete(p.subs, id)
		}
	}

	return sub.heights, cancel, nil
}

// pollLoop queries the backend on every tick and fans new heights out to the
// subscribers.
func (p *PollingBlockSource) pollLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ticker.Ticks():
			height, err := p.backend.BestHeight()
			if err != nil {
				log.Warnf("Unable to poll best height: %v",
					err)
				continue
			}

			p.notifyHeight(height)

		case <-p.quit:
			return
		}
	}
}

// notifyHeight delivers the height to every subscriber if it advanced the
// best known height.
func (p *PollingBlockSource) notifyHeight(height uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if height <= p.bestHeight {
		return
	}
	p.bestHeight = height

	log.Debugf("New best height %d, notifying %d subscribers", height,
		len(p.subs))

	for _, sub := range p.subs {
		select {
		case sub.heights <- height:

		// A subscriber whose buffer is full misses this height; it
		// is not delivered later.
		default:
			log.Warnf("Block subscriber lagging, skipping "+
				"height %d", height)

		case <-sub.quit:
		}
	}
}
