package chainclient

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/mock"
)

// MockChainClient is a mock implementation of the ChainClient interface.
// This type is exported because it is used by the monitor and publisher
// tests.
type MockChainClient struct {
	mock.Mock
}

// Compile-time constraint to ensure MockChainClient implements ChainClient.
var _ ChainClient = (*MockChainClient)(nil)

// PublishTransaction broadcasts the passed transaction.
func (m *MockChainClient) PublishTransaction(tx *wire.MsgTx,
	label string) error {

	args := m.Called(tx, label)

	return args.Error(0)
}

// GetTxConfirmations returns the confirmation count of the transaction.
func (m *MockChainClient) GetTxConfirmations(
	txid chainhash.Hash) (fn.Option[uint32], error) {

	args := m.Called(txid)

	return args.Get(0).(fn.Option[uint32]), args.Error(1)
}

// IsOutputSpendable returns whether the output is unspent.
func (m *MockChainClient) IsOutputSpendable(op wire.OutPoint,
	includeMempool bool) (bool, error) {

	args := m.Called(op, includeMempool)

	return args.Bool(0), args.Error(1)
}

// AbandonTransaction forgets an unconfirmed wallet transaction.
func (m *MockChainClient) AbandonTransaction(txid chainhash.Hash) error {
	args := m.Called(txid)

	return args.Error(0)
}

// UnlockOutpoints releases wallet locks on the outpoints.
func (m *MockChainClient) UnlockOutpoints(ops []wire.OutPoint) error {
	args := m.Called(ops)

	return args.Error(0)
}

// MockBlockSource is a block source fed manually by tests.
type MockBlockSource struct {
	mu         sync.Mutex
	subs       []chan uint32
	bestHeight uint32
}

// Compile-time constraint to ensure MockBlockSource implements BlockSource.
var _ BlockSource = (*MockBlockSource)(nil)

// NewMockBlockSource creates a manual block source starting at the given
// height.
func NewMockBlockSource(height uint32) *MockBlockSource {
	return &MockBlockSource{bestHeight: height}
}

// NotifyHeight feeds a new height to all subscribers.
func (m *MockBlockSource) NotifyHeight(height uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bestHeight = height
	for _, sub := range m.subs {
		sub <- height
	}
}

// SubscribeBlocks returns a manually fed height stream. The current height
// is delivered immediately.
func (m *MockBlockSource) SubscribeBlocks() (<-chan uint32, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := make(chan uint32, 100)
	sub <- m.bestHeight
	m.subs = append(m.subs, sub)

	return sub, func() {}, nil
}
