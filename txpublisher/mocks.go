package txpublisher

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/mempoolmonitor"
	"github.com/lightninglabs/txpublisher/txnotifier"
	"github.com/stretchr/testify/mock"
)

// MockFunder is a mock implementation of Funder.
type MockFunder struct {
	mock.Mock
}

// Compile-time constraint to ensure MockFunder implements Funder.
var _ Funder = (*MockFunder)(nil)

// FundTransaction returns a signed candidate at the requested feerate.
func (m *MockFunder) FundTransaction(req *FundRequest) (*FundedTx, error) {
	args := m.Called(req)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*FundedTx), args.Error(1)
}

// MockPrePublisher is a mock implementation of PrePublisher.
type MockPrePublisher struct {
	mock.Mock
}

// Compile-time constraint to ensure MockPrePublisher implements PrePublisher.
var _ PrePublisher = (*MockPrePublisher)(nil)

// CheckPreconditions validates the command.
func (m *MockPrePublisher) CheckPreconditions(cmd *PublishCmd) (*wire.MsgTx,
	error) {

	args := m.Called(cmd)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*wire.MsgTx), args.Error(1)
}

// MockTimeLockWaiter is a mock implementation of TimeLockWaiter.
type MockTimeLockWaiter struct {
	mock.Mock
}

// Compile-time constraint to ensure MockTimeLockWaiter implements
// TimeLockWaiter.
var _ TimeLockWaiter = (*MockTimeLockWaiter)(nil)

// WaitForTimeLocks returns once the transaction is broadcastable.
func (m *MockTimeLockWaiter) WaitForTimeLocks(tx *wire.MsgTx,
	quit <-chan struct{}) error {

	args := m.Called(tx, quit)

	return args.Error(0)
}

// MockEventSink is a mock implementation of mempoolmonitor.EventSink.
type MockEventSink struct {
	mock.Mock
}

// Compile-time constraint to ensure MockEventSink implements EventSink.
var _ mempoolmonitor.EventSink = (*MockEventSink)(nil)

// NotifyTransactionPublished records a published event.
func (m *MockEventSink) NotifyTransactionPublished(
	event txnotifier.TransactionPublishedEvent) {

	m.Called(event)
}

// NotifyTransactionConfirmed records a confirmed event.
func (m *MockEventSink) NotifyTransactionConfirmed(
	event txnotifier.TransactionConfirmedEvent) {

	m.Called(event)
}
