package txpublisher

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/txpublisher/mempoolmonitor"
)

// ErrInvalidPublishResult is returned when a PublishResult breaks the
// invariants tied to its event type.
var ErrInvalidPublishResult = errors.New("invalid publish result")

// PublishEvent describes the terminal outcome of a publisher.
type PublishEvent uint8

const (
	// sentinalPublishEvent is used as a sentinel to check whether the
	// event is unknown.
	sentinalPublishEvent PublishEvent = iota

	// PublishConfirmed means one of the publisher's attempts reached its
	// required confirmation depth.
	PublishConfirmed

	// PublishRejected means no attempt can confirm anymore. The attached
	// reason explains why.
	PublishRejected
)

// String returns a human-readable name of the event.
func (e PublishEvent) String() string {
	switch e {
	case PublishConfirmed:
		return "Confirmed"

	case PublishRejected:
		return "Rejected"

	default:
		return "Unknown"
	}
}

// PublishResult is the single terminal result a publisher delivers for its
// command.
type PublishResult struct {
	// ID identifies the publisher that produced the result.
	ID string

	// Cmd is the command the result answers.
	Cmd *PublishCmd

	// Event is the terminal outcome.
	Event PublishEvent

	// Tx is the winning transaction for PublishConfirmed, or the last
	// attempted transaction for PublishRejected when one was built.
	Tx *wire.MsgTx

	// Reason explains a PublishRejected event.
	Reason mempoolmonitor.RejectionReason
}

// Validate checks the result against the invariants of its event type.
func (r *PublishResult) Validate() error {
	switch r.Event {
	case PublishConfirmed:
		if r.Tx == nil {
			return fmt.Errorf("%w: confirmed without tx",
				ErrInvalidPublishResult)
		}

	case PublishRejected:

	default:
		return fmt.Errorf("%w: unknown event %d",
			ErrInvalidPublishResult, r.Event)
	}

	if r.Cmd == nil {
		return fmt.Errorf("%w: missing cmd", ErrInvalidPublishResult)
	}

	return nil
}

// String returns a human-readable description of the result.
func (r *PublishResult) String() string {
	if r.Event == PublishRejected {
		return fmt.Sprintf("%v(id=%s, %v)", r.Event, r.ID, r.Reason)
	}

	return fmt.Sprintf("%v(id=%s)", r.Event, r.ID)
}
