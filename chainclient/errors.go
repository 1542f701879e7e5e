package chainclient

import (
	"strings"
)

// PublishErrorClass describes how a broadcast failure should be interpreted
// by the caller. Bitcoin Core only exposes human-readable error strings for
// the cases we care about, so the mapping is substring-based and kept in this
// single place.
type PublishErrorClass uint8

const (
	// PublishErrorUnknown is any broadcast failure we have no special
	// handling for.
	PublishErrorUnknown PublishErrorClass = iota

	// PublishErrorRejectedReplacement means the mempool refused the
	// transaction because a conflicting unconfirmed transaction could not
	// be replaced, usually because the fee did not clear the BIP-125
	// replacement rules.
	PublishErrorRejectedReplacement

	// PublishErrorInputsMissingOrSpent means at least one input of the
	// transaction does not exist or is already spent by a confirmed
	// transaction.
	PublishErrorInputsMissingOrSpent
)

// String returns a human-readable name for the error class.
func (c PublishErrorClass) String() string {
	switch c {
	case PublishErrorRejectedReplacement:
		return "RejectedReplacement"

	case PublishErrorInputsMissingOrSpent:
		return "InputsMissingOrSpent"

	default:
		return "Unknown"
	}
}

const (
	// rejectedReplacementMsg is the fragment bitcoind puts in its
	// "insufficient fee, rejecting replacement ..." family of errors.
	rejectedReplacementMsg = "rejecting replacement"

	// missingInputsMsg is the reject code bitcoind returns when an input
	// of the transaction is unknown or spent by a confirmed transaction.
	missingInputsMsg = "bad-txns-inputs-missingorspent"
)

// ClassifyPublishError maps a broadcast error returned by the backend onto
// the class the publisher acts on. A nil error maps to PublishErrorUnknown
// and must not be passed in.
func ClassifyPublishError(err error) PublishErrorClass {
	if err == nil {
		return PublishErrorUnknown
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, rejectedReplacementMsg):
		return PublishErrorRejectedReplacement

	case strings.Contains(msg, missingInputsMsg):
		return PublishErrorInputsMissingOrSpent

	default:
		return PublishErrorUnknown
	}
}
