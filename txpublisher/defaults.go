package txpublisher

import (
	"time"

	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

var (
	// DefaultMaxRetryDelay is the default upper bound of the jittered
	// delay before a fee check is retried.
	DefaultMaxRetryDelay = time.Minute

	// DefaultMaxFeeRate is the default maximum fee rate a publisher will
	// ever pay. The current value is equivalent to a fee rate of 1,000
	// sat/vbyte.
	DefaultMaxFeeRate = chainfee.SatPerVByte(1e3).FeePerKWeight()
)

const (
	// defaultBumpRatio is the minimum factor by which a replacement must
	// raise the feerate of the attempt it replaces.
	defaultBumpRatio = 1.20

	// deadlineUrgencyBlocks is the remaining-deadline threshold at or
	// below which the publisher bumps on every new block regardless of
	// the estimator's opinion.
	deadlineUrgencyBlocks = 6

	// staleResultDelay is how long an intermediate monitor result is held
	// back before re-delivery while a replacement is in flight.
	staleResultDelay = time.Second

	// maxStashSize bounds the number of messages buffered while the
	// publisher waits for funding or cleanup to finish.
	maxStashSize = 100
)
