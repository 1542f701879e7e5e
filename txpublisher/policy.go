package txpublisher

import (
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// confTargetForDeadline maps the number of blocks left until the deadline
// onto the confirmation target asked of the fee estimator. Far deadlines map
// onto cheap targets, near deadlines onto aggressive ones.
func confTargetForDeadline(remaining int32) uint32 {
	switch {
	case remaining >= 144:
		return 144

	case remaining >= 72:
		return 72

	case remaining >= 36:
		return 36

	case remaining >= 18:
		return 12

	case remaining >= 12:
		return 6

	case remaining >= 2:
		return 2

	default:
		return 1
	}
}

// bumpFeeRate multiplies a feerate by the replacement ratio.
func bumpFeeRate(rate chainfee.SatPerKWeight,
	ratio float64) chainfee.SatPerKWeight {

	return chainfee.SatPerKWeight(float64(rate) * ratio)
}

// feePolicy decides whether and at what feerate an attempt should be
// replaced.
type feePolicy struct {
	// estimator supplies network feerate estimates per confirmation
	// target.
	estimator chainfee.Estimator

	// maxFeeRate caps the feerate of any attempt.
	maxFeeRate chainfee.SatPerKWeight

	// floorFeeRate is the lowest feerate the first attempt is funded at.
	// The publisher sets it to the relay floor; the pre-signed
	// transaction's own feerate is not consulted.
	floorFeeRate chainfee.SatPerKWeight
}

// initialFeeRate returns the feerate of the first attempt: the estimate for
// the deadline's conf target, floored at floorFeeRate and capped at the
// maximum.
func (p *feePolicy) initialFeeRate(remaining int32) (chainfee.SatPerKWeight,
	error) {

	target := confTargetForDeadline(remaining)
	estimate, err := p.estimator.EstimateFeePerKW(target)
	if err != nil {
		return 0, err
	}

	rate := estimate
	if rate < p.floorFeeRate {
		rate = p.floorFeeRate
	}
	if rate > p.maxFeeRate {
		rate = p.maxFeeRate
	}

	return rate, nil
}

// replacementFeeRate decides whether the current attempt should be replaced
// and, if so, at what feerate. Away from the deadline a replacement is only
// funded when the network estimate itself has climbed past the mandatory RBF
// increment over the current attempt. Close to the deadline the feerate is
// bumped on every new block no matter what the estimator says.
func (p *feePolicy) replacementFeeRate(remaining int32,
	current chainfee.SatPerKWeight) (fn.Option[chainfee.SatPerKWeight],
	error) {

	none := fn.None[chainfee.SatPerKWeight]()

	target := confTargetForDeadline(remaining)
	estimate, err := p.estimator.EstimateFeePerKW(target)
	if err != nil {
		return none, err
	}

	minReplacement := bumpFeeRate(current, defaultBumpRatio)

	var next chainfee.SatPerKWeight
	switch {
	// The deadline is close. Escalate unconditionally, using the
	// estimate when it is even more aggressive than the mandatory bump.
	case remaining <= deadlineUrgencyBlocks:
		next = minReplacement
		if estimate > next {
			next = estimate
		}

	// The network got more expensive. Chase the estimate, but only when
	// it clears the RBF increment, otherwise the replacement would be
	// rejected anyway.
	case estimate >= minReplacement:
		next = estimate

	default:
		return none, nil
	}

	if next > p.maxFeeRate {
		next = p.maxFeeRate
	}

	// A replacement below the mandatory increment would be rejected by
	// the relay rules, so when the cap eats into the increment there is
	// nothing useful to publish.
	if next < minReplacement {
		log.Debugf("Fee cap %v prevents replacing attempt at %v",
			p.maxFeeRate, current)

		return none, nil
	}

	return fn.Some(next), nil
}
