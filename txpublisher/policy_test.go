package txpublisher

import (
	"errors"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConfTargetForDeadline checks the deadline-to-target table, including
// its boundaries.
func TestConfTargetForDeadline(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		remaining int32
		target    uint32
	}{
		{remaining: 1000, target: 144},
		{remaining: 144, target: 144},
		{remaining: 143, target: 72},
		{remaining: 72, target: 72},
		{remaining: 71, target: 36},
		{remaining: 36, target: 36},
		{remaining: 35, target: 12},
		{remaining: 18, target: 12},
		{remaining: 17, target: 6},
		{remaining: 12, target: 6},
		{remaining: 11, target: 2},
		{remaining: 2, target: 2},
		{remaining: 1, target: 1},
		{remaining: 0, target: 1},
		{remaining: -10, target: 1},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.target, confTargetForDeadline(tc.remaining),
			"remaining=%d", tc.remaining)
	}
}

// TestInitialFeeRate checks flooring and capping of the first attempt's
// feerate.
func TestInitialFeeRate(t *testing.T) {
	t.Parallel()

	estimator := &chainfee.MockEstimator{}
	defer estimator.AssertExpectations(t)

	p := feePolicy{
		estimator:    estimator,
		maxFeeRate:   chainfee.SatPerKWeight(10_000),
		floorFeeRate: chainfee.FeePerKwFloor,
	}

	// A normal estimate is used as-is.
	estimator.On("EstimateFeePerKW", uint32(144)).Return(
		chainfee.SatPerKWeight(1_000), nil,
	).Once()

	rate, err := p.initialFeeRate(200)
	require.NoError(t, err)
	require.Equal(t, chainfee.SatPerKWeight(1_000), rate)

	// An estimate below the floor is raised to the floor.
	estimator.On("EstimateFeePerKW", uint32(144)).Return(
		chainfee.SatPerKWeight(1), nil,
	).Once()

	rate, err = p.initialFeeRate(200)
	require.NoError(t, err)
	require.Equal(t, chainfee.FeePerKwFloor, rate)

	// An estimate above the cap is clamped.
	estimator.On("EstimateFeePerKW", uint32(1)).Return(
		chainfee.SatPerKWeight(50_000), nil,
	).Once()

	rate, err = p.initialFeeRate(0)
	require.NoError(t, err)
	require.Equal(t, chainfee.SatPerKWeight(10_000), rate)

	// An estimator failure is surfaced.
	errDummy := errors.New("estimator down")
	estimator.On("EstimateFeePerKW", uint32(144)).Return(
		chainfee.SatPerKWeight(0), errDummy,
	).Once()

	_, err = p.initialFeeRate(200)
	require.ErrorIs(t, err, errDummy)
}

// TestReplacementFeeRate checks the bump decision away from and close to the
// deadline.
func TestReplacementFeeRate(t *testing.T) {
	t.Parallel()

	current := chainfee.SatPerKWeight(1_000)

	testCases := []struct {
		name      string
		remaining int32
		estimate  chainfee.SatPerKWeight
		max       chainfee.SatPerKWeight
		expected  fn.Option[chainfee.SatPerKWeight]
	}{
		{
			name:      "far deadline, estimate flat",
			remaining: 100,
			estimate:  1_000,
			max:       100_000,
			expected:  fn.None[chainfee.SatPerKWeight](),
		},
		{
			name:      "far deadline, estimate below increment",
			remaining: 100,
			estimate:  1_199,
			max:       100_000,
			expected:  fn.None[chainfee.SatPerKWeight](),
		},
		{
			name:      "far deadline, estimate clears increment",
			remaining: 100,
			estimate:  1_500,
			max:       100_000,
			expected:  fn.Some(chainfee.SatPerKWeight(1_500)),
		},
		{
			name:      "near deadline, flat estimate still bumps",
			remaining: 6,
			estimate:  1_000,
			max:       100_000,
			expected:  fn.Some(chainfee.SatPerKWeight(1_200)),
		},
		{
			name:      "near deadline, estimate beats increment",
			remaining: 3,
			estimate:  2_000,
			max:       100_000,
			expected:  fn.Some(chainfee.SatPerKWeight(2_000)),
		},
		{
			name:      "near deadline, cap above increment",
			remaining: 3,
			estimate:  2_000,
			max:       1_500,
			expected:  fn.Some(chainfee.SatPerKWeight(1_500)),
		},
		{
			name:      "cap below increment blocks the bump",
			remaining: 3,
			estimate:  2_000,
			max:       1_100,
			expected:  fn.None[chainfee.SatPerKWeight](),
		},
		{
			name:      "cap swallows the whole increment",
			remaining: 3,
			estimate:  2_000,
			max:       1_000,
			expected:  fn.None[chainfee.SatPerKWeight](),
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			estimator := &chainfee.MockEstimator{}
			defer estimator.AssertExpectations(t)

			estimator.On(
				"EstimateFeePerKW",
				confTargetForDeadline(tc.remaining),
			).Return(tc.estimate, nil).Once()

			p := feePolicy{
				estimator:    estimator,
				maxFeeRate:   tc.max,
				floorFeeRate: chainfee.FeePerKwFloor,
			}

			next, err := p.replacementFeeRate(
				tc.remaining, current,
			)
			require.NoError(t, err)
			require.Equal(t, tc.expected, next)
		})
	}
}

// TestReplacementFeeRateProps checks the structural properties of the bump
// decision over random inputs: a proposed replacement always raises the
// feerate, never exceeds the cap, and always clears the mandatory RBF
// increment.
func TestReplacementFeeRateProps(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		remaining := rapid.Int32Range(-10, 1_000).Draw(rt, "remaining")
		current := chainfee.SatPerKWeight(
			rapid.Int64Range(300, 1_000_000).Draw(rt, "current"),
		)
		estimate := chainfee.SatPerKWeight(
			rapid.Int64Range(1, 2_000_000).Draw(rt, "estimate"),
		)
		max := chainfee.SatPerKWeight(
			rapid.Int64Range(300, 2_000_000).Draw(rt, "max"),
		)

		estimator := &chainfee.MockEstimator{}
		estimator.On("EstimateFeePerKW",
			confTargetForDeadline(remaining)).Return(estimate, nil)

		p := feePolicy{
			estimator:    estimator,
			maxFeeRate:   max,
			floorFeeRate: chainfee.FeePerKwFloor,
		}

		next, err := p.replacementFeeRate(remaining, current)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		next.WhenSome(func(rate chainfee.SatPerKWeight) {
			if rate <= current {
				rt.Fatalf("replacement %v does not raise %v",
					rate, current)
			}
			if rate > max {
				rt.Fatalf("replacement %v exceeds cap %v",
					rate, max)
			}

			// Every proposal must clear the mandatory RBF
			// increment, capped or not.
			minReplacement := bumpFeeRate(
				current, defaultBumpRatio,
			)
			if rate < minReplacement {
				rt.Fatalf("replacement %v below increment %v",
					rate, minReplacement)
			}
		})
	})
}
