package chainclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassifyPublishError checks the mapping of backend error strings onto
// publish error classes.
func TestClassifyPublishError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		expected PublishErrorClass
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: PublishErrorUnknown,
		},
		{
			name: "rejected replacement",
			err: errors.New("-26: insufficient fee, rejecting " +
				"replacement deadbeef"),
			expected: PublishErrorRejectedReplacement,
		},
		{
			name: "rejected replacement, mixed case",
			err: errors.New("insufficient fee, Rejecting " +
				"Replacement"),
			expected: PublishErrorRejectedReplacement,
		},
		{
			name:     "missing inputs",
			err:      errors.New("bad-txns-inputs-missingorspent"),
			expected: PublishErrorInputsMissingOrSpent,
		},
		{
			name: "wrapped missing inputs",
			err: fmt.Errorf("unable to broadcast: %w",
				errors.New("bad-txns-inputs-missingorspent")),
			expected: PublishErrorInputsMissingOrSpent,
		},
		{
			name:     "unrelated error",
			err:      errors.New("connection refused"),
			expected: PublishErrorUnknown,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected,
				ClassifyPublishError(tc.err))
		})
	}
}
