package algorand

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySubmitError(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want SubmitCode
	}{
		{"overspend", "TransactionPool.Remember: transaction ABC: overspend (account XYZ, data ...)", CodeInsufficientFunds},
		{"asset not found", "asset 123 not found: asset not found", CodeAssetNotFound},
		{"missing from", "asset 123 missing from XYZ", CodeNotOptedIn},
		{"not opted in", "account has not opted in to asset 123", CodeNotOptedIn},
		{"already opted in", "account has already opted in to asset 123", CodeAlreadyOptedIn},
		{"insufficient balance", "asset transfer: insufficient balance", CodeAssetMissing},
		{"underflow", "underflow on subtracting 1 from sender amount 0", CodeAssetMissing},
		{"unrelated", "connection refused", CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySubmitError(errors.New(tc.msg)))
		})
	}
}

func TestSubmitErrorUnwrap(t *testing.T) {
	cause := errors.New("overspend (account XYZ)")
	err := &SubmitError{Code: ClassifySubmitError(cause), Cause: cause}

	assert.Equal(t, CodeInsufficientFunds, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insufficient_funds")

	var subErr *SubmitError
	wrapped := fmt.Errorf("issue certificate: %w", err)
	require.True(t, errors.As(wrapped, &subErr))
	assert.Equal(t, CodeInsufficientFunds, subErr.Code)
}
