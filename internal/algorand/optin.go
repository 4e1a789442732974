package algorand

import (
	"context"
	"fmt"
)

// IsOptedIn reports whether the wallet currently holds a slot for the given
// asset. The answer is a point-in-time read of ledger state with no caching;
// an opt-in racing this call can make two consecutive answers disagree.
//
// The check is advisory: callers must treat an error as "unknown", not "not
// opted in", and the ledger itself remains the authority on whether a
// transfer is valid.
func (l *Ledger) IsOptedIn(ctx context.Context, wallet string, assetID uint64) (bool, error) {
	if err := ValidateAddress("wallet", wallet); err != nil {
		return false, err
	}
	account, err := l.client.AccountInformation(wallet).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch account holdings: %w", err)
	}
	for _, holding := range account.Assets {
		if holding.AssetId == assetID {
			return true, nil
		}
	}
	return false, nil
}
