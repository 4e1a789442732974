// Package algorand wraps the pieces of the Algorand SDK this service uses:
// building unsigned asset transactions, submitting wallet-signed blobs,
// waiting for confirmation and querying account holdings. All cryptography
// and consensus lives in the node and the user's wallet; this package never
// sees a private key.
package algorand

import (
	"context"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Ledger is a thin handle around an algod client. It implements the
// submitter and opt-in checker contracts consumed by the issuance saga.
type Ledger struct {
	client *algod.Client
}

// NewLedger connects to an algod node. The token may be empty for public
// API providers.
func NewLedger(address, token string) (*Ledger, error) {
	c, err := algod.MakeClient(address, token)
	if err != nil {
		return nil, fmt.Errorf("algod client: %w", err)
	}
	return &Ledger{client: c}, nil
}

// SuggestedParams fetches current network parameters. They expire after a
// validity window, so every transaction build fetches them fresh.
func (l *Ledger) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := l.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("fetch network params: %w", err)
	}
	return sp, nil
}

// AssetInfo looks up an asset by ID on the ledger.
func (l *Ledger) AssetInfo(ctx context.Context, assetID uint64) (models.Asset, error) {
	return l.client.GetAssetByID(assetID).Do(ctx)
}

// IsNotFound reports whether an algod lookup failed with HTTP 404, the
// status the node answers with for asset IDs that never existed. The SDK
// folds the status code into the error text, so that is where we read it.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "HTTP 404")
}
