package algorand

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams returns network parameters good enough for offline encoding.
func testParams() types.SuggestedParams {
	return types.SuggestedParams{
		Fee:             1000,
		FlatFee:         true,
		FirstRoundValid: 1,
		LastRoundValid:  1000,
		GenesisID:       "testnet-v1.0",
		GenesisHash:     make([]byte, 32),
	}
}

func decodeUnsigned(t *testing.T, blob string) types.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	var txn types.Transaction
	require.NoError(t, msgpack.Decode(raw, &txn))
	return txn
}

func TestValidateAddress(t *testing.T) {
	acct := crypto.GenerateAccount()
	assert.NoError(t, ValidateAddress("issuer", acct.Address.String()))

	err := ValidateAddress("learner", "not-an-address")
	require.Error(t, err)
	var addrErr *InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "learner", addrErr.Field)
	assert.Equal(t, "invalid learner wallet address", err.Error())
}

func TestBuildAssetCreate(t *testing.T) {
	issuer := crypto.GenerateAccount().Address.String()

	unsigned, err := BuildAssetCreate(testParams(), issuer, "Go Fundamentals Certificate", "https://gateway.pinata.cloud/ipfs/QmTest")
	require.NoError(t, err)
	require.NotEmpty(t, unsigned.TxID)

	txn := decodeUnsigned(t, unsigned.Blob)
	assert.Equal(t, types.AssetConfigTx, txn.Type)
	assert.Equal(t, issuer, txn.Sender.String())
	assert.Equal(t, uint64(1), txn.AssetParams.Total)
	assert.Equal(t, uint32(0), txn.AssetParams.Decimals)
	assert.Equal(t, "CERT", txn.AssetParams.UnitName)
	assert.Equal(t, "Go Fundamentals Certificate", txn.AssetParams.AssetName)
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmTest", txn.AssetParams.URL)
	assert.Equal(t, issuer, txn.AssetParams.Manager.String())
	assert.Equal(t, issuer, txn.AssetParams.Reserve.String())
	assert.Equal(t, unsigned.TxID, crypto.GetTxID(txn))
}

func TestBuildAssetCreateRejectsBadIssuer(t *testing.T) {
	_, err := BuildAssetCreate(testParams(), "bogus", "Name", "url")
	var addrErr *InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "issuer", addrErr.Field)
}

func TestBuildAssetTransfer(t *testing.T) {
	issuer := crypto.GenerateAccount().Address.String()
	learner := crypto.GenerateAccount().Address.String()

	unsigned, err := BuildAssetTransfer(testParams(), issuer, learner, 42)
	require.NoError(t, err)

	txn := decodeUnsigned(t, unsigned.Blob)
	assert.Equal(t, types.AssetTransferTx, txn.Type)
	assert.Equal(t, issuer, txn.Sender.String())
	assert.Equal(t, learner, txn.AssetReceiver.String())
	assert.Equal(t, types.AssetIndex(42), txn.XferAsset)
	assert.Equal(t, uint64(1), txn.AssetAmount)
}

func TestBuildAssetOptIn(t *testing.T) {
	learner := crypto.GenerateAccount().Address.String()

	unsigned, err := BuildAssetOptIn(testParams(), learner, 42)
	require.NoError(t, err)

	// An opt-in is a zero-amount transfer to self.
	txn := decodeUnsigned(t, unsigned.Blob)
	assert.Equal(t, types.AssetTransferTx, txn.Type)
	assert.Equal(t, learner, txn.Sender.String())
	assert.Equal(t, learner, txn.AssetReceiver.String())
	assert.Equal(t, uint64(0), txn.AssetAmount)
}
