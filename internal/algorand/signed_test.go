package algorand

import (
	"encoding/base64"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedBlob builds and signs an asset-creation transaction for the account,
// returning the base64 blob a wallet would hand back.
func signedBlob(t *testing.T, acct crypto.Account) (blob, txid string) {
	t.Helper()
	unsigned, err := BuildAssetCreate(testParams(), acct.Address.String(), "Test Certificate", "ipfs://QmTest")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(unsigned.Blob)
	require.NoError(t, err)
	var txn types.Transaction
	require.NoError(t, msgpack.Decode(raw, &txn))

	txid, stx, err := crypto.SignTransaction(acct.PrivateKey, txn)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(stx), txid
}

func TestDecodeSignedTxn(t *testing.T) {
	acct := crypto.GenerateAccount()
	blob, txid := signedBlob(t, acct)

	info, err := DecodeSignedTxn(blob)
	require.NoError(t, err)
	assert.Equal(t, acct.Address.String(), info.Sender)
	assert.Equal(t, txid, info.TxID)
}

func TestDecodeSignedTxnRejectsGarbage(t *testing.T) {
	_, err := DecodeSignedTxn("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = DecodeSignedTxn("")
	assert.Error(t, err)
}

func TestVerifySigner(t *testing.T) {
	acct := crypto.GenerateAccount()
	other := crypto.GenerateAccount()
	blob, _ := signedBlob(t, acct)

	info, err := DecodeSignedTxn(blob)
	require.NoError(t, err)

	assert.NoError(t, VerifySigner(info, acct.Address.String()))
	assert.ErrorIs(t, VerifySigner(info, other.Address.String()), ErrSignerMismatch)
}
