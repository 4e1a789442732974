package algorand

import (
	"encoding/base64"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// certUnitName is the fixed unit name minted assets carry. One certificate
// is one supply-of-one, zero-decimal asset.
const certUnitName = "CERT"

// InvalidAddressError reports an address that fails the checksum-bearing
// base32 format before any network call is made.
type InvalidAddressError struct {
	Field   string
	Address string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s wallet address", e.Field)
}

// ValidateAddress checks that addr is a well-formed Algorand address. The
// field name is carried into the error so handlers can report which wallet
// was malformed.
func ValidateAddress(field, addr string) error {
	if _, err := types.DecodeAddress(addr); err != nil {
		return &InvalidAddressError{Field: field, Address: addr}
	}
	return nil
}

// UnsignedTxn is an encoded unsigned transaction ready to hand to an
// external wallet for signing. It contains no secret material.
type UnsignedTxn struct {
	// Base64 of the canonical msgpack encoding, the format wallet apps
	// accept for signing.
	Blob string `json:"txn"`
	// The transaction ID the signed form will have.
	TxID string `json:"txId"`
}

func encodeUnsigned(txn types.Transaction) UnsignedTxn {
	return UnsignedTxn{
		Blob: base64.StdEncoding.EncodeToString(msgpack.Encode(&txn)),
		TxID: crypto.GetTxID(txn),
	}
}

// BuildAssetCreate constructs the unsigned asset-creation transaction for a
// certificate NFT: total supply 1, zero decimals, asset URL pointing at the
// pinned metadata, manager and reserve set to the issuer, freeze and
// clawback left unset.
func BuildAssetCreate(params types.SuggestedParams, issuerWallet, assetName, assetURL string) (UnsignedTxn, error) {
	if err := ValidateAddress("issuer", issuerWallet); err != nil {
		return UnsignedTxn{}, err
	}
	txn, err := transaction.MakeAssetCreateTxn(
		issuerWallet,
		nil,
		params,
		1, // total supply: non-fungible
		0, // decimals
		false,
		issuerWallet, // manager
		issuerWallet, // reserve
		"",           // freeze
		"",           // clawback
		certUnitName,
		assetName,
		assetURL,
		"",
	)
	if err != nil {
		return UnsignedTxn{}, fmt.Errorf("build asset creation: %w", err)
	}
	return encodeUnsigned(txn), nil
}

// BuildAssetTransfer constructs the unsigned transfer of one unit of the
// asset from the issuer to the learner.
func BuildAssetTransfer(params types.SuggestedParams, issuerWallet, learnerWallet string, assetID uint64) (UnsignedTxn, error) {
	if err := ValidateAddress("issuer", issuerWallet); err != nil {
		return UnsignedTxn{}, err
	}
	if err := ValidateAddress("learner", learnerWallet); err != nil {
		return UnsignedTxn{}, err
	}
	txn, err := transaction.MakeAssetTransferTxn(issuerWallet, learnerWallet, 1, nil, params, "", assetID)
	if err != nil {
		return UnsignedTxn{}, fmt.Errorf("build asset transfer: %w", err)
	}
	return encodeUnsigned(txn), nil
}

// BuildAssetOptIn constructs the unsigned opt-in for the recipient: a
// zero-amount self-transfer, the ledger's idiom for initializing a holding
// slot.
func BuildAssetOptIn(params types.SuggestedParams, wallet string, assetID uint64) (UnsignedTxn, error) {
	if err := ValidateAddress("learner", wallet); err != nil {
		return UnsignedTxn{}, err
	}
	txn, err := transaction.MakeAssetAcceptanceTxn(wallet, nil, params, assetID)
	if err != nil {
		return UnsignedTxn{}, fmt.Errorf("build asset opt-in: %w", err)
	}
	return encodeUnsigned(txn), nil
}
