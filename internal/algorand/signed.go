package algorand

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// ErrSignerMismatch is returned when a signed transaction was not authorized
// by the wallet the caller claims signed it.
var ErrSignerMismatch = errors.New("signed transaction sender does not match expected wallet")

// SignedTxnInfo describes a wallet-signed transaction blob after decoding.
// The service only ever sees these signed bytes; the signing itself happens
// in the user's wallet application.
type SignedTxnInfo struct {
	TxID   string
	Sender string
}

// DecodeSignedTxn decodes a base64 signed transaction and returns its
// computed ID and sender address. An empty or undecodable blob fails fast so
// a wallet that returned no payload is caught before any network call.
func DecodeSignedTxn(signedTxnB64 string) (SignedTxnInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(signedTxnB64)
	if err != nil {
		return SignedTxnInfo{}, fmt.Errorf("decode signed transaction: %w", err)
	}
	if len(raw) == 0 {
		return SignedTxnInfo{}, errors.New("empty signed transaction")
	}
	var stx types.SignedTxn
	if err := msgpack.Decode(raw, &stx); err != nil {
		return SignedTxnInfo{}, fmt.Errorf("malformed signed transaction: %w", err)
	}
	return SignedTxnInfo{
		TxID:   crypto.GetTxID(stx.Txn),
		Sender: stx.Txn.Sender.String(),
	}, nil
}

// VerifySigner checks that the signed transaction's sender is the expected
// wallet. This catches a wallet session signing with the wrong account
// before the transaction is submitted.
func VerifySigner(info SignedTxnInfo, expectedWallet string) error {
	if info.Sender != expectedWallet {
		return ErrSignerMismatch
	}
	return nil
}
