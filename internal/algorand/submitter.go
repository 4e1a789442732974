package algorand

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
)

// waitRounds bounds confirmation polling, matching the network convention of
// four rounds.
const waitRounds = 4

// SubmitCode classifies node rejections into stable codes. User-facing
// wording is chosen by the handlers per operation; the node's exact error
// text never leaks past this boundary except as diagnostics.
type SubmitCode string

const (
	CodeInsufficientFunds SubmitCode = "insufficient_funds"
	CodeAssetNotFound     SubmitCode = "asset_not_found"
	CodeNotOptedIn        SubmitCode = "not_opted_in"
	CodeAlreadyOptedIn    SubmitCode = "already_opted_in"
	CodeAssetMissing      SubmitCode = "missing_asset_balance"
	CodeUnknown           SubmitCode = "submit_failed"
)

// submitCodeTable maps substrings of algod error messages to codes. Order
// matters: "underflow on subtracting" style balance errors report both
// "insufficient balance" and the asset, so the more specific entries come
// first.
var submitCodeTable = []struct {
	substr string
	code   SubmitCode
}{
	{"overspend", CodeInsufficientFunds},
	{"asset not found", CodeAssetNotFound},
	{"missing from", CodeNotOptedIn},
	{"not opted in", CodeNotOptedIn},
	{"already opted in", CodeAlreadyOptedIn},
	{"has already opted in", CodeAlreadyOptedIn},
	{"insufficient balance", CodeAssetMissing},
	{"underflow on subtracting", CodeAssetMissing},
}

// SubmitError wraps a failed submission with its classified code. The
// underlying node message is preserved for the `details` field of error
// responses.
type SubmitError struct {
	Code  SubmitCode
	Cause error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("transaction submit failed (%s): %v", e.Code, e.Cause)
}

func (e *SubmitError) Unwrap() error { return e.Cause }

// ClassifySubmitError maps a node error onto a SubmitCode.
func ClassifySubmitError(err error) SubmitCode {
	msg := strings.ToLower(err.Error())
	for _, entry := range submitCodeTable {
		if strings.Contains(msg, entry.substr) {
			return entry.code
		}
	}
	return CodeUnknown
}

// Confirmation is the outcome of a confirmed transaction. AssetID is only
// populated for asset-creation transactions.
type Confirmation struct {
	TxID           string
	ConfirmedRound uint64
	AssetID        uint64
}

// Submit sends a base64-encoded signed transaction to the node and blocks
// until it confirms, up to waitRounds rounds. Resubmitting an already
// confirmed transaction is not idempotent; avoiding that is the caller's
// responsibility. Failures return *SubmitError carrying the classified code.
func (l *Ledger) Submit(ctx context.Context, signedTxnB64 string) (Confirmation, error) {
	raw, err := base64.StdEncoding.DecodeString(signedTxnB64)
	if err != nil {
		return Confirmation{}, fmt.Errorf("decode signed transaction: %w", err)
	}

	txid, err := l.client.SendRawTransaction(raw).Do(ctx)
	if err != nil {
		return Confirmation{}, &SubmitError{Code: ClassifySubmitError(err), Cause: err}
	}

	info, err := transaction.WaitForConfirmation(l.client, txid, waitRounds, ctx)
	if err != nil {
		return Confirmation{}, &SubmitError{Code: ClassifySubmitError(err), Cause: err}
	}

	return Confirmation{
		TxID:           txid,
		ConfirmedRound: info.ConfirmedRound,
		AssetID:        info.AssetIndex,
	}, nil
}
