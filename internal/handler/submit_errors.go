package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/algorand"
)

// User-facing messages per submit-error code and operation. The submitter
// classifies node rejections into codes; the tables below own the wording,
// so a change in the node's error text never reaches users.
var optInSubmitMessages = map[algorand.SubmitCode]string{
	algorand.CodeInsufficientFunds: "Insufficient funds in learner wallet for opt-in transaction",
	algorand.CodeAssetNotFound:     "Asset does not exist or invalid asset ID",
	algorand.CodeAlreadyOptedIn:    "Learner wallet has already opted into this asset",
}

var transferSubmitMessages = map[algorand.SubmitCode]string{
	algorand.CodeInsufficientFunds: "Insufficient funds in organization wallet",
	algorand.CodeAssetNotFound:     "Asset does not exist or invalid asset ID",
	algorand.CodeNotOptedIn:        "Learner wallet has not opted into this asset",
	algorand.CodeAssetMissing:      "Organization does not have the asset to transfer",
}

// submitErrorJSON writes the 500 response for a failed ledger submission,
// using the operation's message table and falling back to a generic message
// that still carries the node's text in details.
func submitErrorJSON(c echo.Context, messages map[algorand.SubmitCode]string, fallback string, err error) error {
	var subErr *algorand.SubmitError
	if errors.As(err, &subErr) {
		if msg, ok := messages[subErr.Code]; ok {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   msg,
				"details": subErr.Cause.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   fallback,
			"details": subErr.Cause.Error(),
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   fallback,
		"details": err.Error(),
	})
}
