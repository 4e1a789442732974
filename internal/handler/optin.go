package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/algorand"
)

// OptInHandler submits learner-signed opt-in transactions. The learner must
// accept the asset before the transfer leg of issuance can complete.
type OptInHandler struct {
	Ledger *algorand.Ledger
}

func NewOptInHandler(ledger *algorand.Ledger) *OptInHandler {
	return &OptInHandler{Ledger: ledger}
}

type optInReq struct {
	AssetID           uint64 `json:"assetId"`
	SignedTransaction string `json:"signedTransaction"`
	LearnerWallet     string `json:"learnerWallet"`
}

// OptInAsset handles POST /api/optInAsset: verify the blob was signed by the
// learner, submit it, and wait for confirmation.
func (h *OptInHandler) OptInAsset(c echo.Context) error {
	var req optInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AssetID == 0 || req.SignedTransaction == "" || req.LearnerWallet == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing required fields: assetId, signedTransaction, learnerWallet",
		})
	}
	if err := algorand.ValidateAddress("learner", req.LearnerWallet); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid learner wallet address"})
	}

	info, err := algorand.DecodeSignedTxn(req.SignedTransaction)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid signed transaction"})
	}
	if err := algorand.VerifySigner(info, strings.TrimSpace(req.LearnerWallet)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Signed transaction was not signed by the learner wallet"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), ledgerTimeout)
	defer cancel()

	conf, err := h.Ledger.Submit(ctx, req.SignedTransaction)
	if err != nil {
		return submitErrorJSON(c, optInSubmitMessages, "Failed to opt into asset", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"transactionId":  conf.TxID,
		"confirmedRound": conf.ConfirmedRound,
		"message":        "Asset opt-in successful",
	})
}
