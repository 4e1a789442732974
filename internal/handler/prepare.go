package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/ipfs"
)

// PrepareHandler builds unsigned transactions for the user's wallet to sign.
// The returned blobs carry no secret material; signing happens entirely in
// the external wallet application, which may refuse.
type PrepareHandler struct {
	Ledger *algorand.Ledger
	Pinner *ipfs.Pinner
}

func NewPrepareHandler(ledger *algorand.Ledger, pinner *ipfs.Pinner) *PrepareHandler {
	return &PrepareHandler{Ledger: ledger, Pinner: pinner}
}

type prepareTxnReq struct {
	Type          string `json:"type"` // asset-create | asset-transfer | asset-opt-in
	IssuerWallet  string `json:"issuerWallet,omitempty"`
	LearnerWallet string `json:"learnerWallet,omitempty"`
	CourseName    string `json:"courseName,omitempty"`
	IpfsHash      string `json:"ipfsHash,omitempty"`
	AssetID       uint64 `json:"assetId,omitempty"`
}

// PrepareTransaction handles POST /api/prepareTransaction. Network
// parameters are fetched fresh on every call because they expire after a
// validity window.
func (h *PrepareHandler) PrepareTransaction(c echo.Context) error {
	var req prepareTxnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	params, err := h.Ledger.SuggestedParams(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "Failed to fetch network parameters",
			"details": err.Error(),
		})
	}

	var unsigned algorand.UnsignedTxn
	switch strings.TrimSpace(req.Type) {
	case "asset-create":
		if req.IssuerWallet == "" || req.CourseName == "" || req.IpfsHash == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "issuerWallet, courseName and ipfsHash are required"})
		}
		assetName := fmt.Sprintf("%s Certificate", strings.TrimSpace(req.CourseName))
		unsigned, err = algorand.BuildAssetCreate(params, req.IssuerWallet, assetName, h.Pinner.GatewayURL(req.IpfsHash))
	case "asset-transfer":
		if req.IssuerWallet == "" || req.LearnerWallet == "" || req.AssetID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "issuerWallet, learnerWallet and assetId are required"})
		}
		unsigned, err = algorand.BuildAssetTransfer(params, req.IssuerWallet, req.LearnerWallet, req.AssetID)
	case "asset-opt-in":
		if req.LearnerWallet == "" || req.AssetID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "learnerWallet and assetId are required"})
		}
		unsigned, err = algorand.BuildAssetOptIn(params, req.LearnerWallet, req.AssetID)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be asset-create, asset-transfer or asset-opt-in"})
	}
	if err != nil {
		var addrErr *algorand.InvalidAddressError
		if errors.As(err, &addrErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": addrErr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "Failed to prepare transaction for signing",
			"details": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transaction": unsigned.Blob,
		"txId":        unsigned.TxID,
	})
}
