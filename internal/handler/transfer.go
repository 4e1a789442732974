package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/model"
	"github.com/credzi/credzi/internal/repository"
	"github.com/credzi/credzi/internal/saga"
)

// pendingLister is the slice of the certificate repository this handler
// reads from.
type pendingLister interface {
	ListPending(ctx context.Context, organization string, limit, offset int64) ([]model.Certificate, int64, error)
}

// TransferHandler completes the transfer leg of issuance and exposes the
// organization-facing views of certificates still waiting on it.
type TransferHandler struct {
	Saga  *saga.Orchestrator
	Certs pendingLister
}

func NewTransferHandler(s *saga.Orchestrator, certs pendingLister) *TransferHandler {
	return &TransferHandler{Saga: s, Certs: certs}
}

type transferReq struct {
	CertificateID string `json:"certificateId"`
	LearnerWallet string `json:"learnerWallet"`
	SignedTxn     string `json:"signedTransaction"`
}

// TransferCertificate handles POST /api/transferCertificate: submit the
// issuer-signed asset transfer and mark the stored record as delivered.
func (h *TransferHandler) TransferCertificate(c echo.Context) error {
	var req transferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CertificateID == "" || req.LearnerWallet == "" || req.SignedTxn == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing required fields: certificateId, signedTransaction, learnerWallet",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), ledgerTimeout)
	defer cancel()

	cert, conf, err := h.Saga.Transfer(ctx, saga.TransferInput{
		CertificateID: strings.TrimSpace(req.CertificateID),
		LearnerWallet: strings.TrimSpace(req.LearnerWallet),
		SignedTxn:     req.SignedTxn,
	})
	if err != nil {
		var addrErr *algorand.InvalidAddressError
		switch {
		case errors.Is(err, repository.ErrCertificateNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Certificate not found"})
		case errors.As(err, &addrErr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid learner wallet address"})
		case errors.Is(err, algorand.ErrSignerMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Signed transaction was not signed by the issuer wallet"})
		}
		return submitErrorJSON(c, transferSubmitMessages, "Failed to transfer certificate", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"certificate":    formatCertificate(cert),
		"transactionId":  conf.TxID,
		"confirmedRound": conf.ConfirmedRound,
		"message":        "Certificate transferred successfully",
	})
}

// ListPendingCertificates handles GET /api/certificates/pending for issuers:
// certificates minted but not yet delivered, optionally scoped to one
// organization, newest first.
func (h *TransferHandler) ListPendingCertificates(c echo.Context) error {
	organization := strings.TrimSpace(c.QueryParam("organization"))

	limit := int64(50)
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	var offset int64
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			offset = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	certs, total, err := h.Certs.ListPending(ctx, organization, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch pending certificates"})
	}

	formatted := make([]echo.Map, 0, len(certs))
	for i := range certs {
		formatted = append(formatted, formatCertificate(&certs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"certificates": formatted,
		"pagination": echo.Map{
			"total":   total,
			"limit":   limit,
			"offset":  offset,
			"hasMore": offset+limit < total,
		},
	})
}

type updateStatusReq struct {
	CertificateID string `json:"certificateId"`
	Transferred   bool   `json:"transferredToLearner"`
}

// UpdateTransferStatus handles POST /api/certificates/update-status: a
// manual override of the delivered flag for operators reconciling records
// against the chain.
func (h *TransferHandler) UpdateTransferStatus(c echo.Context) error {
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CertificateID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Certificate ID is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cert, err := h.Saga.Override(ctx, strings.TrimSpace(req.CertificateID), req.Transferred)
	if err != nil {
		if errors.Is(err, repository.ErrCertificateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Certificate not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update certificate status"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"certificate": formatCertificate(cert),
		"message":     "Certificate status updated",
	})
}

func formatCertificate(cert *model.Certificate) echo.Map {
	return echo.Map{
		"id":                   cert.ID.Hex(),
		"learnerName":          cert.LearnerName,
		"learnerWallet":        cert.LearnerWallet,
		"courseName":           cert.CourseName,
		"organizationName":     cert.OrganizationName,
		"assetId":              cert.AssetID,
		"ipfsHash":             cert.IpfsHash,
		"transactionId":        cert.TransactionID,
		"transferTxId":         cert.TransferTxID,
		"transferredToLearner": cert.TransferredToLearner,
		"status":               cert.Status,
		"issuedAt":             cert.IssuedAt,
	}
}
