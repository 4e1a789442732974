package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/ipfs"
	"github.com/credzi/credzi/internal/repository"
)

// VerifyHandler serves the public verification endpoints. Anyone holding a
// certificate's IPFS hash or asset ID can check it without an account.
type VerifyHandler struct {
	Ledger *algorand.Ledger
	Pinner *ipfs.Pinner
	Certs  *repository.CertificateRepo
	Users  *repository.UserRepo
}

func NewVerifyHandler(ledger *algorand.Ledger, pinner *ipfs.Pinner, certs *repository.CertificateRepo, users *repository.UserRepo) *VerifyHandler {
	return &VerifyHandler{Ledger: ledger, Pinner: pinner, Certs: certs, Users: users}
}

// VerifyCertificate handles GET /api/certificates/verify?hash=: look up the
// stored record by its metadata hash and enrich it with the registered
// learner and issuer profiles when they exist.
func (h *VerifyHandler) VerifyCertificate(c echo.Context) error {
	hash := strings.TrimSpace(c.QueryParam("hash"))
	if hash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "IPFS hash is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cert, err := h.Certs.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrCertificateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Certificate not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to verify certificate"})
	}

	resp := echo.Map{
		"valid":       true,
		"certificate": cert,
		"metadataUrl": h.Pinner.GatewayURL(cert.IpfsHash),
	}
	// Profile joins are best-effort; wallets are not required to be
	// registered for the certificate itself to verify.
	if learner, err := h.Users.GetByWallet(ctx, cert.LearnerWallet); err == nil {
		resp["learner"] = echo.Map{
			"firstName": learner.FirstName,
			"lastName":  learner.LastName,
			"email":     learner.Email,
		}
	}
	if issuer, err := h.Users.GetByWallet(ctx, cert.IssuerWallet); err == nil {
		resp["issuer"] = echo.Map{
			"organizationName": issuer.OrganizationName,
			"email":            issuer.Email,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyNFT handles GET /api/verify/nft?assetId=: read the asset straight
// from the ledger and report whether it looks like a certificate NFT, with
// the pinned metadata attached when the asset URL points at our gateway.
func (h *VerifyHandler) VerifyNFT(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("assetId"))
	assetID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || assetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Valid asset ID is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), ledgerTimeout)
	defer cancel()

	asset, err := h.Ledger.AssetInfo(ctx, assetID)
	if err != nil {
		if algorand.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Asset does not exist on the blockchain"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch asset from the blockchain"})
	}
	if asset.Deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Asset does not exist on the blockchain"})
	}

	isNFT := asset.Params.Total == 1 && asset.Params.Decimals == 0

	nftDetails := echo.Map{
		"assetId":        asset.Index,
		"name":           asset.Params.Name,
		"unitName":       asset.Params.UnitName,
		"total":          asset.Params.Total,
		"decimals":       asset.Params.Decimals,
		"url":            asset.Params.Url,
		"creator":        asset.Params.Creator,
		"manager":        asset.Params.Manager,
		"createdAtRound": asset.CreatedAtRound,
		"isNFT":          isNFT,
	}

	// The asset URL carries the metadata location; fetch it when it is an
	// IPFS gateway link so verifiers see the full ARC69 document.
	if hash := ipfsHashFromURL(asset.Params.Url); hash != "" {
		if meta, err := h.Pinner.FetchMetadata(ctx, hash); err == nil {
			nftDetails["metadata"] = meta
			nftDetails["ipfsHash"] = hash
		} else {
			log.Printf("verify: metadata fetch for asset %d failed: %v", assetID, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"valid": isNFT,
		"nft":   nftDetails,
	})
}

// ipfsHashFromURL extracts the content hash from a gateway URL of the form
// https://<gateway>/ipfs/<hash> or an ipfs://<hash> URI.
func ipfsHashFromURL(url string) string {
	if strings.HasPrefix(url, "ipfs://") {
		return strings.TrimPrefix(url, "ipfs://")
	}
	if i := strings.Index(url, "/ipfs/"); i >= 0 {
		hash := url[i+len("/ipfs/"):]
		if j := strings.IndexByte(hash, '?'); j >= 0 {
			hash = hash[:j]
		}
		return strings.TrimSuffix(hash, "/")
	}
	return ""
}
