package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/config"
	"github.com/credzi/credzi/internal/ipfs"
	"github.com/credzi/credzi/internal/model"
	"github.com/credzi/credzi/internal/repository"
	"github.com/credzi/credzi/internal/saga"
)

// ledgerTimeout bounds the issuance request as a whole: submission plus up
// to four rounds of confirmation polling.
const ledgerTimeout = 30 * time.Second

// certificateReader is the read-only slice of the certificate repository the
// listing endpoints consume.
type certificateReader interface {
	ListTransferred(ctx context.Context, learnerWallet string) ([]model.Certificate, error)
	CountTransferred(ctx context.Context, learnerWallet string) (int64, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Certificate, error)
}

// userReader resolves registered users by wallet for profile joins.
type userReader interface {
	GetByWallet(ctx context.Context, walletID string) (*model.User, error)
}

// CertificateHandler drives the issuance saga and the learner-facing
// certificate listings.
type CertificateHandler struct {
	Cfg   config.Config
	Saga  *saga.Orchestrator
	Certs certificateReader
	Users userReader
}

func NewCertificateHandler(cfg config.Config, s *saga.Orchestrator, certs certificateReader, users userReader) *CertificateHandler {
	return &CertificateHandler{Cfg: cfg, Saga: s, Certs: certs, Users: users}
}

type issueCertificateReq struct {
	LearnerName      string   `json:"learnerName"`
	LearnerWallet    string   `json:"learnerWallet"`
	CourseName       string   `json:"courseName"`
	OrganizationName string   `json:"organizationName,omitempty"`
	Description      string   `json:"description,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	Grade            string   `json:"grade,omitempty"`
	Score            *float64 `json:"score,omitempty"`
	ValidUntil       string   `json:"validUntil,omitempty"`
	SignedTxn        string   `json:"signedTxn"`
	IssuerWallet     string   `json:"issuerWallet"`
	IpfsHash         string   `json:"ipfsHash"`
}

// IssueCertificate handles POST /api/issueCertificate: submit the signed
// mint, persist the record, and report whether the transfer can proceed or
// must wait for the learner's opt-in.
func (h *CertificateHandler) IssueCertificate(c echo.Context) error {
	var req issueCertificateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.LearnerName == "" || req.LearnerWallet == "" || req.CourseName == "" ||
		req.SignedTxn == "" || req.IssuerWallet == "" || req.IpfsHash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Learner name, learner wallet, course name, signed transaction, issuer wallet, and IPFS hash are required",
		})
	}

	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		// Fall back to the registered organization profile of the issuer.
		lookupCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		issuer, err := h.Users.GetByWallet(lookupCtx, req.IssuerWallet)
		cancel()
		if err == nil && issuer.OrganizationName != "" {
			orgName = issuer.OrganizationName
		} else {
			orgName = "Default Organization"
		}
	}

	var validUntil *time.Time
	if req.ValidUntil != "" {
		if t, err := time.Parse(time.RFC3339, req.ValidUntil); err == nil {
			validUntil = &t
		} else if t, err := time.Parse("2006-01-02", req.ValidUntil); err == nil {
			validUntil = &t
		}
	}
	// The embedded copy of the metadata mirrors what was pinned; the pinned
	// document remains the canonical one under the content hash.
	meta := ipfs.BuildMetadata(ipfs.MetadataInput{
		LearnerName:      req.LearnerName,
		CourseName:       req.CourseName,
		OrganizationName: orgName,
		Description:      req.Description,
		Skills:           req.Skills,
		Grade:            req.Grade,
		Score:            req.Score,
		ValidUntil:       validUntil,
	}, h.Cfg.BaseURL, time.Now())

	ctx, cancel := context.WithTimeout(c.Request().Context(), ledgerTimeout)
	defer cancel()

	result, err := h.Saga.Issue(ctx, saga.IssueInput{
		LearnerName:      strings.TrimSpace(req.LearnerName),
		LearnerWallet:    strings.TrimSpace(req.LearnerWallet),
		CourseName:       strings.TrimSpace(req.CourseName),
		IssuerWallet:     strings.TrimSpace(req.IssuerWallet),
		OrganizationName: orgName,
		IpfsHash:         strings.TrimSpace(req.IpfsHash),
		Metadata:         meta,
		SignedTxn:        req.SignedTxn,
	})
	if err != nil {
		var addrErr *algorand.InvalidAddressError
		switch {
		case errors.As(err, &addrErr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("Invalid %s wallet address", addrErr.Field)})
		case errors.Is(err, algorand.ErrSignerMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Signed transaction was not signed by the issuer wallet"})
		case errors.Is(err, repository.ErrCertificateExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Certificate already exists for this learner and course"})
		}
		return submitErrorJSON(c, nil, "Failed to mint NFT on Algorand", err)
	}

	cert := result.Certificate
	resp := echo.Map{
		"message": "Certificate issued successfully",
		"certificate": echo.Map{
			"id":               cert.ID.Hex(),
			"learnerName":      cert.LearnerName,
			"learnerWallet":    cert.LearnerWallet,
			"courseName":       cert.CourseName,
			"organizationName": cert.OrganizationName,
			"assetId":          cert.AssetID,
			"ipfsHash":         cert.IpfsHash,
			"transactionId":    cert.TransactionID,
			"issuedAt":         cert.IssuedAt,
			"verificationUrl":  fmt.Sprintf("%s/verify/%d", h.Cfg.BaseURL, cert.AssetID),
		},
		"optedIn": result.OptedIn,
	}
	if !result.OptedIn {
		resp["message"] = fmt.Sprintf(
			"Certificate issued; transfer pending. Share asset ID %d with the learner so they can opt in.", cert.AssetID)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListLearnerCertificates handles GET /api/certificates/learner?walletId=:
// all certificates that completed transfer to the given wallet, most recent
// first.
func (h *CertificateHandler) ListLearnerCertificates(c echo.Context) error {
	walletID := strings.TrimSpace(c.QueryParam("walletId"))
	if walletID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Wallet ID is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	certs, err := h.Certs.ListTransferred(ctx, walletID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch certificates"})
	}
	return c.JSON(http.StatusOK, echo.Map{"certificates": certs})
}

// ListUserCertificates handles GET /api/users/certificates?walletId=: walk
// the registered user's certificate back-reference list and return each
// certificate with the issuer's registered profile attached when one
// exists. Unlike the learner listing this covers certificates in every
// state, including those still waiting on transfer.
func (h *CertificateHandler) ListUserCertificates(c echo.Context) error {
	walletID := strings.TrimSpace(c.QueryParam("walletId"))
	if walletID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "walletId parameter is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch user certificates"})
	}

	certs, err := h.Certs.ListByIDs(ctx, user.Certificates)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch user certificates"})
	}

	formatted := make([]echo.Map, 0, len(certs))
	for i := range certs {
		cert := &certs[i]
		entry := formatCertificate(cert)
		// Issuer join is best-effort; the certificate's own fields stand in
		// when the issuing wallet never registered.
		issuer := echo.Map{
			"name":             cert.OrganizationName,
			"organizationName": cert.OrganizationName,
			"walletId":         cert.IssuerWallet,
		}
		if iss, err := h.Users.GetByWallet(ctx, cert.IssuerWallet); err == nil {
			name := iss.OrganizationName
			if name == "" {
				name = strings.TrimSpace(iss.FirstName + " " + iss.LastName)
			}
			issuer = echo.Map{
				"name":             name,
				"organizationName": iss.OrganizationName,
				"email":            iss.Email,
				"walletId":         iss.WalletID,
			}
		}
		entry["issuer"] = issuer
		formatted = append(formatted, entry)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user": echo.Map{
			"name":             strings.TrimSpace(user.FirstName + " " + user.LastName),
			"email":            user.Email,
			"walletId":         user.WalletID,
			"certificates":     formatted,
			"certificateCount": len(formatted),
		},
	})
}

// CountLearnerCertificates handles GET /api/certificates/count?walletId=.
func (h *CertificateHandler) CountLearnerCertificates(c echo.Context) error {
	walletID := strings.TrimSpace(c.QueryParam("walletId"))
	if walletID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Wallet ID is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.Certs.CountTransferred(ctx, walletID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch certificates count"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}
