package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/credzi/credzi/internal/config"
	"github.com/credzi/credzi/internal/ipfs"
)

// MetadataHandler exposes the metadata publisher: it builds the ARC-69
// certificate document and pins it to IPFS, returning the content hash the
// rest of the issuance flow references.
type MetadataHandler struct {
	Cfg    config.Config
	Pinner *ipfs.Pinner
}

func NewMetadataHandler(cfg config.Config, pinner *ipfs.Pinner) *MetadataHandler {
	return &MetadataHandler{Cfg: cfg, Pinner: pinner}
}

type uploadMetadataReq struct {
	LearnerName      string   `json:"learnerName"`
	CourseName       string   `json:"courseName"`
	OrganizationName string   `json:"organizationName"`
	Description      string   `json:"description,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	Grade            string   `json:"grade,omitempty"`
	Score            *float64 `json:"score,omitempty"`
	ValidUntil       string   `json:"validUntil,omitempty"`
}

// UploadMetadata handles POST /api/uploadMetadata. A failure here aborts the
// whole issuance before anything durable exists, so it is always cheap to
// retry from scratch.
func (h *MetadataHandler) UploadMetadata(c echo.Context) error {
	var req uploadMetadataReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.LearnerName) == "" || strings.TrimSpace(req.CourseName) == "" || strings.TrimSpace(req.OrganizationName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Learner name, course name, and organization name are required"})
	}

	var validUntil *time.Time
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			// Dates from the issuing form arrive without a time component.
			t, err = time.Parse("2006-01-02", req.ValidUntil)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid validUntil date"})
			}
		}
		validUntil = &t
	}

	meta := ipfs.BuildMetadata(ipfs.MetadataInput{
		LearnerName:      strings.TrimSpace(req.LearnerName),
		CourseName:       strings.TrimSpace(req.CourseName),
		OrganizationName: strings.TrimSpace(req.OrganizationName),
		Description:      req.Description,
		Skills:           req.Skills,
		Grade:            req.Grade,
		Score:            req.Score,
		ValidUntil:       validUntil,
	}, h.Cfg.BaseURL, time.Now())

	hash, err := h.Pinner.PinJSON(c.Request().Context(), meta)
	if err != nil {
		var uploadErr *ipfs.UploadError
		if errors.As(err, &uploadErr) {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   "Failed to upload metadata to IPFS",
				"details": uploadErr.Error(),
			})
		}
		if errors.Is(err, ipfs.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   "Failed to upload metadata to IPFS",
				"details": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error", "details": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Metadata uploaded successfully",
		"ipfsHash": hash,
		"metadata": meta,
	})
}
