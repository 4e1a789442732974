// Package ipfs implements the metadata publisher: it builds ARC-69
// certificate metadata documents and pins them to IPFS through the Pinata
// pinning API. Only the returned content hash is stored on-chain; the
// document itself is retrievable through any IPFS gateway.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/credzi/credzi/internal/model"
)

const (
	defaultPinEndpoint = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
	defaultGatewayURL  = "https://gateway.pinata.cloud/ipfs"
)

// ErrNotConfigured is returned when the pinning credentials are absent.
// There is no fallback store; callers surface this as a configuration error.
var ErrNotConfigured = errors.New("pinata api credentials not configured")

// UploadError reports a rejection from the pinning service. The HTTP status
// and response body are preserved verbatim for diagnostics.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload to IPFS: %d %s", e.Status, e.Body)
}

// Pinner uploads metadata documents to Pinata and fetches them back through
// the gateway. The zero value is unusable; use NewPinner.
type Pinner struct {
	apiKey      string
	secretKey   string
	pinEndpoint string
	gatewayURL  string
	client      *http.Client
}

// NewPinner builds a Pinner with the given Pinata credentials. Endpoint and
// gateway overrides are primarily for tests; empty strings select the public
// Pinata endpoints.
func NewPinner(apiKey, secretKey, pinEndpoint, gatewayURL string) *Pinner {
	if pinEndpoint == "" {
		pinEndpoint = defaultPinEndpoint
	}
	if gatewayURL == "" {
		gatewayURL = defaultGatewayURL
	}
	return &Pinner{
		apiKey:      apiKey,
		secretKey:   secretKey,
		pinEndpoint: pinEndpoint,
		gatewayURL:  gatewayURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// GatewayURL returns the public gateway URL for a pinned content hash. The
// asset-creation transaction stores this URL as the asset URL.
func (p *Pinner) GatewayURL(ipfsHash string) string {
	return fmt.Sprintf("%s/%s", p.gatewayURL, ipfsHash)
}

type pinRequest struct {
	PinataContent  model.ARC69Metadata `json:"pinataContent"`
	PinataMetadata struct {
		Name string `json:"name"`
	} `json:"pinataMetadata"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON uploads the metadata document and returns its content hash. Pinata
// rejections propagate as *UploadError with status and body intact; no retry
// is attempted here.
func (p *Pinner) PinJSON(ctx context.Context, meta model.ARC69Metadata) (string, error) {
	if p.apiKey == "" || p.secretKey == "" {
		return "", ErrNotConfigured
	}

	payload := pinRequest{PinataContent: meta}
	payload.PinataMetadata.Name = fmt.Sprintf("Certificate-%s-%s",
		meta.Properties.LearnerName, meta.Properties.CourseName)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.pinEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("pinata_api_key", p.apiKey)
	req.Header.Set("pinata_secret_api_key", p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &UploadError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out pinResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unexpected pinata response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", errors.New("pinata response missing IpfsHash")
	}
	return out.IpfsHash, nil
}

// FetchMetadata retrieves a pinned metadata document by content hash through
// the gateway. Used by the on-chain verification endpoint to show the
// document next to the asset.
func (p *Pinner) FetchMetadata(ctx context.Context, ipfsHash string) (*model.ARC69Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.GatewayURL(ipfsHash), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch metadata from IPFS: status %d", resp.StatusCode)
	}
	var meta model.ARC69Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// MetadataInput carries the descriptive fields a certificate metadata
// document is built from. Optional fields are omitted from the document when
// empty.
type MetadataInput struct {
	LearnerName      string
	CourseName       string
	OrganizationName string
	Description      string
	Skills           []string
	Grade            string
	Score            *float64
	ValidUntil       *time.Time
}

// BuildMetadata assembles the ARC-69 document for a certificate. Issue and
// valid-from timestamps are stamped at call time; verificationURL points at
// the public verify page so third parties can check the certificate without
// this service.
func BuildMetadata(in MetadataInput, baseURL string, now time.Time) model.ARC69Metadata {
	desc := in.Description
	if desc == "" {
		desc = fmt.Sprintf("Certificate of completion for %s", in.CourseName)
	}
	skills := in.Skills
	if skills == nil {
		skills = []string{}
	}
	props := model.ARC69Properties{
		CertificateType:  "course_completion",
		IssueDate:        now.UTC().Format(time.RFC3339),
		ValidFrom:        now.UTC().Format(time.RFC3339),
		Skills:           skills,
		Grade:            in.Grade,
		Score:            in.Score,
		VerificationURL:  baseURL + "/verify",
		LearnerName:      in.LearnerName,
		CourseName:       in.CourseName,
		OrganizationName: in.OrganizationName,
	}
	if in.ValidUntil != nil {
		props.ValidUntil = in.ValidUntil.UTC().Format(time.RFC3339)
	}
	return model.ARC69Metadata{
		Standard:    "arc69",
		Description: desc,
		ExternalURL: baseURL + "/verify",
		Properties:  props,
	}
}
