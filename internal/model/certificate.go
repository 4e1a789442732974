package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Certificate lifecycle states. A certificate is created as StatusIssued once
// the asset-creation transaction confirms; it moves to StatusTransferred when
// ownership reaches the learner's wallet. Revoked and suspended exist in the
// schema but no workflow currently mutates into them.
const (
	StatusIssued      = "issued"
	StatusTransferred = "transferred"
	StatusRevoked     = "revoked"
	StatusSuspended   = "suspended"
)

// ARC69Properties is the structured properties block of the certificate
// metadata pinned to IPFS. Timestamps are RFC 3339 strings so the pinned
// document round-trips byte-for-byte through the verification endpoints.
type ARC69Properties struct {
	CertificateType  string   `bson:"certificate_type" json:"certificate_type"`
	IssueDate        string   `bson:"issue_date" json:"issue_date"`
	ValidFrom        string   `bson:"valid_from" json:"valid_from"`
	ValidUntil       string   `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
	Skills           []string `bson:"skills" json:"skills"`
	Grade            string   `bson:"grade,omitempty" json:"grade,omitempty"`
	Score            *float64 `bson:"score,omitempty" json:"score,omitempty"`
	VerificationURL  string   `bson:"verification_url,omitempty" json:"verification_url,omitempty"`
	LearnerName      string   `bson:"learner_name" json:"learner_name"`
	CourseName       string   `bson:"course_name" json:"course_name"`
	OrganizationName string   `bson:"organization_name" json:"organization_name"`
}

// ARC69Metadata is the certificate metadata document in the ARC-69 shape.
// The same structure is pinned to IPFS and embedded on the certificate
// record for offline verification.
type ARC69Metadata struct {
	Standard       string          `bson:"standard" json:"standard"`
	Description    string          `bson:"description" json:"description"`
	ExternalURL    string          `bson:"external_url,omitempty" json:"external_url,omitempty"`
	Image          string          `bson:"image,omitempty" json:"image,omitempty"`
	ImageIntegrity string          `bson:"image_integrity,omitempty" json:"image_integrity,omitempty"`
	ImageMimetype  string          `bson:"image_mimetype,omitempty" json:"image_mimetype,omitempty"`
	Properties     ARC69Properties `bson:"properties" json:"properties"`
}

// Certificate represents a record in the `certificates` collection. AssetID
// is the Algorand ASA minted for this certificate and is unique once
// assigned. IpfsHash is the content hash of the pinned metadata document and
// never changes after creation. TransactionID holds the issuance (mint)
// transaction; TransferTxID is set only after the asset reaches the learner.
type Certificate struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LearnerName      string             `bson:"learnerName" json:"learnerName"`
	LearnerWallet    string             `bson:"learnerWallet" json:"learnerWallet"`
	CourseName       string             `bson:"courseName" json:"courseName"`
	IssuerWallet     string             `bson:"issuerWallet" json:"issuerWallet"`
	OrganizationName string             `bson:"organizationName" json:"organizationName"`

	AssetID  uint64        `bson:"assetId" json:"assetId"`
	IpfsHash string        `bson:"ipfsHash" json:"ipfsHash"`
	Metadata ARC69Metadata `bson:"metadata" json:"metadata"`

	TransactionID        string     `bson:"transactionId" json:"transactionId"`
	TransferTxID         string     `bson:"transferTxId,omitempty" json:"transferTxId,omitempty"`
	TransferredToLearner bool       `bson:"transferredToLearner" json:"transferredToLearner"`
	TransferredAt        *time.Time `bson:"transferredAt,omitempty" json:"transferredAt,omitempty"`

	Status    string    `bson:"status" json:"status"`
	IssuedAt  time.Time `bson:"issuedAt" json:"issuedAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
