// Package queue defines message payloads exchanged over the message broker.
package queue

// Stage identifies which durable checkpoint of the issuance workflow an
// event reports. A consumer replaying the queue can reconstruct exactly
// which step of each issuance last completed.
type Stage string

const (
	StageIssued          Stage = "issued"
	StageTransferred     Stage = "transferred"
	StageTransferPending Stage = "transfer_pending"
	StageManualOverride  Stage = "manual_override"
)

// CertificateEvent is published to the certificate.events queue after each
// durable checkpoint: mint confirmed and persisted, transfer confirmed, or a
// manual status override. It carries enough information for downstream
// consumers to log or audit without querying the primary database.
type CertificateEvent struct {
	Stage            Stage  `json:"stage"`
	CertificateID    string `json:"certificate_id"`
	LearnerName      string `json:"learner_name"`
	LearnerWallet    string `json:"learner_wallet"`
	CourseName       string `json:"course_name"`
	OrganizationName string `json:"organization_name"`
	AssetID          uint64 `json:"asset_id"`
	TxID             string `json:"tx_id,omitempty"`
	ConfirmedRound   uint64 `json:"confirmed_round,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}
