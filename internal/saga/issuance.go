// Package saga sequences the certificate issuance and transfer workflow:
// submit the wallet-signed mint, persist the record, check transfer
// eligibility and, when a signed transfer arrives, move the asset and the
// record forward together. The workflow is a saga, not a transaction: each
// step commits on its own, and a checkpoint is logged and published after
// every durable side effect so a crashed process can report exactly which
// step last completed.
package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/model"
	"github.com/credzi/credzi/internal/queue"
	"github.com/credzi/credzi/internal/repository"
)

// State identifies how far an issuance attempt has progressed. States up to
// StatePersisted are reached by every successful issuance; the final state
// depends on the learner's opt-in status.
type State string

const (
	StateStarted          State = "started"
	StateMetadataUploaded State = "metadata_uploaded"
	StateAssetCreated     State = "asset_created"
	StatePersisted        State = "persisted"
	StateTransferPending  State = "transfer_pending"
	StateTransferred      State = "transferred"
)

// Submitter submits a signed transaction and blocks until confirmation.
type Submitter interface {
	Submit(ctx context.Context, signedTxnB64 string) (algorand.Confirmation, error)
}

// OptInChecker reports whether a wallet holds a slot for an asset. The
// answer is advisory; errors mean "unknown".
type OptInChecker interface {
	IsOptedIn(ctx context.Context, wallet string, assetID uint64) (bool, error)
}

// CertificateStore is the persistence surface of the workflow.
type CertificateStore interface {
	Create(ctx context.Context, c *model.Certificate) (*model.Certificate, error)
	ExistsActive(ctx context.Context, learnerWallet, courseName, issuerWallet string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	MarkTransferred(ctx context.Context, id, learnerWallet, transferTxID string) (*model.Certificate, error)
	SetTransferredFlag(ctx context.Context, id string, transferred bool) (*model.Certificate, error)
}

// UserStore maintains the back-reference list on user records.
type UserStore interface {
	AttachCertificate(ctx context.Context, walletID string, certID primitive.ObjectID) error
}

// EventPublisher ships checkpoint events to the message broker. Publish
// failures are logged and otherwise ignored: bookkeeping must never discard
// a minted certificate.
type EventPublisher func(ctx context.Context, event queue.CertificateEvent) error

// Orchestrator wires the workflow components together. All fields except
// Publish are required.
type Orchestrator struct {
	Submitter Submitter
	OptIn     OptInChecker
	Certs     CertificateStore
	Users     UserStore
	Publish   EventPublisher
}

func NewOrchestrator(s Submitter, o OptInChecker, c CertificateStore, u UserStore, p EventPublisher) *Orchestrator {
	if s == nil || o == nil || c == nil || u == nil {
		panic("nil dependency passed to NewOrchestrator")
	}
	return &Orchestrator{Submitter: s, OptIn: o, Certs: c, Users: u, Publish: p}
}

// IssueInput is a validated issuance request: metadata already pinned, mint
// transaction already signed by the issuer's wallet.
type IssueInput struct {
	LearnerName      string
	LearnerWallet    string
	CourseName       string
	IssuerWallet     string
	OrganizationName string
	IpfsHash         string
	Metadata         model.ARC69Metadata
	SignedTxn        string
}

// IssueResult reports the outcome of an issuance attempt. OptedIn reflects
// the advisory check at issuance time; when false the certificate stays in
// the pending-transfer queue.
type IssueResult struct {
	Certificate  *model.Certificate
	Confirmation algorand.Confirmation
	OptedIn      bool
	State        State
}

// checkpoint logs a state transition for one issuance attempt.
func (o *Orchestrator) checkpoint(state State, format string, args ...any) {
	log.Printf("saga: [%s] %s", state, fmt.Sprintf(format, args...))
}

// publish ships a checkpoint event; failures are logged inside the
// publisher and deliberately not propagated.
func (o *Orchestrator) publish(ctx context.Context, ev queue.CertificateEvent) {
	if o.Publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	_ = o.Publish(ctx, ev)
}

// Issue runs the mint half of the saga:
//
//	started -> metadata_uploaded -> asset_created -> persisted
//	        -> transferred? (reported, not executed) | transfer_pending
//
// Once the creation transaction confirms and the record persists, both exist
// permanently even if everything after fails; the mint/persist boundary is a
// deliberate checkpoint, not an atomic unit. Sequential duplicates for the
// same (learner, course, issuer) are rejected up front, before the mint
// touches the chain; concurrent ones lose at persistence time against the
// unique index, after having minted an orphan asset.
func (o *Orchestrator) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	if err := algorand.ValidateAddress("learner", in.LearnerWallet); err != nil {
		return nil, err
	}
	if err := algorand.ValidateAddress("issuer", in.IssuerWallet); err != nil {
		return nil, err
	}
	exists, err := o.Certs.ExistsActive(ctx, in.LearnerWallet, in.CourseName, in.IssuerWallet)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return nil, repository.ErrCertificateExists
	}
	o.checkpoint(StateStarted, "issuing %q for learner %s", in.CourseName, in.LearnerWallet)

	// The metadata was pinned before this call; reaching here with a hash
	// means the upload step completed.
	o.checkpoint(StateMetadataUploaded, "metadata pinned at %s", in.IpfsHash)

	// The mint must have been signed by the issuer the request names.
	info, err := algorand.DecodeSignedTxn(in.SignedTxn)
	if err != nil {
		return nil, err
	}
	if err := algorand.VerifySigner(info, in.IssuerWallet); err != nil {
		return nil, err
	}

	conf, err := o.Submitter.Submit(ctx, in.SignedTxn)
	if err != nil {
		return nil, err
	}
	if conf.AssetID == 0 {
		return nil, fmt.Errorf("confirmed transaction %s did not create an asset", conf.TxID)
	}
	o.checkpoint(StateAssetCreated, "asset %d minted in round %d (tx %s)", conf.AssetID, conf.ConfirmedRound, conf.TxID)

	cert, err := o.Certs.Create(ctx, &model.Certificate{
		LearnerName:      in.LearnerName,
		LearnerWallet:    in.LearnerWallet,
		CourseName:       in.CourseName,
		IssuerWallet:     in.IssuerWallet,
		OrganizationName: in.OrganizationName,
		AssetID:          conf.AssetID,
		IpfsHash:         in.IpfsHash,
		Metadata:         in.Metadata,
		TransactionID:    conf.TxID,
		Status:           model.StatusIssued,
	})
	if err != nil {
		// The asset exists on-chain but the record does not. The duplicate
		// case is the accepted race; anything else is surfaced with the
		// asset ID so an operator can reconcile manually.
		return nil, fmt.Errorf("persist certificate for asset %d: %w", conf.AssetID, err)
	}
	o.checkpoint(StatePersisted, "certificate %s persisted", cert.ID.Hex())
	o.publish(ctx, queue.CertificateEvent{
		Stage:            queue.StageIssued,
		CertificateID:    cert.ID.Hex(),
		LearnerName:      cert.LearnerName,
		LearnerWallet:    cert.LearnerWallet,
		CourseName:       cert.CourseName,
		OrganizationName: cert.OrganizationName,
		AssetID:          cert.AssetID,
		TxID:             conf.TxID,
		ConfirmedRound:   conf.ConfirmedRound,
	})

	// Best effort: a failed back-reference update is logged and swallowed
	// rather than failing an issuance that already minted and persisted.
	if err := o.Users.AttachCertificate(ctx, in.LearnerWallet, cert.ID); err != nil {
		log.Printf("saga: attach certificate %s to learner %s failed: %v", cert.ID.Hex(), in.LearnerWallet, err)
	}

	result := &IssueResult{Certificate: cert, Confirmation: conf}

	// Advisory opt-in check. Errors mean "unknown" and route to the pending
	// branch; the ledger will be the judge if a transfer is attempted anyway.
	optedIn, err := o.OptIn.IsOptedIn(ctx, in.LearnerWallet, conf.AssetID)
	if err != nil {
		log.Printf("saga: opt-in check for %s/asset %d failed, treating as pending: %v", in.LearnerWallet, conf.AssetID, err)
		optedIn = false
	}
	result.OptedIn = optedIn
	if optedIn {
		// The transfer itself needs a second wallet signature, so this
		// attempt ends here with the caller told to proceed.
		result.State = StatePersisted
		return result, nil
	}

	result.State = StateTransferPending
	o.checkpoint(StateTransferPending, "certificate %s waiting for learner opt-in (asset %d)", cert.ID.Hex(), cert.AssetID)
	o.publish(ctx, queue.CertificateEvent{
		Stage:            queue.StageTransferPending,
		CertificateID:    cert.ID.Hex(),
		LearnerName:      cert.LearnerName,
		LearnerWallet:    cert.LearnerWallet,
		CourseName:       cert.CourseName,
		OrganizationName: cert.OrganizationName,
		AssetID:          cert.AssetID,
	})
	return result, nil
}

// TransferInput is a signed transfer for an existing certificate.
type TransferInput struct {
	CertificateID string
	LearnerWallet string
	SignedTxn     string
}

// Transfer runs the transfer half of the saga: submit the issuer-signed
// transfer and, once confirmed, mark the record transferred in a single
// update that also records the destination wallet. A failure after submission but before persistence leaves the
// record behind the ledger; the pending-transfers page surfaces it for a
// manual override. There is no application-level guard against invoking
// transfer on an already transferred certificate; the ledger rejects the
// second movement with a balance error.
func (o *Orchestrator) Transfer(ctx context.Context, in TransferInput) (*model.Certificate, algorand.Confirmation, error) {
	if err := algorand.ValidateAddress("learner", in.LearnerWallet); err != nil {
		return nil, algorand.Confirmation{}, err
	}
	cert, err := o.Certs.GetByID(ctx, in.CertificateID)
	if err != nil {
		return nil, algorand.Confirmation{}, err
	}

	info, err := algorand.DecodeSignedTxn(in.SignedTxn)
	if err != nil {
		return nil, algorand.Confirmation{}, err
	}
	if err := algorand.VerifySigner(info, cert.IssuerWallet); err != nil {
		return nil, algorand.Confirmation{}, err
	}

	conf, err := o.Submitter.Submit(ctx, in.SignedTxn)
	if err != nil {
		return nil, algorand.Confirmation{}, err
	}

	updated, err := o.Certs.MarkTransferred(ctx, in.CertificateID, in.LearnerWallet, conf.TxID)
	if err != nil {
		// On-chain transfer succeeded, record did not move. Surface with
		// the txid so the operator can reconcile via the override endpoint.
		return nil, conf, fmt.Errorf("transfer %s confirmed but record update failed: %w", conf.TxID, err)
	}
	o.checkpoint(StateTransferred, "certificate %s transferred to %s (tx %s)", updated.ID.Hex(), updated.LearnerWallet, conf.TxID)
	o.publish(ctx, queue.CertificateEvent{
		Stage:            queue.StageTransferred,
		CertificateID:    updated.ID.Hex(),
		LearnerName:      updated.LearnerName,
		LearnerWallet:    updated.LearnerWallet,
		CourseName:       updated.CourseName,
		OrganizationName: updated.OrganizationName,
		AssetID:          updated.AssetID,
		TxID:             conf.TxID,
		ConfirmedRound:   conf.ConfirmedRound,
	})
	return updated, conf, nil
}

// Override forces the transferred flag without a ledger transaction. It is
// the administrative escape hatch for certificates the normal transfer flow
// cannot complete; the resulting divergence from chain state is deliberate.
func (o *Orchestrator) Override(ctx context.Context, certificateID string, transferred bool) (*model.Certificate, error) {
	cert, err := o.Certs.SetTransferredFlag(ctx, certificateID, transferred)
	if err != nil {
		return nil, err
	}
	log.Printf("saga: certificate %s transferred flag manually set to %t", cert.ID.Hex(), transferred)
	o.publish(ctx, queue.CertificateEvent{
		Stage:            queue.StageManualOverride,
		CertificateID:    cert.ID.Hex(),
		LearnerName:      cert.LearnerName,
		LearnerWallet:    cert.LearnerWallet,
		CourseName:       cert.CourseName,
		OrganizationName: cert.OrganizationName,
		AssetID:          cert.AssetID,
	})
	return cert, nil
}
