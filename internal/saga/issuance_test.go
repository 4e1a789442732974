package saga

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	sdktypes "github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/model"
	"github.com/credzi/credzi/internal/queue"
	"github.com/credzi/credzi/internal/repository"
)

// fakeSubmitter returns a canned confirmation or error and records the blob
// it was handed.
type fakeSubmitter struct {
	conf     algorand.Confirmation
	err      error
	received string
}

func (f *fakeSubmitter) Submit(ctx context.Context, signedTxnB64 string) (algorand.Confirmation, error) {
	f.received = signedTxnB64
	if f.err != nil {
		return algorand.Confirmation{}, f.err
	}
	return f.conf, nil
}

type fakeOptIn struct {
	optedIn bool
	err     error
}

func (f *fakeOptIn) IsOptedIn(ctx context.Context, wallet string, assetID uint64) (bool, error) {
	return f.optedIn, f.err
}

// fakeCertStore is an in-memory certificate store keyed by hex ID.
type fakeCertStore struct {
	certs     map[string]*model.Certificate
	createErr error
	existsErr error
	markErr   error
}

func newFakeCertStore() *fakeCertStore {
	return &fakeCertStore{certs: make(map[string]*model.Certificate)}
}

func (f *fakeCertStore) Create(ctx context.Context, c *model.Certificate) (*model.Certificate, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = primitive.NewObjectID()
	c.Status = model.StatusIssued
	copied := *c
	f.certs[c.ID.Hex()] = &copied
	return c, nil
}

func (f *fakeCertStore) ExistsActive(ctx context.Context, learnerWallet, courseName, issuerWallet string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, c := range f.certs {
		if c.LearnerWallet == learnerWallet && c.CourseName == courseName && c.IssuerWallet == issuerWallet &&
			(c.Status == model.StatusIssued || c.Status == model.StatusTransferred) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCertStore) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	c, ok := f.certs[id]
	if !ok {
		return nil, repository.ErrCertificateNotFound
	}
	return c, nil
}

func (f *fakeCertStore) MarkTransferred(ctx context.Context, id, learnerWallet, transferTxID string) (*model.Certificate, error) {
	if f.markErr != nil {
		return nil, f.markErr
	}
	c, ok := f.certs[id]
	if !ok {
		return nil, repository.ErrCertificateNotFound
	}
	c.LearnerWallet = learnerWallet
	c.TransferTxID = transferTxID
	c.TransferredToLearner = true
	c.Status = model.StatusTransferred
	return c, nil
}

func (f *fakeCertStore) SetTransferredFlag(ctx context.Context, id string, transferred bool) (*model.Certificate, error) {
	c, ok := f.certs[id]
	if !ok {
		return nil, repository.ErrCertificateNotFound
	}
	c.TransferredToLearner = transferred
	return c, nil
}

type fakeUserStore struct {
	attached  []string
	attachErr error
}

func (f *fakeUserStore) AttachCertificate(ctx context.Context, walletID string, certID primitive.ObjectID) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, walletID)
	return nil
}

// eventRecorder captures published checkpoint events in order.
type eventRecorder struct {
	events []queue.CertificateEvent
}

func (r *eventRecorder) publish(ctx context.Context, ev queue.CertificateEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) stages() []queue.Stage {
	out := make([]queue.Stage, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Stage)
	}
	return out
}

// signMintAs builds and signs an asset-creation transaction for acct.
func signMintAs(t *testing.T, acct crypto.Account) string {
	t.Helper()
	params := sdktypes.SuggestedParams{
		Fee:             1000,
		FlatFee:         true,
		FirstRoundValid: 1,
		LastRoundValid:  1000,
		GenesisID:       "testnet-v1.0",
		GenesisHash:     make([]byte, 32),
	}
	unsigned, err := algorand.BuildAssetCreate(params, acct.Address.String(), "Test Certificate", "ipfs://QmTest")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(unsigned.Blob)
	require.NoError(t, err)
	var txn sdktypes.Transaction
	require.NoError(t, msgpack.Decode(raw, &txn))

	_, stx, err := crypto.SignTransaction(acct.PrivateKey, txn)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(stx)
}

type sagaFixture struct {
	orch    *Orchestrator
	sub     *fakeSubmitter
	optIn   *fakeOptIn
	certs   *fakeCertStore
	users   *fakeUserStore
	events  *eventRecorder
	issuer  crypto.Account
	learner crypto.Account
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()
	f := &sagaFixture{
		sub:     &fakeSubmitter{conf: algorand.Confirmation{TxID: "TX123", ConfirmedRound: 777, AssetID: 4242}},
		optIn:   &fakeOptIn{optedIn: true},
		certs:   newFakeCertStore(),
		users:   &fakeUserStore{},
		events:  &eventRecorder{},
		issuer:  crypto.GenerateAccount(),
		learner: crypto.GenerateAccount(),
	}
	f.orch = NewOrchestrator(f.sub, f.optIn, f.certs, f.users, f.events.publish)
	return f
}

func (f *sagaFixture) issueInput(t *testing.T) IssueInput {
	return IssueInput{
		LearnerName:      "Ada Lovelace",
		LearnerWallet:    f.learner.Address.String(),
		CourseName:       "Distributed Systems",
		IssuerWallet:     f.issuer.Address.String(),
		OrganizationName: "Example Academy",
		IpfsHash:         "QmMetaHash",
		SignedTxn:        signMintAs(t, f.issuer),
	}
}

func TestIssueCompletesWhenLearnerOptedIn(t *testing.T) {
	f := newSagaFixture(t)

	result, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, result.State)
	assert.True(t, result.OptedIn)
	assert.Equal(t, uint64(4242), result.Certificate.AssetID)
	assert.Equal(t, "TX123", result.Certificate.TransactionID)
	assert.Equal(t, model.StatusIssued, result.Certificate.Status)
	assert.Equal(t, "QmMetaHash", result.Certificate.IpfsHash)

	assert.Equal(t, []queue.Stage{queue.StageIssued}, f.events.stages())
	assert.Equal(t, []string{f.learner.Address.String()}, f.users.attached)
}

func TestIssueRoutesToPendingWhenNotOptedIn(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false

	result, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	assert.Equal(t, StateTransferPending, result.State)
	assert.False(t, result.OptedIn)
	assert.Equal(t, []queue.Stage{queue.StageIssued, queue.StageTransferPending}, f.events.stages())
}

func TestIssueTreatsOptInErrorAsPending(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.err = errors.New("account information unavailable")

	result, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	// The check is advisory: an unreachable node must not fail an issuance
	// that already minted and persisted.
	assert.Equal(t, StateTransferPending, result.State)
	assert.False(t, result.OptedIn)
}

func TestIssueRejectsInvalidAddresses(t *testing.T) {
	f := newSagaFixture(t)
	in := f.issueInput(t)
	in.LearnerWallet = "nonsense"

	_, err := f.orch.Issue(context.Background(), in)
	var addrErr *algorand.InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "learner", addrErr.Field)
}

func TestIssueRejectsWrongSigner(t *testing.T) {
	f := newSagaFixture(t)
	in := f.issueInput(t)
	// Signed by the learner instead of the issuer the request names.
	in.SignedTxn = signMintAs(t, f.learner)
	in.IssuerWallet = f.issuer.Address.String()

	_, err := f.orch.Issue(context.Background(), in)
	assert.ErrorIs(t, err, algorand.ErrSignerMismatch)
	assert.Empty(t, f.sub.received, "nothing should reach the network")
}

func TestIssuePropagatesSubmitError(t *testing.T) {
	f := newSagaFixture(t)
	f.sub.err = &algorand.SubmitError{Code: algorand.CodeInsufficientFunds, Cause: errors.New("overspend")}

	_, err := f.orch.Issue(context.Background(), f.issueInput(t))
	var subErr *algorand.SubmitError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, algorand.CodeInsufficientFunds, subErr.Code)
	assert.Empty(t, f.events.stages())
}

func TestIssueRejectsNonCreationTransaction(t *testing.T) {
	f := newSagaFixture(t)
	f.sub.conf.AssetID = 0

	_, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not create an asset")
}

func TestIssueRejectsDuplicateBeforeSubmit(t *testing.T) {
	f := newSagaFixture(t)
	_, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	f.sub.received = ""
	_, err = f.orch.Issue(context.Background(), f.issueInput(t))
	assert.ErrorIs(t, err, repository.ErrCertificateExists)
	assert.Empty(t, f.sub.received, "a repeat issuance must not mint a second asset")
}

func TestIssueFailsWhenDuplicateCheckErrors(t *testing.T) {
	f := newSagaFixture(t)
	f.certs.existsErr = errors.New("find failed")

	_, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.Error(t, err)
	assert.Empty(t, f.sub.received)
}

func TestIssueSurfacesDuplicate(t *testing.T) {
	// Concurrent duplicates slip past the pre-check and lose at insert time.
	f := newSagaFixture(t)
	f.certs.createErr = repository.ErrCertificateExists

	_, err := f.orch.Issue(context.Background(), f.issueInput(t))
	assert.ErrorIs(t, err, repository.ErrCertificateExists)
}

func TestIssueSwallowsAttachFailure(t *testing.T) {
	f := newSagaFixture(t)
	f.users.attachErr = errors.New("user record gone")

	result, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, result.State)
}

func TestTransferMarksRecord(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false
	issued, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	f.sub.conf = algorand.Confirmation{TxID: "XFER456", ConfirmedRound: 800}
	cert, conf, err := f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: issued.Certificate.ID.Hex(),
		LearnerWallet: f.learner.Address.String(),
		SignedTxn:     signMintAs(t, f.issuer),
	})
	require.NoError(t, err)

	assert.Equal(t, "XFER456", conf.TxID)
	assert.True(t, cert.TransferredToLearner)
	assert.Equal(t, "XFER456", cert.TransferTxID)
	assert.Equal(t, model.StatusTransferred, cert.Status)
	assert.Equal(t, []queue.Stage{queue.StageIssued, queue.StageTransferPending, queue.StageTransferred}, f.events.stages())
}

func TestTransferRejectsInvalidLearnerWallet(t *testing.T) {
	f := newSagaFixture(t)

	_, _, err := f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: primitive.NewObjectID().Hex(),
		LearnerWallet: "nonsense",
		SignedTxn:     signMintAs(t, f.issuer),
	})
	var addrErr *algorand.InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "learner", addrErr.Field)
	assert.Empty(t, f.sub.received)
}

func TestTransferRecordsDestinationWallet(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false
	issued, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	dest := crypto.GenerateAccount()
	cert, _, err := f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: issued.Certificate.ID.Hex(),
		LearnerWallet: dest.Address.String(),
		SignedTxn:     signMintAs(t, f.issuer),
	})
	require.NoError(t, err)
	assert.Equal(t, dest.Address.String(), cert.LearnerWallet)
}

func TestTransferUnknownCertificate(t *testing.T) {
	f := newSagaFixture(t)

	_, _, err := f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: primitive.NewObjectID().Hex(),
		LearnerWallet: f.learner.Address.String(),
		SignedTxn:     signMintAs(t, f.issuer),
	})
	assert.ErrorIs(t, err, repository.ErrCertificateNotFound)
}

func TestTransferRejectsWrongSigner(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false
	issued, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	_, _, err = f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: issued.Certificate.ID.Hex(),
		LearnerWallet: f.learner.Address.String(),
		SignedTxn:     signMintAs(t, f.learner),
	})
	assert.ErrorIs(t, err, algorand.ErrSignerMismatch)
}

func TestTransferReportsRecordUpdateFailure(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false
	issued, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	f.sub.conf = algorand.Confirmation{TxID: "XFER456", ConfirmedRound: 800}
	f.certs.markErr = errors.New("write conflict")

	_, conf, err := f.orch.Transfer(context.Background(), TransferInput{
		CertificateID: issued.Certificate.ID.Hex(),
		LearnerWallet: f.learner.Address.String(),
		SignedTxn:     signMintAs(t, f.issuer),
	})
	require.Error(t, err)
	// The confirmed txid comes back so the operator can reconcile.
	assert.Equal(t, "XFER456", conf.TxID)
	assert.Contains(t, err.Error(), "XFER456")
}

func TestOverrideSetsFlag(t *testing.T) {
	f := newSagaFixture(t)
	f.optIn.optedIn = false
	issued, err := f.orch.Issue(context.Background(), f.issueInput(t))
	require.NoError(t, err)

	cert, err := f.orch.Override(context.Background(), issued.Certificate.ID.Hex(), true)
	require.NoError(t, err)
	assert.True(t, cert.TransferredToLearner)
	assert.Equal(t, queue.StageManualOverride, f.events.events[len(f.events.events)-1].Stage)

	cert, err = f.orch.Override(context.Background(), issued.Certificate.ID.Hex(), false)
	require.NoError(t, err)
	assert.False(t, cert.TransferredToLearner)
}
