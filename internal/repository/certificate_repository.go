package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/credzi/credzi/internal/model"
)

// CertificateRepo provides access to the `certificates` collection. All
// writes are single-document operations; there is no multi-document
// transaction anywhere in the workflow, so the ledger and the database can
// diverge when a saga fails between steps.
type CertificateRepo struct{ col *mongo.Collection }

func NewCertificateRepo(db *mongo.Database) *CertificateRepo {
	return &CertificateRepo{col: db.Collection("certificates")}
}

// activeStatuses are the statuses that count toward the one-active-
// certificate-per-triple invariant.
var activeStatuses = bson.A{model.StatusIssued, model.StatusTransferred}

// ExistsActive reports whether an active certificate already exists for the
// (learner wallet, course name, issuer wallet) triple. The saga calls this
// before the mint is submitted so sequential duplicates never reach the
// chain.
func (r *CertificateRepo) ExistsActive(ctx context.Context, learnerWallet, courseName, issuerWallet string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{
		"learnerWallet": strings.TrimSpace(learnerWallet),
		"courseName":    strings.TrimSpace(courseName),
		"issuerWallet":  strings.TrimSpace(issuerWallet),
		"status":        bson.M{"$in": activeStatuses},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// Create persists a new certificate record. An existing active certificate
// for the same (learner wallet, course name, issuer wallet) triple is
// rejected with ErrCertificateExists, first by a lookup and then, for racing
// writers, by the partial unique index.
func (r *CertificateRepo) Create(ctx context.Context, c *model.Certificate) (*model.Certificate, error) {
	c.LearnerWallet = strings.TrimSpace(c.LearnerWallet)
	c.IssuerWallet = strings.TrimSpace(c.IssuerWallet)
	c.CourseName = strings.TrimSpace(c.CourseName)

	exists, err := r.ExistsActive(ctx, c.LearnerWallet, c.CourseName, c.IssuerWallet)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCertificateExists
	}

	now := time.Now().UTC()
	if c.IssuedAt.IsZero() {
		c.IssuedAt = now
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.StatusIssued
	}

	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrCertificateExists
		}
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return c, nil
}

// GetByID fetches a certificate by its hex ObjectID.
func (r *CertificateRepo) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrCertificateNotFound
	}
	var c model.Certificate
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByHash fetches a certificate by the content hash of its pinned
// metadata. Used by the public verification endpoint.
func (r *CertificateRepo) GetByHash(ctx context.Context, ipfsHash string) (*model.Certificate, error) {
	var c model.Certificate
	err := r.col.FindOne(ctx, bson.M{"ipfsHash": strings.TrimSpace(ipfsHash)}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListTransferred returns certificates owned by the given learner wallet that
// have completed transfer, most recently transferred first.
func (r *CertificateRepo) ListTransferred(ctx context.Context, learnerWallet string) ([]model.Certificate, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"learnerWallet": strings.TrimSpace(learnerWallet), "transferredToLearner": true},
		options.Find().SetSort(bson.D{{Key: "transferredAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	certs := []model.Certificate{}
	if err := cur.All(ctx, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// CountTransferred counts transferred certificates held by a learner wallet.
func (r *CertificateRepo) CountTransferred(ctx context.Context, learnerWallet string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"learnerWallet":        strings.TrimSpace(learnerWallet),
		"transferredToLearner": true,
	})
}

// ListByIDs fetches the certificates referenced from a user's back-reference
// list, most recently issued first. IDs that no longer resolve to a document
// are skipped rather than reported.
func (r *CertificateRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Certificate, error) {
	certs := []model.Certificate{}
	if len(ids) == 0 {
		return certs, nil
	}
	cur, err := r.col.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "issuedAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// ListPending returns certificates that have not yet been transferred to
// their learner, most recently issued first, optionally filtered by the
// issuing organization. The second return value is the total count matching
// the filter so handlers can report pagination state.
func (r *CertificateRepo) ListPending(ctx context.Context, organization string, limit, offset int64) ([]model.Certificate, int64, error) {
	query := bson.M{"transferredToLearner": bson.M{"$ne": true}}
	if organization != "" {
		query["organizationName"] = organization
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.col.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "issuedAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset),
	)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	certs := []model.Certificate{}
	if err := cur.All(ctx, &certs); err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

// MarkTransferred records a completed on-chain transfer: destination wallet,
// transfer txid, timestamp, flag and status move together in a single $set
// so the record can never hold a partial transfer state.
func (r *CertificateRepo) MarkTransferred(ctx context.Context, id, learnerWallet, transferTxID string) (*model.Certificate, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrCertificateNotFound
	}
	now := time.Now().UTC()
	var c model.Certificate
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"learnerWallet":        strings.TrimSpace(learnerWallet),
			"transferTxId":         transferTxID,
			"transferredToLearner": true,
			"transferredAt":        now,
			"status":               model.StatusTransferred,
			"updatedAt":            now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetTransferredFlag is the manual administrative override: it forces the
// transferred flag without a corresponding ledger transaction, so the
// persisted state may diverge from chain truth. That divergence is an
// accepted trust boundary of the override, not a bug.
func (r *CertificateRepo) SetTransferredFlag(ctx context.Context, id string, transferred bool) (*model.Certificate, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrCertificateNotFound
	}
	now := time.Now().UTC()
	set := bson.M{
		"transferredToLearner": transferred,
		"updatedAt":            now,
	}
	unset := bson.M{}
	if transferred {
		set["transferredAt"] = now
		set["status"] = model.StatusTransferred
	} else {
		unset["transferredAt"] = ""
		set["status"] = model.StatusIssued
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var c model.Certificate
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
