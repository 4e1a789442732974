package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Open connects to MongoDB, verifies the connection and returns a handle to
// the named database.
func Open(uri, name string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(name), nil
}

// EnsureIndexes creates the indexes the repositories rely on. Uniqueness of
// email, wallet and asset IDs, plus the active (learnerWallet, courseName,
// issuerWallet) triple, is enforced here rather than by any lock: concurrent
// duplicate issuance races against these indexes and the loser gets a
// duplicate-key error at persistence time.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Wallet addresses are unique per user but optional, so the
			// constraint only applies to documents that carry one.
			Keys: bson.D{{Key: "walletId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"walletId": bson.M{"$type": "string"}}),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return err
	}

	certs := []mongo.IndexModel{
		{
			// AssetID is unique once assigned (zero means not yet minted,
			// which never reaches the store in the normal flow).
			Keys: bson.D{{Key: "assetId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"assetId": bson.M{"$gt": 0}}),
		},
		{
			// One active certificate per (learner, course, issuer).
			Keys: bson.D{
				{Key: "learnerWallet", Value: 1},
				{Key: "courseName", Value: 1},
				{Key: "issuerWallet", Value: 1},
			},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"issued", "transferred"}}}),
		},
		{
			Keys: bson.D{{Key: "ipfsHash", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "organizationName", Value: 1}, {Key: "issuedAt", Value: -1}},
		},
	}
	if _, err := db.Collection("certificates").Indexes().CreateMany(ctx, certs); err != nil {
		return err
	}
	return nil
}
