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

// UserRepo provides access to the `users` collection.
type UserRepo struct{ col *mongo.Collection }

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection("users")}
}

// Create inserts a new user and returns the stored document. Email is
// normalized to lower case before insert. Duplicate email or wallet
// violations surface as ErrEmailExists / ErrWalletExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.WalletID = strings.TrimSpace(u.WalletID)
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = model.RoleLearner
	}

	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The violated index tells us which field collided.
			if strings.Contains(err.Error(), "walletId") {
				return nil, ErrWalletExists
			}
			return nil, ErrEmailExists
		}
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByWallet fetches a user by connected wallet address.
func (r *UserRepo) GetByWallet(ctx context.Context, walletID string) (*model.User, error) {
	var u model.User
	err := r.col.FindOne(ctx, bson.M{"walletId": strings.TrimSpace(walletID)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies a partial profile update to the user identified by
// wallet address and returns the updated document. The fields map comes from
// the handler already filtered down to allowed profile keys.
func (r *UserRepo) UpdateProfile(ctx context.Context, walletID string, fields bson.M) (*model.User, error) {
	fields["updatedAt"] = time.Now().UTC()
	var u model.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"walletId": strings.TrimSpace(walletID)},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AttachCertificate appends a certificate reference to the user owning the
// given wallet. $addToSet keeps the back-reference list free of duplicates.
// A missing user is not an error: certificates may be issued to wallets that
// never registered.
func (r *UserRepo) AttachCertificate(ctx context.Context, walletID string, certID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"walletId": strings.TrimSpace(walletID)},
		bson.M{
			"$addToSet": bson.M{"certificates": certID},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	return err
}
