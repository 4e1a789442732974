package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user document may carry. Organizations and admins may issue
// certificates; learners receive them.
const (
	RoleLearner      = "learner"
	RoleOrganization = "organization"
	RoleAdmin        = "admin"
)

// User represents a record in the `users` collection. Identity is
// wallet-based: the WalletID field holds the Algorand address the user
// connected with, and it is unique across users when present. Role-specific
// profile fields are optional and only populated for the matching role.
//
// Certificates is a back-reference list of certificate ObjectIDs that were
// issued to this user's wallet. The certificate itself stores the learner
// wallet as a plain string, so the two can disagree when a certificate is
// issued to a wallet that never registered.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	WalletID  string             `bson:"walletId,omitempty" json:"walletId,omitempty"`

	// Common profile fields.
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
	Bio   string `bson:"bio,omitempty" json:"bio,omitempty"`

	// Learner profile.
	Skills          []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Experience      string   `bson:"experience,omitempty" json:"experience,omitempty"`
	Education       string   `bson:"education,omitempty" json:"education,omitempty"`
	Location        string   `bson:"location,omitempty" json:"location,omitempty"`
	GithubProfile   string   `bson:"githubProfile,omitempty" json:"githubProfile,omitempty"`
	LinkedinProfile string   `bson:"linkedinProfile,omitempty" json:"linkedinProfile,omitempty"`

	// Organization profile.
	OrganizationName       string `bson:"organizationName,omitempty" json:"organizationName,omitempty"`
	OrganizationType       string `bson:"organizationType,omitempty" json:"organizationType,omitempty"`
	Website                string `bson:"website,omitempty" json:"website,omitempty"`
	Description            string `bson:"description,omitempty" json:"description,omitempty"`
	Industry               string `bson:"industry,omitempty" json:"industry,omitempty"`
	Size                   string `bson:"size,omitempty" json:"size,omitempty"`
	Address                string `bson:"address,omitempty" json:"address,omitempty"`
	EstablishedYear        string `bson:"establishedYear,omitempty" json:"establishedYear,omitempty"`
	CertificationAuthority bool   `bson:"certificationAuthority,omitempty" json:"certificationAuthority,omitempty"`

	Certificates []primitive.ObjectID `bson:"certificates,omitempty" json:"certificates,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CanIssue reports whether this user's role permits issuing certificates.
func (u *User) CanIssue() bool {
	return u.Role == RoleOrganization || u.Role == RoleAdmin
}
