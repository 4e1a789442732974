// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios: a duplicate
// certificate maps to HTTP 409 while a missing one maps to 404.
package repository

import "errors"

// ErrEmailExists is returned when a signup reuses an already registered
// email address.
var ErrEmailExists = errors.New("email already exists")

// ErrWalletExists is returned when a signup reuses a wallet address that is
// already bound to another user.
var ErrWalletExists = errors.New("wallet already exists")

// ErrUserNotFound is returned when no user matches the given lookup key.
var ErrUserNotFound = errors.New("user not found")

// ErrCertificateExists is returned when an active certificate already exists
// for the same (learner wallet, course name, issuer wallet) triple. Handlers
// translate this into HTTP 409.
var ErrCertificateExists = errors.New("certificate already exists for this learner and course")

// ErrCertificateNotFound is returned when no certificate matches the given
// lookup key. Handlers translate this into HTTP 404.
var ErrCertificateNotFound = errors.New("certificate not found")
