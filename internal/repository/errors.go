// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the auth
// service and handlers to distinguish failure scenarios without string
// matching.  Plain lookup misses are reported as sql.ErrNoRows, matching
// database/sql.
package repository

import "errors"

// ErrEmailExists is returned when an insert would violate the unique email
// constraint on users.
var ErrEmailExists = errors.New("email already exists")

// ErrResetNotFound is returned when a password-reset row is absent, already
// used or expired.  Callers must treat all three identically.
var ErrResetNotFound = errors.New("reset token not found")

// ErrOrderExists is returned when a user already has an order for the event.
// Handlers translate this into HTTP 409.
var ErrOrderExists = errors.New("order already exists for this event")

// ErrConflict is returned when a delete or update cannot proceed because of
// dependent records, such as removing a shop that still has open events.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
