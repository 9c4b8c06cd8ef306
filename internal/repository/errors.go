// Package repository contains data access logic separated from the
// HTTP handlers and the in-memory collection.  This file defines
// sentinel error values reused across repositories so that higher
// layers can distinguish failure scenarios: missing rows and duplicate
// registrations are routine user-facing outcomes, while everything
// else is a persistence failure that was rolled back and should be
// logged.
package repository

import "errors"

// ErrTicketNotFound is returned when a ticket id matches no row for
// the requesting owner.  Mutations scope their lookups by owner_id, so
// another user's ticket and a missing ticket are indistinguishable at
// this layer; the collection cache tells them apart before calling in.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrNameExists is returned by user registration when the login name
// is already taken.
var ErrNameExists = errors.New("user name already exists")

// ErrUserNotFound is returned when a login name matches no user.
var ErrUserNotFound = errors.New("user not found")
