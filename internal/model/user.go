package model

import "time"

// Roles stored in users.role.  Regular users own the tickets they
// create; admins may additionally wipe the whole collection through
// the operational clear-all endpoint.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User mirrors the `users` table.  The numeric ID is the owner tag
// stamped on every ticket a user creates, so renaming a user never
// touches ticket rows.
//
// Fields:
//
//	ID           – users.id
//	Name         – users.name, unique login name
//	PasswordHash – bcrypt digest; the per-hash salt is embedded in the string
//	Role         – users.role (USER or ADMIN)
//	CreatedAt    – users.created_at
type User struct {
	ID           uint64
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
