package database

import (
	"context"
	"database/sql"
)

// Table definitions for the ticket aggregate and its users.  The
// service owns its schema: EnsureSchema runs at startup so a fresh
// database is usable without external migration tooling.  Statement
// order follows referential dependencies.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(190) NOT NULL UNIQUE,
		password_hash VARCHAR(100) NOT NULL,
		role ENUM('USER','ADMIN') NOT NULL DEFAULT 'USER',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		street TEXT NOT NULL,
		zip_code TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coordinates (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		x INT NOT NULL,
		y INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS venues (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity BIGINT NOT NULL,
		type ENUM('PUB','BAR','OPEN_AREA') NOT NULL,
		address_id BIGINT NOT NULL,
		FOREIGN KEY (address_id) REFERENCES addresses(id)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name TEXT NOT NULL,
		coordinates_id BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		price INT NOT NULL,
		type ENUM('VIP','USUAL','BUDGETARY','CHEAP') NOT NULL,
		venue_id BIGINT NOT NULL,
		owner_id BIGINT UNSIGNED NOT NULL,
		FOREIGN KEY (coordinates_id) REFERENCES coordinates(id),
		FOREIGN KEY (venue_id) REFERENCES venues(id),
		FOREIGN KEY (owner_id) REFERENCES users(id)
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
