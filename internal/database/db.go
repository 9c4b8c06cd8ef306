package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// pingTimeout bounds the startup connectivity probe.  A database that
// cannot answer within this window would also stall the initial
// collection reload, so failing fast here is the better outcome.
const pingTimeout = 5 * time.Second

// Pool carries the connection-pool limits for the shared *sql.DB.
// Mutations are serialized behind the collection mutex, so the pool
// mostly absorbs concurrent auth lookups and login traffic that run
// outside that lock.
type Pool struct {
	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration
}

// Open connects to MySQL, applies the pool limits and verifies the
// connection before handing it out.
func Open(user, pass, host, port, name string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// dsn assembles the driver connection string.  parseTime maps the
// DATETIME creation timestamps onto time.Time, and loc=UTC keeps them
// comparable no matter where clients or the server run.
func dsn(user, pass, host, port, name string) string {
	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cred, host, port, name)
}
