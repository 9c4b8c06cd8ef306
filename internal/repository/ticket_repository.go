package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avoronov/ticket-directory/internal/model"
)

// TicketRepo persists the ticket aggregate across its four tables:
// addresses, coordinates, venues and tickets.  Every mutating method
// runs as a single transaction so a failure in any table leaves the
// database exactly as it was; the in-memory collection above this
// layer only applies its own update after a method returns nil.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// Insert writes a brand-new aggregate.  Rows are created in
// referential order (address, coordinates, venue, ticket) and the
// database assigns both the ticket id and the creation timestamp;
// the committed values are read back inside the same transaction and
// returned to the caller.
func (r *TicketRepo) Insert(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (id int64, createdAt time.Time, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO addresses (street, zip_code) VALUES (?, ?)",
		b.Street(), b.ZipCode())
	if err != nil {
		return 0, time.Time{}, err
	}
	addressID, err := res.LastInsertId()
	if err != nil {
		return 0, time.Time{}, err
	}

	res, err = tx.ExecContext(ctx,
		"INSERT INTO coordinates (x, y) VALUES (?, ?)",
		b.X(), b.Y())
	if err != nil {
		return 0, time.Time{}, err
	}
	coordinatesID, err := res.LastInsertId()
	if err != nil {
		return 0, time.Time{}, err
	}

	res, err = tx.ExecContext(ctx,
		"INSERT INTO venues (name, capacity, type, address_id) VALUES (?, ?, ?, ?)",
		b.Name(), b.VenueCapacity(), string(b.VenueType()), addressID)
	if err != nil {
		return 0, time.Time{}, err
	}
	venueID, err := res.LastInsertId()
	if err != nil {
		return 0, time.Time{}, err
	}

	res, err = tx.ExecContext(ctx,
		"INSERT INTO tickets (name, coordinates_id, price, type, venue_id, owner_id) VALUES (?, ?, ?, ?, ?, ?)",
		b.Name(), coordinatesID, b.Price(), string(b.Type()), venueID, ownerID)
	if err != nil {
		return 0, time.Time{}, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, time.Time{}, err
	}

	// Read back the DB-assigned creation timestamp so the aggregate
	// carries the committed value, not a client-side approximation.
	if err = tx.QueryRowContext(ctx,
		"SELECT created_at FROM tickets WHERE id = ?", id).Scan(&createdAt); err != nil {
		return 0, time.Time{}, err
	}
	return id, createdAt, nil
}

// Update rewrites every client-supplied field of an existing
// aggregate in one transaction, leaving id, creation timestamp and
// owner untouched.  The owner id is repeated in the WHERE clause as a
// database-side guarantee even though the collection has already
// verified ownership against the cache.
func (r *TicketRepo) Update(ctx context.Context, b *model.TicketBuilder, id int64, ownerID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var coordinatesID, venueID int64
	err = tx.QueryRowContext(ctx,
		"SELECT coordinates_id, venue_id FROM tickets WHERE id = ? AND owner_id = ? FOR UPDATE",
		id, ownerID).Scan(&coordinatesID, &venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTicketNotFound
	}
	if err != nil {
		return err
	}
	var addressID int64
	if err = tx.QueryRowContext(ctx,
		"SELECT address_id FROM venues WHERE id = ?", venueID).Scan(&addressID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE coordinates SET x = ?, y = ? WHERE id = ?",
		b.X(), b.Y(), coordinatesID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE venues SET name = ?, capacity = ?, type = ? WHERE id = ?",
		b.Name(), b.VenueCapacity(), string(b.VenueType()), venueID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE addresses SET street = ?, zip_code = ? WHERE id = ?",
		b.Street(), b.ZipCode(), addressID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE tickets SET name = ?, price = ?, type = ? WHERE id = ?",
		b.Name(), b.Price(), string(b.Type()), id); err != nil {
		return err
	}
	return nil
}

// Delete removes one aggregate and its dependent rows.  The ticket
// row goes first because it references the venue and coordinates
// rows; the venue goes before its address for the same reason.
func (r *TicketRepo) Delete(ctx context.Context, id int64, ownerID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return deleteAggregate(ctx, tx, id, ownerID)
}

// DeleteMany removes a set of aggregates owned by one user in a
// single transaction.  Used by remove_lower and clear, which compute
// the id set from the cache first; either every aggregate is gone
// after commit or none is.
func (r *TicketRepo) DeleteMany(ctx context.Context, ids []int64, ownerID uint64) (err error) {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, id := range ids {
		if err = deleteAggregate(ctx, tx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// deleteAggregate removes the four rows of one aggregate inside an
// open transaction.
func deleteAggregate(ctx context.Context, tx *sql.Tx, id int64, ownerID uint64) error {
	var coordinatesID, venueID int64
	err := tx.QueryRowContext(ctx,
		"SELECT coordinates_id, venue_id FROM tickets WHERE id = ? AND owner_id = ? FOR UPDATE",
		id, ownerID).Scan(&coordinatesID, &venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTicketNotFound
	}
	if err != nil {
		return err
	}
	var addressID int64
	if err := tx.QueryRowContext(ctx,
		"SELECT address_id FROM venues WHERE id = ?", venueID).Scan(&addressID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM venues WHERE id = ?", venueID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM coordinates WHERE id = ?", coordinatesID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM addresses WHERE id = ?", addressID); err != nil {
		return err
	}
	return nil
}

// DeleteAll wipes every aggregate regardless of owner.  Reserved for
// the operational clear-all command.
func (r *TicketRepo) DeleteAll(ctx context.Context) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, q := range []string{
		"DELETE FROM tickets",
		"DELETE FROM venues",
		"DELETE FROM coordinates",
		"DELETE FROM addresses",
	} {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll reads every aggregate back through a four-table join,
// ordered by id.  It is the crash-recovery path: the collection calls
// it once at startup (and on any later Reload) to rebuild its cache.
func (r *TicketRepo) LoadAll(ctx context.Context) ([]*model.Ticket, error) {
	const q = `SELECT t.id, t.name, t.created_at, t.price, t.type, t.owner_id,
	                  c.x, c.y,
	                  v.capacity, v.type AS venue_type,
	                  a.street, a.zip_code
	           FROM tickets t
	           JOIN coordinates c ON c.id = t.coordinates_id
	           JOIN venues v ON v.id = t.venue_id
	           JOIN addresses a ON a.id = v.address_id
	           ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Ticket
	for rows.Next() {
		var (
			id                 int64
			name, tType, vType string
			createdAt          time.Time
			price, x, y        int
			ownerID            uint64
			capacity           int64
			street, zipCode    string
		)
		if err := rows.Scan(&id, &name, &createdAt, &price, &tType, &ownerID,
			&x, &y, &capacity, &vType, &street, &zipCode); err != nil {
			return nil, err
		}
		out = append(out, &model.Ticket{
			ID:          id,
			Name:        name,
			Coordinates: model.Coordinates{X: x, Y: y},
			CreatedAt:   createdAt,
			Price:       price,
			Type:        model.TicketType(tType),
			Venue: model.Venue{
				ID:       id,
				Name:     name,
				Capacity: capacity,
				Type:     model.VenueType(vType),
				Address:  model.Address{Street: street, ZipCode: zipCode},
			},
			OwnerID: ownerID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
