package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Shared field-validation errors.  The setters return these (or a
// fmt-wrapped variant) so interactive and scripted callers can tell
// the user exactly which rule a field broke.  Setters never panic.
var (
	ErrEmptyValue   = errors.New("value must not be empty")
	ErrNotInteger   = errors.New("an integer was expected")
	ErrNotPositive  = errors.New("value must be greater than zero")
	ErrNotReady     = errors.New("not all required fields are set")
	ErrUnknownType  = errors.New("unknown ticket type")
	ErrUnknownVenue = errors.New("unknown venue type")
)

// TicketBuilder accumulates ticket fields one raw string at a time
// and produces an immutable Ticket once every required field has been
// accepted.  A zero builder is ready to use; Clear returns a used one
// to that state between build attempts.
type TicketBuilder struct {
	id            *int64
	name          *string
	x             *int
	y             *int
	price         *int
	ticketType    *TicketType
	venueCapacity *int64
	venueType     *VenueType
	street        *string
	zipCode       *string
	createdAt     *time.Time
}

// NewTicketBuilder returns an empty builder.
func NewTicketBuilder() *TicketBuilder {
	return &TicketBuilder{}
}

// BuilderFromTicket derives a builder from an existing aggregate.
// The id and creation date are deliberately left unset: rebuilding
// yields the same field values while the store stays in charge of
// both assigned fields.
func BuilderFromTicket(t *Ticket) *TicketBuilder {
	b := &TicketBuilder{}
	name := t.Name
	x, y := t.Coordinates.X, t.Coordinates.Y
	price := t.Price
	tt := t.Type
	capacity := t.Venue.Capacity
	vt := t.Venue.Type
	street := t.Venue.Address.Street
	zip := t.Venue.Address.ZipCode
	b.name = &name
	b.x, b.y = &x, &y
	b.price = &price
	b.ticketType = &tt
	b.venueCapacity = &capacity
	b.venueType = &vt
	b.street = &street
	b.zipCode = &zip
	return b
}

// SetName accepts a non-empty ticket name.  The same value doubles as
// the venue name in the built aggregate.
func (b *TicketBuilder) SetName(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	b.name = &raw
	return nil
}

// SetX accepts the x coordinate.
func (b *TicketBuilder) SetX(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return ErrNotInteger
	}
	b.x = &n
	return nil
}

// SetY accepts the y coordinate.
func (b *TicketBuilder) SetY(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return ErrNotInteger
	}
	b.y = &n
	return nil
}

// SetPrice accepts a strictly positive integer price.
func (b *TicketBuilder) SetPrice(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return ErrNotInteger
	}
	if n <= 0 {
		return ErrNotPositive
	}
	b.price = &n
	return nil
}

// SetType accepts one of the TicketType values.
func (b *TicketBuilder) SetType(raw string) error {
	if !ValidTicketType(raw) {
		return fmt.Errorf("%w %q, expected one of %v", ErrUnknownType, raw, ticketTypeOrder)
	}
	t := TicketType(raw)
	b.ticketType = &t
	return nil
}

// SetVenueCapacity accepts a strictly positive venue capacity.
func (b *TicketBuilder) SetVenueCapacity(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrNotInteger
	}
	if n <= 0 {
		return ErrNotPositive
	}
	b.venueCapacity = &n
	return nil
}

// SetVenueType accepts one of the VenueType values.
func (b *TicketBuilder) SetVenueType(raw string) error {
	if !ValidVenueType(raw) {
		return fmt.Errorf("%w %q, expected one of %v", ErrUnknownVenue, raw, venueTypeOrder)
	}
	t := VenueType(raw)
	b.venueType = &t
	return nil
}

// SetStreet accepts a non-empty street.
func (b *TicketBuilder) SetStreet(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	b.street = &raw
	return nil
}

// SetZipCode accepts a postal code.  Any non-empty string is valid.
func (b *TicketBuilder) SetZipCode(raw string) error {
	if raw == "" {
		return ErrEmptyValue
	}
	b.zipCode = &raw
	return nil
}

// SetID is used by the store after the database assigned an id.
func (b *TicketBuilder) SetID(id int64) { b.id = &id }

// SetCreatedAt is used by the store after the database assigned the
// creation timestamp, and by Reload when reading rows back.
func (b *TicketBuilder) SetCreatedAt(ts time.Time) { b.createdAt = &ts }

// HasID reports whether an id has been assigned.
func (b *TicketBuilder) HasID() bool { return b.id != nil }

// ID returns the assigned id, or 0 when unset.
func (b *TicketBuilder) ID() int64 {
	if b.id == nil {
		return 0
	}
	return *b.id
}

// Typed accessors for the persistence layer.  They return the zero
// value while the field is unset; the repository only consumes
// builders for which Ready reported true.

func (b *TicketBuilder) Name() string {
	if b.name == nil {
		return ""
	}
	return *b.name
}

func (b *TicketBuilder) X() int {
	if b.x == nil {
		return 0
	}
	return *b.x
}

func (b *TicketBuilder) Y() int {
	if b.y == nil {
		return 0
	}
	return *b.y
}

func (b *TicketBuilder) Price() int {
	if b.price == nil {
		return 0
	}
	return *b.price
}

func (b *TicketBuilder) Type() TicketType {
	if b.ticketType == nil {
		return ""
	}
	return *b.ticketType
}

func (b *TicketBuilder) VenueCapacity() int64 {
	if b.venueCapacity == nil {
		return 0
	}
	return *b.venueCapacity
}

func (b *TicketBuilder) VenueType() VenueType {
	if b.venueType == nil {
		return ""
	}
	return *b.venueType
}

func (b *TicketBuilder) Street() string {
	if b.street == nil {
		return ""
	}
	return *b.street
}

func (b *TicketBuilder) ZipCode() string {
	if b.zipCode == nil {
		return ""
	}
	return *b.zipCode
}

// Clear resets every field to unset, including id and creation date.
func (b *TicketBuilder) Clear() {
	*b = TicketBuilder{}
}

// Ready reports whether every client-supplied field has been set.  Id
// and creation date are excluded: both belong to the store.
func (b *TicketBuilder) Ready() bool {
	return b.name != nil &&
		b.x != nil &&
		b.y != nil &&
		b.price != nil &&
		b.ticketType != nil &&
		b.venueCapacity != nil &&
		b.venueType != nil &&
		b.street != nil &&
		b.zipCode != nil
}

// Build assembles the immutable aggregate.  When no id was assigned
// the ticket and venue ids stay zero for the store to fill in; when
// no creation date was assigned the current time is used as a
// placeholder until the database reports the committed value.
func (b *TicketBuilder) Build(ownerID uint64) (*Ticket, error) {
	if !b.Ready() {
		return nil, ErrNotReady
	}
	createdAt := time.Now()
	if b.createdAt != nil {
		createdAt = *b.createdAt
	}
	var id int64
	if b.id != nil {
		id = *b.id
	}
	return &Ticket{
		ID:          id,
		Name:        *b.name,
		Coordinates: Coordinates{X: *b.x, Y: *b.y},
		CreatedAt:   createdAt,
		Price:       *b.price,
		Type:        *b.ticketType,
		Venue: Venue{
			ID:       id,
			Name:     *b.name,
			Capacity: *b.venueCapacity,
			Type:     *b.venueType,
			Address:  Address{Street: *b.street, ZipCode: *b.zipCode},
		},
		OwnerID: ownerID,
	}, nil
}

// Compare orders two builders with the same score as Ticket.Compare.
// Both sides must have type, venue capacity and price set; the
// comparable subset of a partially filled builder is exactly the
// subset the score reads.
func (b *TicketBuilder) Compare(o *TicketBuilder) int {
	return compareScore(b.Type().Rank(), o.Type().Rank(), b.VenueCapacity(), o.VenueCapacity(), b.Price(), o.Price())
}
