package model

import (
	"fmt"
	"time"
)

// TicketType classifies a ticket.  The order of the values matters:
// VIP is the greatest type and CHEAP the least, and the comparison
// score in Compare weighs the type difference heavier than any other
// field.  Values are stored verbatim in the tickets.type column.
type TicketType string

const (
	TicketVIP       TicketType = "VIP"
	TicketUsual     TicketType = "USUAL"
	TicketBudgetary TicketType = "BUDGETARY"
	TicketCheap     TicketType = "CHEAP"
)

// ticketTypeOrder lists ticket types from greatest to least.  The
// index of a value is its rank.
var ticketTypeOrder = []TicketType{TicketVIP, TicketUsual, TicketBudgetary, TicketCheap}

// TicketTypes returns all valid ticket types, greatest first.
func TicketTypes() []TicketType {
	out := make([]TicketType, len(ticketTypeOrder))
	copy(out, ticketTypeOrder)
	return out
}

// Rank returns the position of the type in the ordering, 0 for VIP.
// Unknown values rank below every valid one.
func (t TicketType) Rank() int {
	for i, v := range ticketTypeOrder {
		if v == t {
			return i
		}
	}
	return len(ticketTypeOrder)
}

// ValidTicketType reports whether s matches one of the ticket type
// values exactly.  Membership is checked by comparison, never by
// parsing, so arbitrary client input cannot fault.
func ValidTicketType(s string) bool {
	for _, v := range ticketTypeOrder {
		if string(v) == s {
			return true
		}
	}
	return false
}

// VenueType classifies a venue.  Stored verbatim in venues.type.
type VenueType string

const (
	VenuePub      VenueType = "PUB"
	VenueBar      VenueType = "BAR"
	VenueOpenArea VenueType = "OPEN_AREA"
)

var venueTypeOrder = []VenueType{VenuePub, VenueBar, VenueOpenArea}

// VenueTypes returns all valid venue types.
func VenueTypes() []VenueType {
	out := make([]VenueType, len(venueTypeOrder))
	copy(out, venueTypeOrder)
	return out
}

// ValidVenueType reports whether s matches one of the venue type values.
func ValidVenueType(s string) bool {
	for _, v := range venueTypeOrder {
		if string(v) == s {
			return true
		}
	}
	return false
}

// Coordinates is the (x, y) pair attached to every ticket.
//
// Fields:
//
//	X – coordinates.x
//	Y – coordinates.y
type Coordinates struct {
	X int // coordinates.x
	Y int // coordinates.y
}

// Address locates a venue.  Street must be non-empty and ZipCode
// non-null; both are validated by the builder before an Address is
// ever constructed.
type Address struct {
	Street  string // addresses.street
	ZipCode string // addresses.zip_code
}

// Venue is the destination embedded in a ticket.  Its ID mirrors the
// owning ticket's id in the aggregate; the venues table row keeps its
// own key internally.  When two venues are compared only capacity is
// considered.
type Venue struct {
	ID       int64     // mirrors tickets.id in the aggregate
	Name     string    // venues.name
	Capacity int64     // venues.capacity, > 0
	Type     VenueType // venues.type
	Address  Address   // joined addresses row
}

// Ticket is the record aggregate served by the collection.  Instances
// are immutable once built: the store constructs a new aggregate for
// every committed mutation instead of editing one in place.  OwnerID
// is stamped at creation and never changes.
//
// Fields:
//
//	ID          – tickets.id, assigned by the database, > 0
//	Name        – tickets.name, non-empty
//	Coordinates – joined coordinates row
//	CreatedAt   – tickets.created_at, assigned by the database at first insert
//	Price       – tickets.price, > 0
//	Type        – tickets.type
//	Venue       – joined venues row with its address
//	OwnerID     – users.id of the creating user
type Ticket struct {
	ID          int64
	Name        string
	Coordinates Coordinates
	CreatedAt   time.Time
	Price       int
	Type        TicketType
	Venue       Venue
	OwnerID     uint64
}

// compareScore is the composite ordering shared by Ticket.Compare and
// TicketBuilder.Compare.  The type rank difference is weighted by -5
// so that a greater type dominates; the venue contributes the sign of
// the capacity difference; price breaks ties asymmetrically (+2 when
// the left side is dearer, -1 when cheaper).  Only the sign of the
// result is meaningful.
func compareScore(aRank, bRank int, aCap, bCap int64, aPrice, bPrice int) int {
	v := (aRank - bRank) * -5
	switch {
	case aCap > bCap:
		v++
	case aCap < bCap:
		v--
	}
	switch {
	case aPrice > bPrice:
		v += 2
	case aPrice < bPrice:
		v--
	}
	return v
}

// Compare orders two tickets by type, venue capacity and price.  A
// positive result means t sorts above o.
func (t *Ticket) Compare(o *Ticket) int {
	return compareScore(t.Type.Rank(), o.Type.Rank(), t.Venue.Capacity, o.Venue.Capacity, t.Price, o.Price)
}

// CompareVenue orders two tickets by venue capacity alone.  Used by
// the min_by_venue query.
func (t *Ticket) CompareVenue(o *Ticket) int {
	switch {
	case t.Venue.Capacity < o.Venue.Capacity:
		return -1
	case t.Venue.Capacity > o.Venue.Capacity:
		return 1
	}
	return 0
}

// String renders the full aggregate in the single-line form sent back
// to clients by show and the filter commands.
func (t *Ticket) String() string {
	return fmt.Sprintf("{id:%d, name:%s, coordinates:{x:%d, y:%d}, creationDate:%s, price:%d, type:%s, venue:%s}",
		t.ID, t.Name, t.Coordinates.X, t.Coordinates.Y,
		t.CreatedAt.Format("2006-01-02 15:04:05"), t.Price, t.Type, t.Venue.String())
}

// String renders the venue and its address.
func (v *Venue) String() string {
	return fmt.Sprintf("{id:%d, name:%s, capacity:%d, type:%s, address:{street:%s, zipCode:%s}}",
		v.ID, v.Name, v.Capacity, v.Type, v.Address.Street, v.Address.ZipCode)
}
