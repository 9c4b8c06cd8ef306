package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketWith(id int64, price int, tt TicketType, capacity int64) *Ticket {
	return &Ticket{
		ID:          id,
		Name:        "concert",
		Coordinates: Coordinates{X: 1, Y: 2},
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Price:       price,
		Type:        tt,
		Venue: Venue{
			ID:       id,
			Name:     "concert",
			Capacity: capacity,
			Type:     VenueBar,
			Address:  Address{Street: "Main st", ZipCode: "190000"},
		},
		OwnerID: 1,
	}
}

func TestTicketTypeRank(t *testing.T) {
	assert.Equal(t, 0, TicketVIP.Rank())
	assert.Equal(t, 1, TicketUsual.Rank())
	assert.Equal(t, 2, TicketBudgetary.Rank())
	assert.Equal(t, 3, TicketCheap.Rank())
	assert.Equal(t, 4, TicketType("BOGUS").Rank())
}

func TestTypeMembership(t *testing.T) {
	for _, v := range []string{"VIP", "USUAL", "BUDGETARY", "CHEAP"} {
		assert.True(t, ValidTicketType(v), v)
	}
	assert.False(t, ValidTicketType("vip"))
	assert.False(t, ValidTicketType(""))

	for _, v := range []string{"PUB", "BAR", "OPEN_AREA"} {
		assert.True(t, ValidVenueType(v), v)
	}
	assert.False(t, ValidVenueType("CLUB"))
}

func TestCompareTypeDominates(t *testing.T) {
	// One rank of type difference outweighs both the venue sign and
	// the maximal price contribution.
	vip := ticketWith(1, 1, TicketVIP, 1)
	cheapRich := ticketWith(2, 1_000_000, TicketCheap, 1_000_000)
	assert.Positive(t, vip.Compare(cheapRich))
	assert.Negative(t, cheapRich.Compare(vip))

	usual := ticketWith(3, 1_000_000, TicketUsual, 1_000_000)
	assert.Positive(t, vip.Compare(usual))
}

func TestCompareVenueAndPriceTieBreak(t *testing.T) {
	base := ticketWith(1, 100, TicketUsual, 50)

	// Same type: capacity contributes its sign.
	bigger := ticketWith(2, 100, TicketUsual, 80)
	assert.Equal(t, 1, bigger.Compare(base))
	assert.Equal(t, -1, base.Compare(bigger))

	// Same type and capacity: +2 when dearer, -1 when cheaper.
	dearer := ticketWith(3, 150, TicketUsual, 50)
	cheaper := ticketWith(4, 50, TicketUsual, 50)
	assert.Equal(t, 2, dearer.Compare(base))
	assert.Equal(t, -1, cheaper.Compare(base))
	assert.Equal(t, 0, base.Compare(base))
}

func TestCompareAsymmetricWeighting(t *testing.T) {
	// Capacity and price pull in opposite directions: smaller venue
	// (-1) but dearer (+2) nets out positive.
	a := ticketWith(1, 200, TicketUsual, 10)
	b := ticketWith(2, 100, TicketUsual, 99)
	assert.Equal(t, 1, a.Compare(b))
	// The reverse direction is not the negation: bigger venue (+1)
	// but cheaper (-1) nets zero.
	assert.Equal(t, 0, b.Compare(a))
}

func TestCompareVenue(t *testing.T) {
	small := ticketWith(1, 100, TicketVIP, 10)
	big := ticketWith(2, 1, TicketCheap, 20)
	assert.Equal(t, -1, small.CompareVenue(big))
	assert.Equal(t, 1, big.CompareVenue(small))
	assert.Equal(t, 0, small.CompareVenue(small))
}

func TestTicketString(t *testing.T) {
	tk := ticketWith(7, 120, TicketVIP, 300)
	s := tk.String()
	require.Contains(t, s, "id:7")
	require.Contains(t, s, "name:concert")
	require.Contains(t, s, "creationDate:2024-05-01 12:00:00")
	require.Contains(t, s, "type:VIP")
	require.Contains(t, s, "capacity:300")
	require.Contains(t, s, "street:Main st")
}
