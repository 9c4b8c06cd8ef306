package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullBuilder(t *testing.T) *TicketBuilder {
	t.Helper()
	b := NewTicketBuilder()
	require.NoError(t, b.SetName("opera"))
	require.NoError(t, b.SetX("-3"))
	require.NoError(t, b.SetY("14"))
	require.NoError(t, b.SetPrice("250"))
	require.NoError(t, b.SetType("USUAL"))
	require.NoError(t, b.SetVenueCapacity("1200"))
	require.NoError(t, b.SetVenueType("OPEN_AREA"))
	require.NoError(t, b.SetStreet("Nevsky"))
	require.NoError(t, b.SetZipCode("191186"))
	return b
}

func TestSetterValidation(t *testing.T) {
	b := NewTicketBuilder()

	assert.ErrorIs(t, b.SetName(""), ErrEmptyValue)
	assert.ErrorIs(t, b.SetX(""), ErrEmptyValue)
	assert.ErrorIs(t, b.SetX("abc"), ErrNotInteger)
	assert.ErrorIs(t, b.SetY("1.5"), ErrNotInteger)
	assert.ErrorIs(t, b.SetPrice("0"), ErrNotPositive)
	assert.ErrorIs(t, b.SetPrice("-10"), ErrNotPositive)
	assert.ErrorIs(t, b.SetVenueCapacity("0"), ErrNotPositive)
	assert.ErrorIs(t, b.SetType("vip"), ErrUnknownType)
	assert.ErrorIs(t, b.SetVenueType("STADIUM"), ErrUnknownVenue)
	assert.ErrorIs(t, b.SetStreet(""), ErrEmptyValue)
	assert.ErrorIs(t, b.SetZipCode(""), ErrEmptyValue)

	// A failed setter leaves the field unset.
	assert.False(t, b.Ready())
	assert.Equal(t, 0, b.Price())
}

func TestReadyAndBuild(t *testing.T) {
	b := NewTicketBuilder()
	assert.False(t, b.Ready())
	_, err := b.Build(1)
	assert.ErrorIs(t, err, ErrNotReady)

	b = fullBuilder(t)
	assert.True(t, b.Ready())

	tk, err := b.Build(42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tk.ID, "id stays unset for the store to assign")
	assert.Equal(t, "opera", tk.Name)
	assert.Equal(t, "opera", tk.Venue.Name, "venue shares the ticket name")
	assert.Equal(t, Coordinates{X: -3, Y: 14}, tk.Coordinates)
	assert.Equal(t, 250, tk.Price)
	assert.Equal(t, TicketUsual, tk.Type)
	assert.Equal(t, int64(1200), tk.Venue.Capacity)
	assert.Equal(t, VenueOpenArea, tk.Venue.Type)
	assert.Equal(t, Address{Street: "Nevsky", ZipCode: "191186"}, tk.Venue.Address)
	assert.Equal(t, uint64(42), tk.OwnerID)
}

func TestBuildWithAssignedIDAndTimestamp(t *testing.T) {
	b := fullBuilder(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b.SetID(17)
	b.SetCreatedAt(ts)

	tk, err := b.Build(1)
	require.NoError(t, err)
	assert.Equal(t, int64(17), tk.ID)
	assert.Equal(t, int64(17), tk.Venue.ID, "venue id mirrors the ticket id")
	assert.Equal(t, ts, tk.CreatedAt)
}

func TestClearResetsEverything(t *testing.T) {
	b := fullBuilder(t)
	b.SetID(5)
	b.Clear()
	assert.False(t, b.Ready())
	assert.False(t, b.HasID())
	assert.Equal(t, "", b.Name())
}

func TestRoundTrip(t *testing.T) {
	b := fullBuilder(t)
	b.SetID(9)
	b.SetCreatedAt(time.Now())
	original, err := b.Build(7)
	require.NoError(t, err)

	derived := BuilderFromTicket(original)
	assert.False(t, derived.HasID(), "derived builders drop the assigned id")
	rebuilt, err := derived.Build(7)
	require.NoError(t, err)

	assert.Equal(t, original.Name, rebuilt.Name)
	assert.Equal(t, original.Coordinates, rebuilt.Coordinates)
	assert.Equal(t, original.Price, rebuilt.Price)
	assert.Equal(t, original.Type, rebuilt.Type)
	assert.Equal(t, original.Venue.Capacity, rebuilt.Venue.Capacity)
	assert.Equal(t, original.Venue.Type, rebuilt.Venue.Type)
	assert.Equal(t, original.Venue.Address, rebuilt.Venue.Address)
}

func TestBuilderCompareMatchesTicketCompare(t *testing.T) {
	left := fullBuilder(t)
	right := fullBuilder(t)
	require.NoError(t, right.SetPrice("100"))

	lt, err := left.Build(1)
	require.NoError(t, err)
	rt, err := right.Build(1)
	require.NoError(t, err)

	assert.Equal(t, lt.Compare(rt), left.Compare(right))
	assert.Equal(t, rt.Compare(lt), right.Compare(left))

	require.NoError(t, right.SetType("VIP"))
	assert.Negative(t, left.Compare(right))
}
