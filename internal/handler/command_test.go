package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ticket-directory/internal/collection"
	"github.com/avoronov/ticket-directory/internal/middleware"
	"github.com/avoronov/ticket-directory/internal/model"
	"github.com/avoronov/ticket-directory/internal/queue"
)

type mockPersistence struct {
	mock.Mock
}

func (m *mockPersistence) Insert(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (int64, time.Time, error) {
	args := m.Called(ctx, b, ownerID)
	return args.Get(0).(int64), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockPersistence) Update(ctx context.Context, b *model.TicketBuilder, id int64, ownerID uint64) error {
	return m.Called(ctx, b, id, ownerID).Error(0)
}

func (m *mockPersistence) Delete(ctx context.Context, id int64, ownerID uint64) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

func (m *mockPersistence) DeleteMany(ctx context.Context, ids []int64, ownerID uint64) error {
	return m.Called(ctx, ids, ownerID).Error(0)
}

func (m *mockPersistence) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockPersistence) LoadAll(ctx context.Context) ([]*model.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

// newHandler builds a CommandHandler over a mock-backed store with the
// queue publisher replaced by an event recorder.
func newHandler() (*CommandHandler, *mockPersistence, *[]queue.TicketMutatedEvent) {
	mp := new(mockPersistence)
	events := &[]queue.TicketMutatedEvent{}
	h := &CommandHandler{
		Store: collection.NewStore(mp, nil),
		publish: func(_ context.Context, ev queue.TicketMutatedEvent) {
			*events = append(*events, ev)
		},
	}
	return h, mp, events
}

func ticketPayload() map[string]string {
	return map[string]string{
		"name":           "gala",
		"x":              "5",
		"y":              "-2",
		"price":          "300",
		"type":           "VIP",
		"venue_capacity": "150",
		"venue_type":     "PUB",
		"street":         "Rubinstein",
		"zip_code":       "191002",
	}
}

func dispatch(t *testing.T, h *CommandHandler, env Envelope, owner uint64) Answer {
	t.Helper()
	ans, err := h.Dispatch(context.Background(), env, owner)
	require.NoError(t, err)
	return ans
}

func TestDispatchInvalidCommand(t *testing.T) {
	h, _, _ := newHandler()
	ans := dispatch(t, h, Envelope{Name: "self_destruct"}, 1)
	assert.Equal(t, "invalid command", ans.Text)
	assert.False(t, ans.System)
}

func TestDispatchAdd(t *testing.T) {
	h, mp, events := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(7)).
		Return(int64(1), time.Now(), nil).Once()

	ans := dispatch(t, h, Envelope{Name: "add", Ticket: ticketPayload()}, 7)
	assert.Equal(t, "ticket added", ans.Text)
	assert.True(t, ans.System)
	assert.Equal(t, 1, h.Store.Size())

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, "add", ev.Op)
	assert.Equal(t, int64(1), ev.TicketID)
	assert.Equal(t, uint64(7), ev.OwnerID)
	assert.Equal(t, "VIP", ev.Type)
	assert.Zero(t, ev.Removed, "single-ticket events carry no removal count")
	mp.AssertExpectations(t)
}

func TestDispatchAddFieldErrors(t *testing.T) {
	h, mp, events := newHandler()

	payload := ticketPayload()
	delete(payload, "price")
	ans := dispatch(t, h, Envelope{Name: "add", Ticket: payload}, 1)
	assert.Equal(t, `field "price" is required`, ans.Text)
	assert.False(t, ans.System)

	payload = ticketPayload()
	payload["venue_capacity"] = "-5"
	ans = dispatch(t, h, Envelope{Name: "add", Ticket: payload}, 1)
	assert.Contains(t, ans.Text, `field "venue_capacity"`)

	payload = ticketPayload()
	payload["type"] = "PLATINUM"
	ans = dispatch(t, h, Envelope{Name: "add", Ticket: payload}, 1)
	assert.Contains(t, ans.Text, `field "type"`)

	assert.Empty(t, *events)
	mp.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchAddIfMax(t *testing.T) {
	h, mp, events := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(1), time.Now(), nil).Once()

	ans := dispatch(t, h, Envelope{Name: "add_if_max", Ticket: ticketPayload()}, 1)
	assert.Equal(t, "ticket added", ans.Text)

	// Same ticket again is not strictly greater.
	ans = dispatch(t, h, Envelope{Name: "add_if_max", Ticket: ticketPayload()}, 1)
	assert.Equal(t, "ticket not added", ans.Text)
	assert.False(t, ans.System)
	assert.Len(t, *events, 1, "rejected candidates publish nothing")
	mp.AssertExpectations(t)
}

func TestDispatchUpdateOwnership(t *testing.T) {
	h, mp, events := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(7)).
		Return(int64(1), time.Now(), nil).Once()
	dispatch(t, h, Envelope{Name: "add", Ticket: ticketPayload()}, 7)
	*events = (*events)[:0]

	ans := dispatch(t, h, Envelope{Name: "update", Args: []string{"1"}, Ticket: ticketPayload()}, 99)
	assert.Equal(t, "you can only modify tickets you created", ans.Text)
	assert.False(t, ans.System)

	ans = dispatch(t, h, Envelope{Name: "update", Args: []string{"42"}, Ticket: ticketPayload()}, 7)
	assert.Equal(t, "invalid id", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "update", Args: []string{"one"}, Ticket: ticketPayload()}, 7)
	assert.Equal(t, "an integer id argument was expected", ans.Text)
	assert.Empty(t, *events)

	mp.On("Update", mock.Anything, mock.Anything, int64(1), uint64(7)).Return(nil).Once()
	ans = dispatch(t, h, Envelope{Name: "update", Args: []string{"1"}, Ticket: ticketPayload()}, 7)
	assert.Equal(t, "ticket 1 updated", ans.Text)
	assert.True(t, ans.System)
	require.Len(t, *events, 1)
	assert.Equal(t, "update", (*events)[0].Op)
	mp.AssertExpectations(t)
}

func TestDispatchRemoveVariants(t *testing.T) {
	h, mp, _ := newHandler()

	ans := dispatch(t, h, Envelope{Name: "remove_first"}, 1)
	assert.Equal(t, "collection is empty", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "remove_at", Args: []string{"0"}}, 1)
	assert.Equal(t, "collection is empty", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "remove_at", Args: []string{"5"}}, 1)
	assert.Equal(t, "index out of range", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "remove_at", Args: []string{"-1"}}, 1)
	assert.Equal(t, "a non-negative integer index was expected", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "remove_by_id", Args: []string{"9"}}, 1)
	assert.Equal(t, "invalid id", ans.Text)

	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(1), time.Now(), nil).Once()
	dispatch(t, h, Envelope{Name: "add", Ticket: ticketPayload()}, 1)

	mp.On("Delete", mock.Anything, int64(1), uint64(1)).Return(nil).Once()
	ans = dispatch(t, h, Envelope{Name: "remove_by_id", Args: []string{"1"}}, 1)
	assert.Equal(t, "ticket 1 removed", ans.Text)
	assert.True(t, ans.System)
	assert.Equal(t, 0, h.Store.Size())
	mp.AssertExpectations(t)
}

func TestDispatchRemoveLowerAndClear(t *testing.T) {
	h, mp, events := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(1), time.Now(), nil).Once()
	cheap := ticketPayload()
	cheap["price"] = "10"
	cheap["type"] = "CHEAP"
	dispatch(t, h, Envelope{Name: "add", Ticket: cheap}, 1)
	*events = (*events)[:0]

	mp.On("DeleteMany", mock.Anything, []int64{1}, uint64(1)).Return(nil).Once()
	ans := dispatch(t, h, Envelope{Name: "remove_lower", Ticket: ticketPayload()}, 1)
	assert.Equal(t, "removed 1 tickets", ans.Text)
	require.Len(t, *events, 1)
	assert.Equal(t, "remove_lower", (*events)[0].Op)
	assert.Equal(t, 1, (*events)[0].Removed)

	// Nothing left to clear, so no storage call and no event.
	ans = dispatch(t, h, Envelope{Name: "clear"}, 1)
	assert.Equal(t, "all your tickets were removed", ans.Text)
	assert.Len(t, *events, 1)
	mp.AssertExpectations(t)
}

func TestDispatchQueries(t *testing.T) {
	h, mp, _ := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(1), time.Now(), nil).Once()
	dispatch(t, h, Envelope{Name: "add", Ticket: ticketPayload()}, 1)

	ans := dispatch(t, h, Envelope{Name: "show"}, 1)
	assert.Contains(t, ans.Text, "name:gala")

	ans = dispatch(t, h, Envelope{Name: "info"}, 1)
	assert.Contains(t, ans.Text, "Elements - 1")

	ans = dispatch(t, h, Envelope{Name: "min_by_venue"}, 1)
	assert.Contains(t, ans.Text, "capacity:150")

	ans = dispatch(t, h, Envelope{Name: "filter_contains_name", Args: []string{"ga"}}, 1)
	assert.Contains(t, ans.Text, "gala")
	ans = dispatch(t, h, Envelope{Name: "filter_contains_name", Args: []string{"zzz"}}, 1)
	assert.Equal(t, "", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "filter_by_price", Args: []string{"300"}}, 1)
	assert.Contains(t, ans.Text, "gala")
	ans = dispatch(t, h, Envelope{Name: "filter_by_price", Args: []string{"much"}}, 1)
	assert.Equal(t, "an integer price argument was expected", ans.Text)

	ans = dispatch(t, h, Envelope{Name: "filter_less_than_price", Args: []string{"301"}}, 1)
	assert.Contains(t, ans.Text, "gala")

	ans = dispatch(t, h, Envelope{Name: "count_greater_than_type", Args: []string{"CHEAP"}}, 1)
	assert.Equal(t, "1", ans.Text)
	ans = dispatch(t, h, Envelope{Name: "count_greater_than_type", Args: []string{"GOLD"}}, 1)
	assert.Contains(t, ans.Text, "a ticket type argument was expected")

	ans = dispatch(t, h, Envelope{Name: "print_field_descending_type"}, 1)
	assert.Contains(t, ans.Text, "id:1 - type:VIP")
}

func TestDispatchPersistenceFailurePropagates(t *testing.T) {
	h, mp, events := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(0), time.Time{}, errors.New("deadlock")).Once()

	_, err := h.Dispatch(context.Background(), Envelope{Name: "add", Ticket: ticketPayload()}, 1)
	require.Error(t, err)
	assert.Empty(t, *events, "failed mutations publish nothing")
}

func execute(t *testing.T, h *CommandHandler, body string, uid interface{}) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != nil {
		c.Set(middleware.CtxUserID, uid)
	}
	require.NoError(t, h.Execute(c))
	return rec
}

func TestExecuteHTTP(t *testing.T) {
	h, mp, _ := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(7)).
		Return(int64(1), time.Now(), nil).Once()

	body, err := json.Marshal(Envelope{V: 1, Name: "add", Ticket: ticketPayload()})
	require.NoError(t, err)

	rec := execute(t, h, string(body), uint64(7))
	assert.Equal(t, http.StatusOK, rec.Code)
	var ans Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
	assert.Equal(t, "ticket added", ans.Text)
	assert.True(t, ans.System)
}

func TestExecuteRejectsUnknownVersion(t *testing.T) {
	h, _, _ := newHandler()
	rec := execute(t, h, `{"v":2,"name":"show"}`, uint64(1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported envelope version 2")
}

func TestExecuteRequiresIdentity(t *testing.T) {
	h, _, _ := newHandler()
	rec := execute(t, h, `{"v":1,"name":"show"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExecuteMapsStorageFailureTo500(t *testing.T) {
	h, mp, _ := newHandler()
	mp.On("Insert", mock.Anything, mock.Anything, uint64(1)).
		Return(int64(0), time.Time{}, errors.New("connection lost")).Once()

	body, err := json.Marshal(Envelope{V: 1, Name: "add", Ticket: ticketPayload()})
	require.NoError(t, err)
	rec := execute(t, h, string(body), uint64(1))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage failure, nothing was changed")
}
