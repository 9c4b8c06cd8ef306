package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avoronov/ticket-directory/internal/collection"
	"github.com/avoronov/ticket-directory/internal/middleware"
	"github.com/avoronov/ticket-directory/internal/model"
	"github.com/avoronov/ticket-directory/internal/queue"
	queue_publisher "github.com/avoronov/ticket-directory/internal/service"
)

// EnvelopeVersion is the current command envelope revision.  The
// version field exists so client and server can evolve independently;
// unknown revisions are rejected before any argument is inspected.
const EnvelopeVersion = 1

// Envelope is the decoded command sent by a client.  Ticket fields
// travel as raw strings and are validated one by one through the
// builder, so the response can name the exact field that failed.
// Identity never rides in the envelope; it comes from the verified
// token.
type Envelope struct {
	V      int               `json:"v"`
	Name   string            `json:"name"`
	Args   []string          `json:"args"`
	Ticket map[string]string `json:"ticket"`
}

// Answer is the command result returned to the client.  System
// answers report the outcome of a mutation or an auth action;
// non-system answers carry query output or a routine refusal.
type Answer struct {
	Text   string `json:"text"`
	System bool   `json:"system"`
}

// ticketFields maps envelope keys to builder setters in validation
// order.
var ticketFields = []struct {
	key string
	set func(b *model.TicketBuilder, raw string) error
}{
	{"name", (*model.TicketBuilder).SetName},
	{"x", (*model.TicketBuilder).SetX},
	{"y", (*model.TicketBuilder).SetY},
	{"price", (*model.TicketBuilder).SetPrice},
	{"type", (*model.TicketBuilder).SetType},
	{"venue_capacity", (*model.TicketBuilder).SetVenueCapacity},
	{"venue_type", (*model.TicketBuilder).SetVenueType},
	{"street", (*model.TicketBuilder).SetStreet},
	{"zip_code", (*model.TicketBuilder).SetZipCode},
}

// CommandHandler maps command names onto collection operations.  It
// is the only place that resolves the authenticated identity into the
// owner tag passed to mutating calls.
type CommandHandler struct {
	Store *collection.Store

	// publish is swapped out in tests; the default sends mutation
	// events to RabbitMQ and ignores failures.
	publish func(ctx context.Context, ev queue.TicketMutatedEvent)
}

func NewCommandHandler(s *collection.Store) *CommandHandler {
	return &CommandHandler{
		Store: s,
		publish: func(ctx context.Context, ev queue.TicketMutatedEvent) {
			_ = queue_publisher.PublishTicketMutated(ctx, ev)
		},
	}
}

// Execute decodes the envelope and runs the command.  Routine
// outcomes (including refusals) are HTTP 200 with an Answer;
// malformed envelopes are 400; persistence failures are logged and
// become 500 with a generic Answer, since the transaction was rolled
// back and the collection is unchanged.
func (h *CommandHandler) Execute(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var env Envelope
	if err := c.Bind(&env); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if env.V != EnvelopeVersion {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unsupported envelope version %d", env.V)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ans, err := h.Dispatch(ctx, env, uid)
	if err != nil {
		log.Printf("command %s: %v", env.Name, err)
		return c.JSON(http.StatusInternalServerError, Answer{Text: "storage failure, nothing was changed", System: false})
	}
	return c.JSON(http.StatusOK, ans)
}

// Dispatch runs one command for the given owner.  The returned error
// is non-nil only for persistence failures; every expected outcome is
// encoded in the Answer.
func (h *CommandHandler) Dispatch(ctx context.Context, env Envelope, ownerID uint64) (Answer, error) {
	switch env.Name {
	case "show":
		return listAnswer(h.Store.GetAll()), nil

	case "info":
		return Answer{Text: h.Store.Info()}, nil

	case "min_by_venue":
		t, err := h.Store.MinByVenue()
		if err != nil {
			return Answer{Text: "collection is empty"}, nil
		}
		return Answer{Text: t.String()}, nil

	case "filter_contains_name":
		substr := ""
		if len(env.Args) > 0 {
			substr = env.Args[0]
		}
		return listAnswer(h.Store.FilterContainsName(substr)), nil

	case "filter_by_price":
		price, ok := intArg(env.Args, 0)
		if !ok {
			return Answer{Text: "an integer price argument was expected"}, nil
		}
		return listAnswer(h.Store.FilterByPrice(price)), nil

	case "filter_less_than_price":
		price, ok := intArg(env.Args, 0)
		if !ok {
			return Answer{Text: "an integer price argument was expected"}, nil
		}
		return listAnswer(h.Store.FilterLessThanPrice(price)), nil

	case "count_greater_than_type":
		if len(env.Args) == 0 || !model.ValidTicketType(env.Args[0]) {
			return Answer{Text: fmt.Sprintf("a ticket type argument was expected, one of %v", model.TicketTypes())}, nil
		}
		n := h.Store.CountGreaterThanType(model.TicketType(env.Args[0]))
		return Answer{Text: strconv.Itoa(n)}, nil

	case "print_field_descending_type":
		var sb strings.Builder
		for _, t := range h.Store.FieldDescendingType() {
			fmt.Fprintf(&sb, "id:%d - type:%s\n", t.ID, t.Type)
		}
		return Answer{Text: sb.String()}, nil

	case "add":
		b, ferr := buildTicket(env.Ticket)
		if ferr != nil {
			return Answer{Text: ferr.Error()}, nil
		}
		t, err := h.Store.Add(ctx, b, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		h.publishMutation(ctx, "add", t)
		return Answer{Text: "ticket added", System: true}, nil

	case "add_if_max", "add_if_min":
		b, ferr := buildTicket(env.Ticket)
		if ferr != nil {
			return Answer{Text: ferr.Error()}, nil
		}
		var (
			t     *model.Ticket
			added bool
			err   error
		)
		if env.Name == "add_if_max" {
			t, added, err = h.Store.AddIfMax(ctx, b, ownerID)
		} else {
			t, added, err = h.Store.AddIfMin(ctx, b, ownerID)
		}
		if err != nil {
			return h.mutationFailure(err)
		}
		if !added {
			return Answer{Text: "ticket not added"}, nil
		}
		h.publishMutation(ctx, "add", t)
		return Answer{Text: "ticket added", System: true}, nil

	case "update":
		id, ok := int64Arg(env.Args, 0)
		if !ok {
			return Answer{Text: "an integer id argument was expected"}, nil
		}
		b, ferr := buildTicket(env.Ticket)
		if ferr != nil {
			return Answer{Text: ferr.Error()}, nil
		}
		t, err := h.Store.Update(ctx, b, id, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		h.publishMutation(ctx, "update", t)
		return Answer{Text: fmt.Sprintf("ticket %d updated", id), System: true}, nil

	case "remove_first":
		t, err := h.Store.RemoveAt(ctx, 0, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		h.publishMutation(ctx, "remove", t)
		return Answer{Text: "first ticket removed", System: true}, nil

	case "remove_at":
		idx, ok := intArg(env.Args, 0)
		if !ok || idx < 0 {
			return Answer{Text: "a non-negative integer index was expected"}, nil
		}
		t, err := h.Store.RemoveAt(ctx, idx, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		h.publishMutation(ctx, "remove", t)
		return Answer{Text: fmt.Sprintf("ticket at index %d removed", idx), System: true}, nil

	case "remove_by_id":
		id, ok := int64Arg(env.Args, 0)
		if !ok {
			return Answer{Text: "an integer id argument was expected"}, nil
		}
		t, err := h.Store.RemoveByID(ctx, id, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		h.publishMutation(ctx, "remove", t)
		return Answer{Text: fmt.Sprintf("ticket %d removed", id), System: true}, nil

	case "remove_lower":
		b, ferr := buildTicket(env.Ticket)
		if ferr != nil {
			return Answer{Text: ferr.Error()}, nil
		}
		n, err := h.Store.RemoveLower(ctx, b, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		if n > 0 {
			h.publish(ctx, queue.TicketMutatedEvent{
				Op: "remove_lower", OwnerID: ownerID, Removed: n,
				At: time.Now().UTC().Format(time.RFC3339),
			})
		}
		return Answer{Text: fmt.Sprintf("removed %d tickets", n), System: true}, nil

	case "clear":
		n, err := h.Store.Clear(ctx, ownerID)
		if err != nil {
			return h.mutationFailure(err)
		}
		if n > 0 {
			h.publish(ctx, queue.TicketMutatedEvent{
				Op: "clear", OwnerID: ownerID, Removed: n,
				At: time.Now().UTC().Format(time.RFC3339),
			})
		}
		return Answer{Text: "all your tickets were removed", System: true}, nil
	}
	return Answer{Text: "invalid command"}, nil
}

// mutationFailure classifies a store error.  Ownership, missing-id
// and bounds problems are routine answers; anything else is a
// persistence failure that propagates to the transport as an error.
func (h *CommandHandler) mutationFailure(err error) (Answer, error) {
	switch {
	case errors.Is(err, collection.ErrNotOwner):
		return Answer{Text: "you can only modify tickets you created"}, nil
	case errors.Is(err, collection.ErrNotFound):
		return Answer{Text: "invalid id"}, nil
	case errors.Is(err, collection.ErrEmpty):
		return Answer{Text: "collection is empty"}, nil
	case errors.Is(err, collection.ErrIndexRange):
		return Answer{Text: "index out of range"}, nil
	case errors.Is(err, model.ErrNotReady):
		return Answer{Text: model.ErrNotReady.Error()}, nil
	}
	return Answer{}, err
}

func (h *CommandHandler) publishMutation(ctx context.Context, op string, t *model.Ticket) {
	h.publish(ctx, queue.TicketMutatedEvent{
		Op:       op,
		TicketID: t.ID,
		OwnerID:  t.OwnerID,
		Name:     t.Name,
		Price:    t.Price,
		Type:     string(t.Type),
		At:       time.Now().UTC().Format(time.RFC3339),
	})
}

// buildTicket feeds the raw payload through a builder.  The first
// failing field aborts with an error naming it; a missing field is
// reported the same way so scripted clients learn exactly what to
// fix.
func buildTicket(payload map[string]string) (*model.TicketBuilder, error) {
	b := model.NewTicketBuilder()
	for _, f := range ticketFields {
		raw, ok := payload[f.key]
		if !ok {
			return nil, fmt.Errorf("field %q is required", f.key)
		}
		if err := f.set(b, raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	return b, nil
}

func listAnswer(ts []*model.Ticket) Answer {
	var sb strings.Builder
	for _, t := range ts {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return Answer{Text: sb.String()}
}

func intArg(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, false
	}
	return n, true
}

func int64Arg(args []string, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
