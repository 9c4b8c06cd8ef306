// Package collection owns the in-memory working set of tickets and
// keeps it coherent with the relational store.  Every mutation runs
// inside one store-wide critical section that spans both the database
// transaction and the cache update, so no caller can ever observe a
// ticket that is committed but not cached, or cached but not
// committed.  Reads are served from the cache alone and always
// reflect the latest committed mutation.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avoronov/ticket-directory/internal/model"
)

// Routine, user-facing outcomes.  Persistence failures are anything
// else and come back wrapped from the Persistence implementation.
var (
	// ErrNotOwner means the ticket exists but was created by a
	// different user; the mutation is refused before any storage
	// round-trip.
	ErrNotOwner = errors.New("ticket belongs to another user")
	// ErrNotFound means no ticket with the requested id exists.
	ErrNotFound = errors.New("no ticket with that id")
	// ErrEmpty distinguishes "remove from an empty collection" from
	// an out-of-range index.
	ErrEmpty = errors.New("collection is empty")
	// ErrIndexRange means the index exceeds the collection bounds.
	ErrIndexRange = errors.New("index out of range")
)

// Persistence is the slice of the repository layer the store needs.
// Implementations must be transactional per call: a nil return means
// committed, anything else means fully rolled back.
type Persistence interface {
	Insert(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (int64, time.Time, error)
	Update(ctx context.Context, b *model.TicketBuilder, id int64, ownerID uint64) error
	Delete(ctx context.Context, id int64, ownerID uint64) error
	DeleteMany(ctx context.Context, ids []int64, ownerID uint64) error
	DeleteAll(ctx context.Context) error
	LoadAll(ctx context.Context) ([]*model.Ticket, error)
}

// Store is the single authority over the cached collection.  The
// cache slice stays ordered by ascending id: Reload loads in id
// order, inserts are checked against the id watermark so appending
// keeps the order, and updates replace entries in place.
type Store struct {
	mu      sync.Mutex
	persist Persistence
	closer  io.Closer

	tickets []*model.Ticket
	byID    map[int64]int // id -> index in tickets
	lastID  int64         // highest cached id, guards insert monotonicity, reset by Reload
	created time.Time     // when this store instance was initialized
}

// NewStore builds a store over the given persistence layer.  closer,
// when non-nil, is released by Close (the shared *sql.DB in
// production).  The cache starts empty; call Reload to populate it.
func NewStore(p Persistence, closer io.Closer) *Store {
	return &Store{
		persist: p,
		closer:  closer,
		byID:    map[int64]int{},
		created: time.Now(),
	}
}

// Reload discards the cache and repopulates it from the backing
// store.  Called once at startup; calling it again is safe and simply
// rebuilds the working set.  The id watermark is reset here and
// nowhere else.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("reload collection: %w", err)
	}
	s.tickets = s.tickets[:0]
	s.byID = make(map[int64]int, len(loaded))
	s.lastID = 0
	for _, t := range loaded {
		if _, dup := s.byID[t.ID]; dup {
			return fmt.Errorf("reload collection: duplicate ticket id %d", t.ID)
		}
		s.byID[t.ID] = len(s.tickets)
		s.tickets = append(s.tickets, t)
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	return nil
}

// Close releases the backing-store connection.  The store must not
// be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Add persists a brand-new ticket and appends it to the cache.  The
// database assigns id and creation timestamp; the builder must be
// ready.  On persistence failure the cache is untouched.
func (s *Store) Add(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(ctx, b, ownerID)
}

// AddIfMax adds only when the candidate compares strictly above the
// current maximum.  An empty collection always accepts.  The maximum
// is computed and the insert performed under the same lock hold, so
// no concurrent mutation can invalidate the comparison.
func (s *Store) AddIfMax(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (*model.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !b.Ready() {
		return nil, false, model.ErrNotReady
	}
	if max := s.maxLocked(); max != nil && b.Compare(model.BuilderFromTicket(max)) <= 0 {
		return nil, false, nil
	}
	t, err := s.addLocked(ctx, b, ownerID)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// AddIfMin mirrors AddIfMax for the minimum.
func (s *Store) AddIfMin(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (*model.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !b.Ready() {
		return nil, false, model.ErrNotReady
	}
	if min := s.minLocked(); min != nil && b.Compare(model.BuilderFromTicket(min)) >= 0 {
		return nil, false, nil
	}
	t, err := s.addLocked(ctx, b, ownerID)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *Store) addLocked(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (*model.Ticket, error) {
	if !b.Ready() {
		return nil, model.ErrNotReady
	}
	id, createdAt, err := s.persist.Insert(ctx, b, ownerID)
	if err != nil {
		return nil, fmt.Errorf("persist ticket: %w", err)
	}
	b.SetID(id)
	b.SetCreatedAt(createdAt)
	t, err := b.Build(ownerID)
	if err != nil {
		return nil, err
	}
	if t.ID <= s.lastID {
		// Auto-increment never reuses or reorders ids.  Anything at or
		// below the watermark means the cache and database diverged;
		// refuse rather than break the id ordering of the cache slice.
		return nil, fmt.Errorf("non-monotonic ticket id %d, last assigned %d", t.ID, s.lastID)
	}
	s.byID[t.ID] = len(s.tickets)
	s.tickets = append(s.tickets, t)
	s.lastID = t.ID
	return t, nil
}

// Update replaces every client-supplied field of the ticket with the
// given id.  Ownership is verified against the cache before any
// storage round-trip; id, creation timestamp and owner survive the
// update unchanged.
func (s *Store) Update(ctx context.Context, b *model.TicketBuilder, id int64, ownerID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !b.Ready() {
		return nil, model.ErrNotReady
	}
	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	old := s.tickets[idx]
	if old.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if err := s.persist.Update(ctx, b, id, ownerID); err != nil {
		return nil, fmt.Errorf("persist ticket update: %w", err)
	}
	b.SetID(id)
	b.SetCreatedAt(old.CreatedAt)
	t, err := b.Build(ownerID)
	if err != nil {
		return nil, err
	}
	s.tickets[idx] = t
	return t, nil
}

// RemoveAt deletes the ticket at the given position.  Index 0 on an
// empty collection reports ErrEmpty; any other out-of-bounds index
// reports ErrIndexRange.
func (s *Store) RemoveAt(ctx context.Context, index int, ownerID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tickets) {
		if index == 0 {
			return nil, ErrEmpty
		}
		return nil, ErrIndexRange
	}
	return s.removeLocked(ctx, s.tickets[index], ownerID)
}

// RemoveByID deletes the ticket with the given id.
func (s *Store) RemoveByID(ctx context.Context, id int64, ownerID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.removeLocked(ctx, s.tickets[idx], ownerID)
}

func (s *Store) removeLocked(ctx context.Context, t *model.Ticket, ownerID uint64) (*model.Ticket, error) {
	if t.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if err := s.persist.Delete(ctx, t.ID, ownerID); err != nil {
		return nil, fmt.Errorf("persist ticket delete: %w", err)
	}
	s.dropFromCache(t.ID)
	return t, nil
}

// RemoveLower deletes every ticket owned by ownerID that compares
// strictly below the threshold builder and returns how many went.
// All deletions share one transaction, so a failure removes nothing.
func (s *Store) RemoveLower(ctx context.Context, b *model.TicketBuilder, ownerID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, t := range s.tickets {
		if t.OwnerID == ownerID && b.Compare(model.BuilderFromTicket(t)) > 0 {
			ids = append(ids, t.ID)
		}
	}
	if err := s.deleteManyLocked(ctx, ids, ownerID); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Clear deletes every ticket owned by ownerID and returns the count.
func (s *Store) Clear(ctx context.Context, ownerID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, t := range s.tickets {
		if t.OwnerID == ownerID {
			ids = append(ids, t.ID)
		}
	}
	if err := s.deleteManyLocked(ctx, ids, ownerID); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Store) deleteManyLocked(ctx context.Context, ids []int64, ownerID uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.persist.DeleteMany(ctx, ids, ownerID); err != nil {
		return fmt.Errorf("persist ticket delete: %w", err)
	}
	for _, id := range ids {
		s.dropFromCache(id)
	}
	return nil
}

// ClearAll wipes the entire collection regardless of owner.  Exposed
// to the operational console only.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist.DeleteAll(ctx); err != nil {
		return fmt.Errorf("persist clear-all: %w", err)
	}
	s.tickets = s.tickets[:0]
	s.byID = map[int64]int{}
	return nil
}

// dropFromCache removes one entry and reindexes the tail.  Order is
// preserved so positional removal stays meaningful.
func (s *Store) dropFromCache(id int64) {
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	s.tickets = append(s.tickets[:idx], s.tickets[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.tickets); i++ {
		s.byID[s.tickets[i].ID] = i
	}
}

// GetAll returns a snapshot of the collection ordered by id.
func (s *Store) GetAll() []*model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

// FilterContainsName returns tickets whose name contains the given
// substring, ordered by id.  The empty substring matches everything.
func (s *Store) FilterContainsName(substr string) []*model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(func(t *model.Ticket) bool {
		return strings.Contains(t.Name, substr)
	})
}

// FilterByPrice returns tickets priced exactly price, ordered by id.
func (s *Store) FilterByPrice(price int) []*model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(func(t *model.Ticket) bool {
		return t.Price == price
	})
}

// FilterLessThanPrice returns tickets priced strictly below price,
// ordered by id.
func (s *Store) FilterLessThanPrice(price int) []*model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(func(t *model.Ticket) bool {
		return t.Price < price
	})
}

// MinByVenue returns the ticket with the smallest venue capacity.
func (s *Store) MinByVenue() (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tickets) == 0 {
		return nil, ErrEmpty
	}
	min := s.tickets[0]
	for _, t := range s.tickets[1:] {
		if t.CompareVenue(min) < 0 {
			min = t
		}
	}
	return min, nil
}

// CountGreaterThanType counts tickets whose type is strictly greater
// than the given one (VIP being the greatest).
func (s *Store) CountGreaterThanType(tt model.TicketType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.Type.Rank() < tt.Rank() {
			n++
		}
	}
	return n
}

// FieldDescendingType returns the collection ordered from the least
// type to the greatest (CHEAP first, VIP last), ties broken by id.
func (s *Store) FieldDescendingType() []*model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshotLocked(nil)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type.Rank() > out[j].Type.Rank()
	})
	return out
}

// ValidID reports whether a ticket with the given id is cached.
func (s *Store) ValidID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Size returns the number of cached tickets.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Info summarizes the collection: backing type, initialization time,
// element count and the current extremes under the composite order.
func (s *Store) Info() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxT, minT := "none", "none"
	if t := s.maxLocked(); t != nil {
		maxT = t.String()
	}
	if t := s.minLocked(); t != nil {
		minT = t.String()
	}
	return fmt.Sprintf("Type - in-memory vector over MySQL\nInitialized - %s\nElements - %d\nMax element - %s\nMin element - %s",
		s.created.Format("2006-01-02 15:04:05"), len(s.tickets), maxT, minT)
}

// snapshotLocked copies matching tickets in id order.  keep == nil
// keeps everything.  The cache is id-ordered by construction, so the
// copy needs no extra sort.
func (s *Store) snapshotLocked(keep func(*model.Ticket) bool) []*model.Ticket {
	out := make([]*model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if keep == nil || keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) maxLocked() *model.Ticket {
	var max *model.Ticket
	for _, t := range s.tickets {
		if max == nil || t.Compare(max) > 0 {
			max = t
		}
	}
	return max
}

func (s *Store) minLocked() *model.Ticket {
	var min *model.Ticket
	for _, t := range s.tickets {
		if min == nil || t.Compare(min) < 0 {
			min = t
		}
	}
	return min
}
