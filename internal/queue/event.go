// Package queue defines message payloads exchanged over the message
// broker.
package queue

// TicketMutatedEvent is published after a mutation commits.  It
// carries enough context for downstream consumers (audit, analytics,
// notifications) without another query against the primary database.
// Op is one of add, update, remove, remove_lower, clear.
type TicketMutatedEvent struct {
	Op       string `json:"op"`
	TicketID int64  `json:"ticket_id,omitempty"`
	OwnerID  uint64 `json:"owner_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Price    int    `json:"price,omitempty"`
	Type     string `json:"type,omitempty"`
	Removed  int    `json:"removed,omitempty"`
	At       string `json:"at"`
}
