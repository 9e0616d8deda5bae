package core

import "context"

// Store is the durable correlation store: the mapping of token id to
// TokenRecord plus the index of SSO ticket id to token id. It is the only
// component allowed to touch the underlying medium.
//
// Implementations: file-per-key store (reference), in-memory store
// (tests/dev), Redis store.
type Store interface {
	// PutToken creates a new record. It fails with ErrAlreadyExists if a
	// record with the same id exists; callers must never silently
	// overwrite, because overwriting a blacklisted record would undo a
	// logout.
	PutToken(ctx context.Context, record TokenRecord) error

	// GetToken returns the record for the given id or ErrNotFound.
	GetToken(ctx context.Context, tokenID string) (TokenRecord, error)

	// ReplaceToken swaps the stored record for an existing id. A reader
	// must never observe a record older than the one most recently
	// replaced by a completed call; a transient ErrNotFound during the
	// replace window is permitted (callers treat it as "token unknown",
	// never as "token valid").
	ReplaceToken(ctx context.Context, record TokenRecord) error

	// DeleteToken removes a record. Used by the reaper once an entry is
	// confirmed expired.
	DeleteToken(ctx context.Context, tokenID string) error

	// PutTicket creates the ticket-index entry pointing at a token id.
	PutTicket(ctx context.Context, ticketID string, ref TicketRef) error

	// GetTicket resolves a ticket id to its token reference or ErrNotFound.
	GetTicket(ctx context.Context, ticketID string) (TicketRef, error)

	// DeleteTicket removes a ticket-index entry.
	DeleteTicket(ctx context.Context, ticketID string) error

	// ListTokenIDs returns the ids of all stored token records. Each call
	// re-scans the durable medium; used only by the reaper.
	ListTokenIDs(ctx context.Context) ([]string, error)

	// ListTicketIDs returns the ids of all ticket-index entries. Same
	// contract as ListTokenIDs.
	ListTicketIDs(ctx context.Context) ([]string, error)
}
