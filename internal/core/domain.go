package core

import "time"

// TokenRecord describes one bearer token issued by the relying application.
// Records are value types: every mutation is a copy written back through the
// store, so in-memory state and the durable medium cannot diverge.
type TokenRecord struct {
	// TokenID is the opaque identity of the bearer token (e.g. the JWT ID
	// claim). It is the primary key of the token index and never changes
	// for the lifetime of a record.
	TokenID string `json:"token_id"`

	// ExpiresAt is the token's natural expiry. The token is treated as
	// expired strictly after this instant. Stored with second resolution.
	ExpiresAt time.Time `json:"expires_at"`

	// Invalid marks a token that was logged out through the back channel.
	// It only ever moves false -> true. An invalid record is kept around
	// until its natural expiry so that validity checks keep answering
	// "invalidated" instead of "unknown".
	Invalid bool `json:"invalid"`

	// Subject is the principal the token was issued to. Carried for
	// diagnostics and auditing only.
	Subject string `json:"subject,omitempty"`
}

// Expired reports whether the record's natural expiry has strictly passed.
func (r TokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Invalidated returns a copy of the record with the Invalid flag set.
func (r TokenRecord) Invalidated() TokenRecord {
	r.Invalid = true
	return r
}

// Refreshed returns a copy of the record with a new expiry. The Invalid
// flag is carried forward unchanged: a refresh must never resurrect a
// logged-out token.
func (r TokenRecord) Refreshed(expiresAt time.Time) TokenRecord {
	r.ExpiresAt = expiresAt
	return r
}

// TicketRef is the payload of a ticket-index entry: it points the SSO
// ticket id at the token the relying application issued for that login.
// It is an envelope (rather than a bare string) so that a foreign or
// corrupt entry fails decoding instead of being read as a token id.
type TicketRef struct {
	TokenID string `json:"token_id"`
}

// Validity is the verdict of a token validity check.
type Validity int

const (
	// ValidityUnknown means the store has no information about the token.
	// This is not proof of logout, only absence of information; callers
	// pick their own default-deny or default-allow policy.
	ValidityUnknown Validity = iota

	// ValidityValid means the token is registered, unexpired and not
	// logged out.
	ValidityValid

	// ValidityInvalidated means the token was explicitly logged out and
	// must be rejected even though its expiry has not passed.
	ValidityInvalidated
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// ParseValidity is the inverse of Validity.String. Unrecognized input
// maps to ValidityUnknown.
func ParseValidity(s string) Validity {
	switch s {
	case "valid":
		return ValidityValid
	case "invalidated":
		return ValidityInvalidated
	default:
		return ValidityUnknown
	}
}
