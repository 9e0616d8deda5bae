package session

import "time"

// LoginEvent is the validated-login event handed over by the SSO protocol
// layer after it validated a service ticket against the authority and the
// relying application issued its bearer token.
type LoginEvent struct {
	// TicketID is the SSO ticket of this login transaction. It is the
	// correlation key a later back-channel logout arrives with.
	TicketID string

	// TokenID is the identity of the bearer token the relying
	// application issued for this login.
	TokenID string

	// ExpiresAt is the bearer token's natural expiry.
	ExpiresAt time.Time

	// Subject is the principal name, carried for diagnostics.
	Subject string

	// Attributes are the principal attributes supplied by the protocol
	// layer. Only consulted by the optional login policy.
	Attributes map[string]any
}
