package client

import (
	"context"
	"time"

	"github.com/casbridge/casbridge/internal/api"
	"github.com/casbridge/casbridge/internal/backchannel"
	"github.com/casbridge/casbridge/internal/core"
)

// LoginOptions carries the correlation data for a completed SSO login.
type LoginOptions struct {
	// TicketID is the SSO ticket the authority issued for this login.
	TicketID string

	// TokenID is the id of the bearer token the application issued.
	TokenID string

	// ExpiresAt is the bearer token's natural expiry.
	ExpiresAt time.Time

	Subject string

	// Attributes are the validated principal attributes, consulted by
	// the server's login policy if one is configured.
	Attributes map[string]any
}

// Login registers a completed SSO login with the bridge.
func (c *Client) Login(ctx context.Context, opts LoginOptions) (string, error) {
	payload := api.LoginPayload{
		TicketID:   opts.TicketID,
		TokenID:    opts.TokenID,
		ExpiresAt:  opts.ExpiresAt,
		Subject:    opts.Subject,
		Attributes: opts.Attributes,
	}
	return c.post(ctx, c.url().
		setPath(api.LoginRoute).
		build(), payload, nil)
}

// Validate checks whether a bearer token is still acceptable. Callers
// must treat an error as "do not accept", never as "probably fine".
func (c *Client) Validate(ctx context.Context, tokenID string) (core.Validity, string, error) {
	var resp api.ValidateResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.ValidateRoute).
		setPathParam("tokenId", tokenID).
		build(), &resp)
	if err != nil {
		return core.ValidityUnknown, correlation, err
	}
	return core.ParseValidity(resp.Validity), correlation, nil
}

// Refresh moves a token's expiry after a silent token rotation.
func (c *Client) Refresh(ctx context.Context, tokenID string, expiresAt time.Time) (string, error) {
	payload := api.RefreshPayload{
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}
	return c.post(ctx, c.url().
		setPath(api.RefreshRoute).
		build(), payload, nil)
}

// BackchannelLogout sends a SAML LogoutRequest for the given ticket, the
// same wire format a CAS server posts on single logout. It reports the
// invalidated token id, or empty if the ticket was unknown.
func (c *Client) BackchannelLogout(ctx context.Context, ticketID, nameID string) (string, string, error) {
	xml, err := backchannel.Build(ticketID, nameID)
	if err != nil {
		return "", "", err
	}

	req, err := newXMLRequest(ctx, c.url().
		setPath(api.BackchannelLogoutRoute).
		build(), xml)
	if err != nil {
		return "", "", err
	}

	var resp api.LogoutResponse
	correlation, err := c.do(req, &resp)
	return resp.TokenID, correlation, err
}
