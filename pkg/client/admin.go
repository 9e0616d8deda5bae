package client

import (
	"context"

	"github.com/casbridge/casbridge/internal/api"
	"github.com/casbridge/casbridge/internal/core"
)

// Sweep triggers a reclamation pass on the server and reports how many
// entries it removed.
func (c *Client) Sweep(ctx context.Context) (int, string, error) {
	var resp api.SweepResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.SweepRoute).
		build(), nil, &resp)
	return resp.Removed, correlation, err
}

// ListSessions retrieves all tracked token records from the server.
func (c *Client) ListSessions(ctx context.Context) ([]core.TokenRecord, string, error) {
	var resp []core.TokenRecord
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListSessionsRoute).
		build(), &resp)
	return resp, correlation, err
}

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	TicketID      string
	TokenID       string
}

// ListAudits retrieves the latest audit entries from the server, limited to the specified number.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.TicketID != "" {
		ub = ub.addQueryParam("ticket_id", opts.TicketID)
	}
	if opts.TokenID != "" {
		ub = ub.addQueryParam("token_id", opts.TokenID)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
