package backchannel

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogoutRequest is the SAML-style notification a CAS server posts to each
// registered service when a single-sign-on session ends. The only field
// the bridge acts on is SessionIndex: the ticket id of the login being
// terminated.
type LogoutRequest struct {
	XMLName      xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol LogoutRequest"`
	ID           string   `xml:"ID,attr"`
	Version      string   `xml:"Version,attr"`
	IssueInstant string   `xml:"IssueInstant,attr"`
	NameID       string   `xml:"urn:oasis:names:tc:SAML:2.0:assertion NameID"`
	SessionIndex string   `xml:"SessionIndex"`
}

// Parse extracts a logout request from its XML form. A request without a
// session index is rejected: there is nothing to correlate it with.
func Parse(data []byte) (*LogoutRequest, error) {
	var req LogoutRequest
	if err := xml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing logout request: %w", err)
	}
	if req.SessionIndex == "" {
		return nil, errors.New("logout request carries no session index")
	}
	return &req, nil
}

// Build produces the XML form of a logout request for the given ticket.
// Used by the CLI and tests to emit the same payload a CAS server would.
func Build(ticketID, nameID string) ([]byte, error) {
	if ticketID == "" {
		return nil, errors.New("ticket id must not be empty")
	}
	req := LogoutRequest{
		ID:           "LR-" + uuid.NewString(),
		Version:      "2.0",
		IssueInstant: time.Now().UTC().Format(time.RFC3339),
		NameID:       nameID,
		SessionIndex: ticketID,
	}
	data, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling logout request: %w", err)
	}
	return data, nil
}
