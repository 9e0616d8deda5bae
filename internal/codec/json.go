package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/casbridge/casbridge/internal/core"
)

var _ core.RecordCodec = JSON{}

// JSON encodes records as JSON documents, one per durable key. Timestamps
// are stored as Unix seconds so that records survive serialization with
// second resolution regardless of the platform clock.
type JSON struct{}

type tokenDocument struct {
	TokenID   string `json:"token_id"`
	ExpiresAt int64  `json:"expires_at"`
	Invalid   bool   `json:"invalid"`
	Subject   string `json:"subject,omitempty"`
}

type ticketDocument struct {
	TokenID string `json:"token_id"`
}

func (JSON) EncodeToken(record core.TokenRecord) ([]byte, error) {
	return json.Marshal(tokenDocument{
		TokenID:   record.TokenID,
		ExpiresAt: record.ExpiresAt.Unix(),
		Invalid:   record.Invalid,
		Subject:   record.Subject,
	})
}

func (JSON) DecodeToken(data []byte) (core.TokenRecord, error) {
	var doc tokenDocument
	if err := strictUnmarshal(data, &doc); err != nil {
		return core.TokenRecord{}, core.DecodeError{Wrapped: err}
	}
	if doc.TokenID == "" {
		return core.TokenRecord{}, core.DecodeError{Wrapped: errors.New("missing token id")}
	}
	return core.TokenRecord{
		TokenID:   doc.TokenID,
		ExpiresAt: time.Unix(doc.ExpiresAt, 0),
		Invalid:   doc.Invalid,
		Subject:   doc.Subject,
	}, nil
}

func (JSON) EncodeTicket(ref core.TicketRef) ([]byte, error) {
	return json.Marshal(ticketDocument{TokenID: ref.TokenID})
}

func (JSON) DecodeTicket(data []byte) (core.TicketRef, error) {
	var doc ticketDocument
	if err := strictUnmarshal(data, &doc); err != nil {
		return core.TicketRef{}, core.DecodeError{Wrapped: err}
	}
	if doc.TokenID == "" {
		return core.TicketRef{}, core.DecodeError{Wrapped: errors.New("missing token id")}
	}
	return core.TicketRef{TokenID: doc.TokenID}, nil
}

// strictUnmarshal rejects unknown fields so that a foreign JSON file in
// the store directory fails decoding instead of producing a half-empty
// record.
func strictUnmarshal(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("extra data after record")
	}
	return nil
}
