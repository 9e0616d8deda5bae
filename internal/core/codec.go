package core

// RecordCodec converts records to and from their durable byte form. The
// wire format is kept out of the store's control flow so it can be swapped
// without touching storage.
type RecordCodec interface {
	// EncodeToken serializes a token record. Total for any valid record.
	EncodeToken(record TokenRecord) ([]byte, error)

	// DecodeToken parses a token record. A structurally well-formed
	// payload with a missing or empty token id is a DecodeError: a blob
	// without a valid id must never be mistaken for a legitimate entry.
	DecodeToken(data []byte) (TokenRecord, error)

	// EncodeTicket serializes a ticket-index payload.
	EncodeTicket(ref TicketRef) ([]byte, error)

	// DecodeTicket parses a ticket-index payload. An empty token id is a
	// DecodeError.
	DecodeTicket(data []byte) (TicketRef, error)
}
