package store

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/casbridge/casbridge/internal/core"
)

const (
	tokenPrefix  = "casbridge:token:"
	ticketPrefix = "casbridge:ticket:"
)

var _ core.Store = (*RedisStore)(nil)

// RedisStore keeps records in Redis under prefixed keys. Keys carry no
// TTL on purpose: reclamation belongs to the reaper, and letting Redis
// expire an invalidated record early would turn "invalidated" into
// "unknown" before the token's natural expiry.
type RedisStore struct {
	client *redis.Client
	codec  core.RecordCodec
}

func NewRedisStore(client *redis.Client, codec core.RecordCodec) *RedisStore {
	return &RedisStore{client: client, codec: codec}
}

func (s *RedisStore) PutToken(ctx context.Context, record core.TokenRecord) error {
	data, err := s.codec.EncodeToken(record)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, tokenPrefix+record.TokenID, data, 0).Result()
	if err != nil {
		return core.StorageError{Op: "put_token", Key: record.TokenID, Wrapped: err}
	}
	if !ok {
		return core.ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) GetToken(ctx context.Context, tokenID string) (core.TokenRecord, error) {
	data, err := s.client.Get(ctx, tokenPrefix+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.TokenRecord{}, core.ErrNotFound
		}
		return core.TokenRecord{}, core.StorageError{Op: "get_token", Key: tokenID, Wrapped: err}
	}
	record, err := s.codec.DecodeToken(data)
	if err != nil {
		return core.TokenRecord{}, withKey(err, tokenID)
	}
	return record, nil
}

func (s *RedisStore) ReplaceToken(ctx context.Context, record core.TokenRecord) error {
	data, err := s.codec.EncodeToken(record)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, tokenPrefix+record.TokenID, data, 0).Result()
	if err != nil {
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}
	if !ok {
		return core.ErrNotFound
	}
	return nil
}

func (s *RedisStore) DeleteToken(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, tokenPrefix+tokenID).Err(); err != nil {
		return core.StorageError{Op: "delete_token", Key: tokenID, Wrapped: err}
	}
	return nil
}

func (s *RedisStore) PutTicket(ctx context.Context, ticketID string, ref core.TicketRef) error {
	data, err := s.codec.EncodeTicket(ref)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, ticketPrefix+ticketID, data, 0).Result()
	if err != nil {
		return core.StorageError{Op: "put_ticket", Key: ticketID, Wrapped: err}
	}
	if !ok {
		return core.ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) GetTicket(ctx context.Context, ticketID string) (core.TicketRef, error) {
	data, err := s.client.Get(ctx, ticketPrefix+ticketID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.TicketRef{}, core.ErrNotFound
		}
		return core.TicketRef{}, core.StorageError{Op: "get_ticket", Key: ticketID, Wrapped: err}
	}
	ref, err := s.codec.DecodeTicket(data)
	if err != nil {
		return core.TicketRef{}, withKey(err, ticketID)
	}
	return ref, nil
}

func (s *RedisStore) DeleteTicket(ctx context.Context, ticketID string) error {
	if err := s.client.Del(ctx, ticketPrefix+ticketID).Err(); err != nil {
		return core.StorageError{Op: "delete_ticket", Key: ticketID, Wrapped: err}
	}
	return nil
}

func (s *RedisStore) ListTokenIDs(ctx context.Context) ([]string, error) {
	return s.scan(ctx, "list_tokens", tokenPrefix)
}

func (s *RedisStore) ListTicketIDs(ctx context.Context) ([]string, error) {
	return s.scan(ctx, "list_tickets", ticketPrefix)
}

func (s *RedisStore) scan(ctx context.Context, op, prefix string) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, core.StorageError{Op: op, Wrapped: err}
	}
	return ids, nil
}
