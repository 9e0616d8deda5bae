package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/casbridge/casbridge/internal/core"
)

const (
	tokenDir  = "tokens"
	ticketDir = "tickets"

	recordSuffix = ".json"
)

var _ core.Store = (*FileStore)(nil)

// FileStore is the reference store backend: one file per key under a base
// directory, split into tokens/ and tickets/. Key names are hex-encoded so
// arbitrary ticket and token ids stay path-safe.
//
// Replacement writes a temp file in the same directory and renames it over
// the old record, so readers never observe a torn write or a
// delete-then-recreate gap.
type FileStore struct {
	base  string
	codec core.RecordCodec
}

func NewFileStore(base string, codec core.RecordCodec) (*FileStore, error) {
	for _, sub := range []string{tokenDir, ticketDir} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return &FileStore{base: base, codec: codec}, nil
}

func (s *FileStore) path(sub, id string) string {
	return filepath.Join(s.base, sub, hex.EncodeToString([]byte(id))+recordSuffix)
}

func (s *FileStore) PutToken(_ context.Context, record core.TokenRecord) error {
	data, err := s.codec.EncodeToken(record)
	if err != nil {
		return err
	}
	return s.create("put_token", s.path(tokenDir, record.TokenID), record.TokenID, data)
}

func (s *FileStore) GetToken(_ context.Context, tokenID string) (core.TokenRecord, error) {
	data, err := s.read("get_token", s.path(tokenDir, tokenID), tokenID)
	if err != nil {
		return core.TokenRecord{}, err
	}
	record, err := s.codec.DecodeToken(data)
	if err != nil {
		return core.TokenRecord{}, withKey(err, tokenID)
	}
	return record, nil
}

func (s *FileStore) ReplaceToken(_ context.Context, record core.TokenRecord) error {
	path := s.path(tokenDir, record.TokenID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ErrNotFound
		}
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}

	data, err := s.codec.EncodeToken(record)
	if err != nil {
		return err
	}

	// write-then-rename keeps the swap atomic for concurrent readers
	tmp, err := os.CreateTemp(filepath.Dir(path), ".replace-*")
	if err != nil {
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return core.StorageError{Op: "replace_token", Key: record.TokenID, Wrapped: err}
	}
	return nil
}

func (s *FileStore) DeleteToken(_ context.Context, tokenID string) error {
	return s.remove("delete_token", s.path(tokenDir, tokenID), tokenID)
}

func (s *FileStore) PutTicket(_ context.Context, ticketID string, ref core.TicketRef) error {
	data, err := s.codec.EncodeTicket(ref)
	if err != nil {
		return err
	}
	return s.create("put_ticket", s.path(ticketDir, ticketID), ticketID, data)
}

func (s *FileStore) GetTicket(_ context.Context, ticketID string) (core.TicketRef, error) {
	data, err := s.read("get_ticket", s.path(ticketDir, ticketID), ticketID)
	if err != nil {
		return core.TicketRef{}, err
	}
	ref, err := s.codec.DecodeTicket(data)
	if err != nil {
		return core.TicketRef{}, withKey(err, ticketID)
	}
	return ref, nil
}

func (s *FileStore) DeleteTicket(_ context.Context, ticketID string) error {
	return s.remove("delete_ticket", s.path(ticketDir, ticketID), ticketID)
}

func (s *FileStore) ListTokenIDs(_ context.Context) ([]string, error) {
	return s.list("list_tokens", tokenDir)
}

func (s *FileStore) ListTicketIDs(_ context.Context) ([]string, error) {
	return s.list("list_tickets", ticketDir)
}

func (s *FileStore) create(op, path, key string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return core.ErrAlreadyExists
		}
		return core.StorageError{Op: op, Key: key, Wrapped: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return core.StorageError{Op: op, Key: key, Wrapped: err}
	}
	if err := f.Close(); err != nil {
		return core.StorageError{Op: op, Key: key, Wrapped: err}
	}
	return nil
}

func (s *FileStore) read(op, path, key string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ErrNotFound
		}
		return nil, core.StorageError{Op: op, Key: key, Wrapped: err}
	}
	return data, nil
}

// remove is idempotent: a missing key is not an error, so the reaper can
// retry deletions without special-casing records swept in the meantime.
func (s *FileStore) remove(op, path, key string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return core.StorageError{Op: op, Key: key, Wrapped: err}
	}
	return nil
}

func (s *FileStore) list(op, sub string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.base, sub))
	if err != nil {
		return nil, core.StorageError{Op: op, Wrapped: err}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSuffix(name, recordSuffix))
		if err != nil {
			// foreign file, not one of ours
			continue
		}
		ids = append(ids, string(raw))
	}
	return ids, nil
}

// withKey attaches the store key to a DecodeError produced by the codec.
func withKey(err error, key string) error {
	var decodeErr core.DecodeError
	if errors.As(err, &decodeErr) {
		decodeErr.Key = key
		return decodeErr
	}
	return err
}
