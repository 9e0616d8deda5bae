package session

import (
	"context"
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/casbridge/casbridge/internal/core"
)

// List returns all tracked token records, sorted by token id. Corrupt
// entries are logged and skipped like in a sweep. Admin/diagnostics
// surface only; the request path never scans.
func (s *Service) List(ctx context.Context) ([]core.TokenRecord, error) {
	logger := log.Ctx(ctx)

	ids, err := s.store.ListTokenIDs(ctx)
	if err != nil {
		return nil, httpError(http.StatusInternalServerError, err)
	}

	records := make([]core.TokenRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.store.GetToken(ctx, id)
		if err != nil {
			logger.Warn().Err(err).Str("token_id", id).Msg("skipping unreadable token record")
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TokenID < records[j].TokenID
	})
	return records, nil
}
