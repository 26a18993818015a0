package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/storage"
)

// OwnershipGate checks item ids against the ownership index.
type OwnershipGate struct {
	logger zerolog.Logger
}

func NewOwnershipGate(logger zerolog.Logger) OwnershipGate {
	return OwnershipGate{logger: logger}
}

// Authorize returns nil when userID owns every id of the given kind and
// ErrForbidden otherwise. An empty id set is always authorized. Missing
// ids and ids owned by another user are indistinguishable to the caller.
func (g OwnershipGate) Authorize(ctx context.Context, tx storage.Tx, userID string, kind storage.Kind, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	owned, err := tx.CountOwned(ctx, userID, kind, ids)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("kind", string(kind)).
			Msg("failed to count owned items")
		return &StorageError{Op: "check ownership", Err: err}
	}
	if owned != len(ids) {
		g.logger.Warn().
			Str("user_id", userID).
			Str("kind", string(kind)).
			Int("requested", len(ids)).
			Int("owned", owned).
			Msg("ownership check failed")
		return ErrForbidden
	}
	return nil
}

// uniqueIDs drops duplicates and keeps first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
