package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/cache"
)

// wrapTxErr keeps typed errors intact and classifies anything else
// coming out of a transaction as a storage failure.
func wrapTxErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func invalidateBoards(ctx context.Context, logger zerolog.Logger, boards cache.BoardCache, boardIDs []int64) {
	if len(boardIDs) == 0 {
		return
	}
	if err := boards.Invalidate(ctx, boardIDs...); err != nil {
		logger.Error().
			Err(err).
			Ints64("board_ids", boardIDs).
			Msg("failed to invalidate board snapshots")
	}
}
