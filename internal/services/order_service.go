package services

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/cache"
	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

type orderServiceImpl struct {
	logger zerolog.Logger
	store  storage.Store
	gate   OwnershipGate
	boards cache.BoardCache
}

func NewOrderService(
	logger zerolog.Logger,
	store storage.Store,
	boards cache.BoardCache,
) OrderService {
	return &orderServiceImpl{
		logger: logger,
		store:  store,
		gate:   NewOwnershipGate(logger),
		boards: boards,
	}
}

func (s *orderServiceImpl) ReorderCards(ctx context.Context, userID string, batch []models.CardOrder) error {
	if err := validateCardOrders(batch); err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("invalid reorder batch")
		return err
	}

	cardIDs := make([]int64, len(batch))
	listIDs := make([]int64, len(batch))
	for i, o := range batch {
		cardIDs[i] = o.ID
		listIDs[i] = o.ListID
	}
	cardIDs = uniqueIDs(cardIDs)
	listIDs = uniqueIDs(listIDs)

	var boardIDs []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindCard, cardIDs); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindList, listIDs); err != nil {
			return err
		}

		sourceBoards, err := tx.BoardIDsByCards(ctx, cardIDs)
		if err != nil {
			return &StorageError{Op: "select source boards", Err: err}
		}
		targetBoards, err := tx.BoardIDsByLists(ctx, listIDs)
		if err != nil {
			return &StorageError{Op: "select target boards", Err: err}
		}
		boardIDs = uniqueIDs(append(sourceBoards, targetBoards...))

		for _, o := range batch {
			if err = tx.UpdateCardPosition(ctx, o.ID, o.Order, o.ListID); err != nil {
				s.logger.Error().
					Err(err).
					Int64("card_id", o.ID).
					Int64("list_id", o.ListID).
					Int("order", o.Order).
					Msg("failed to update card position")
				return &StorageError{Op: "update card " + strconv.FormatInt(o.ID, 10), Err: err}
			}
		}
		return nil
	})
	if err != nil {
		err = wrapTxErr("reorder cards", err)
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Int("size", len(batch)).
			Msg("failed to reorder cards")
		return err
	}
	s.logger.Debug().
		Ints64("board_ids", boardIDs).
		Msg("updated card positions")

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Str("user_id", userID).
		Int("size", len(batch)).
		Msg("reordered cards")
	return nil
}

func validateCardOrders(batch []models.CardOrder) error {
	if len(batch) == 0 {
		return &ValidationError{Field: "cards", Reason: "must not be empty"}
	}
	for i, o := range batch {
		prefix := "cards[" + strconv.Itoa(i) + "]."
		if err := validateID(prefix+"id", o.ID); err != nil {
			return err
		}
		if err := validateID(prefix+"list_id", o.ListID); err != nil {
			return err
		}
		if o.Order < 0 {
			return &ValidationError{Field: prefix + "order", Reason: "must not be negative"}
		}
	}
	return nil
}
