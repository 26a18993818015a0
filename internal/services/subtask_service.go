package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/cache"
	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

type subtaskServiceImpl struct {
	logger zerolog.Logger
	store  storage.Store
	gate   OwnershipGate
	boards cache.BoardCache
}

func NewSubtaskService(
	logger zerolog.Logger,
	store storage.Store,
	boards cache.BoardCache,
) SubtaskService {
	return &subtaskServiceImpl{
		logger: logger,
		store:  store,
		gate:   NewOwnershipGate(logger),
		boards: boards,
	}
}

func (s *subtaskServiceImpl) ReplaceAll(
	ctx context.Context,
	userID string,
	cardID int64,
	incoming []models.SubtaskInput,
) ([]models.Subtask, error) {
	if err := validateSubtaskInputs(cardID, incoming); err != nil {
		s.logger.Error().
			Err(err).
			Int64("card_id", cardID).
			Msg("invalid subtask set")
		return nil, err
	}

	var (
		result   []models.Subtask
		boardIDs []int64
		deleted  int
		inserted int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindCard, []int64{cardID}); err != nil {
			return err
		}

		storedIDs, err := tx.SubtaskIDs(ctx, cardID)
		if err != nil {
			return &StorageError{Op: "select subtask ids", Err: err}
		}
		existing := make(map[int64]struct{}, len(storedIDs))
		for _, id := range storedIDs {
			existing[id] = struct{}{}
		}

		kept := make(map[int64]struct{}, len(incoming))
		for _, in := range incoming {
			if in.ID != nil {
				kept[*in.ID] = struct{}{}
			}
		}

		var omitted []int64
		for _, id := range storedIDs {
			if _, ok := kept[id]; !ok {
				omitted = append(omitted, id)
			}
		}
		if err = tx.DeleteSubtasks(ctx, cardID, omitted); err != nil {
			return &StorageError{Op: "delete omitted subtasks", Err: err}
		}
		deleted = len(omitted)

		now := time.Now()
		for i, in := range incoming {
			subtask := models.Subtask{
				CardID:      cardID,
				Title:       in.Title,
				IsCompleted: in.IsCompleted,
				Order:       i,
				UpdatedAt:   now,
			}

			if in.ID != nil {
				if _, ok := existing[*in.ID]; ok {
					subtask.ID = *in.ID
					if err = tx.UpdateSubtask(ctx, &subtask); err != nil {
						return &StorageError{Op: "update subtask " + strconv.FormatInt(subtask.ID, 10), Err: err}
					}
					continue
				}
			}

			subtask.CreatedAt = now
			if err = tx.InsertSubtask(ctx, &subtask); err != nil {
				return &StorageError{Op: "insert subtask", Err: err}
			}
			if err = tx.InsertOwner(ctx, storage.KindSubtask, subtask.ID, userID); err != nil {
				return &StorageError{Op: "insert subtask owner", Err: err}
			}
			inserted++
		}

		result, err = tx.ListSubtasks(ctx, cardID)
		if err != nil {
			return &StorageError{Op: "select subtasks", Err: err}
		}
		boardIDs, err = tx.BoardIDsByCards(ctx, []int64{cardID})
		if err != nil {
			return &StorageError{Op: "select card board", Err: err}
		}
		return nil
	})
	if err != nil {
		err = wrapTxErr("replace subtasks", err)
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Int64("card_id", cardID).
			Msg("failed to replace subtasks")
		return nil, err
	}
	s.logger.Debug().
		Int64("card_id", cardID).
		Int("deleted", deleted).
		Int("inserted", inserted).
		Int("total", len(result)).
		Msg("replaced subtasks")

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Str("user_id", userID).
		Int64("card_id", cardID).
		Msg("replaced subtasks")
	return result, nil
}

func (s *subtaskServiceImpl) List(ctx context.Context, userID string, cardID int64) ([]models.Subtask, error) {
	if err := validateID("card_id", cardID); err != nil {
		return nil, err
	}

	var subtasks []models.Subtask
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindCard, []int64{cardID}); err != nil {
			return err
		}
		var err error
		subtasks, err = tx.ListSubtasks(ctx, cardID)
		return err
	})
	if err != nil {
		err = wrapTxErr("list subtasks", err)
		s.logger.Error().
			Err(err).
			Int64("card_id", cardID).
			Msg("failed to list subtasks")
		return nil, err
	}

	s.logger.Debug().
		Int64("card_id", cardID).
		Int("count", len(subtasks)).
		Msg("selected subtasks")
	return subtasks, nil
}

func (s *subtaskServiceImpl) Add(ctx context.Context, userID string, cardID int64, title string) (*models.Subtask, error) {
	if err := validateID("card_id", cardID); err != nil {
		return nil, err
	}
	if err := validateTitle("title", title); err != nil {
		return nil, err
	}

	now := time.Now()
	subtask := &models.Subtask{
		CardID:    cardID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var boardIDs []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindCard, []int64{cardID}); err != nil {
			return err
		}

		order, err := tx.NextSubtaskOrder(ctx, cardID)
		if err != nil {
			return err
		}
		subtask.Order = order

		if err = tx.InsertSubtask(ctx, subtask); err != nil {
			return err
		}
		if err = tx.InsertOwner(ctx, storage.KindSubtask, subtask.ID, userID); err != nil {
			return err
		}
		boardIDs, err = tx.BoardIDsByCards(ctx, []int64{cardID})
		return err
	})
	if err != nil {
		err = wrapTxErr("add subtask", err)
		s.logger.Error().
			Err(err).
			Int64("card_id", cardID).
			Msg("failed to add subtask")
		return nil, err
	}

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Int64("card_id", cardID).
		Int64("subtask_id", subtask.ID).
		Msg("added subtask")
	return subtask, nil
}

func validateSubtaskInputs(cardID int64, incoming []models.SubtaskInput) error {
	if err := validateID("card_id", cardID); err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(incoming))
	for i, in := range incoming {
		prefix := "subtasks[" + strconv.Itoa(i) + "]."
		if err := validateTitle(prefix+"title", in.Title); err != nil {
			return err
		}
		if in.ID == nil {
			continue
		}
		if err := validateID(prefix+"id", *in.ID); err != nil {
			return err
		}
		if _, ok := seen[*in.ID]; ok {
			return &ValidationError{Field: prefix + "id", Reason: "duplicates an earlier entry"}
		}
		seen[*in.ID] = struct{}{}
	}
	return nil
}
