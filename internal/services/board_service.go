package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/cache"
	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

type boardServiceImpl struct {
	logger zerolog.Logger
	store  storage.Store
	gate   OwnershipGate
	boards cache.BoardCache
}

func NewBoardService(
	logger zerolog.Logger,
	store storage.Store,
	boards cache.BoardCache,
) BoardService {
	return &boardServiceImpl{
		logger: logger,
		store:  store,
		gate:   NewOwnershipGate(logger),
		boards: boards,
	}
}

func (s *boardServiceImpl) CreateBoard(ctx context.Context, userID, title string) (*models.Board, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be blank"}
	}
	if err := validateTitle("title", title); err != nil {
		return nil, err
	}

	now := time.Now()
	board := &models.Board{
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertBoard(ctx, board); err != nil {
			return err
		}
		return tx.InsertOwner(ctx, storage.KindBoard, board.ID, userID)
	})
	if err != nil {
		err = wrapTxErr("create board", err)
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to create board")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int64("board_id", board.ID).
		Msg("created board")
	return board, nil
}

func (s *boardServiceImpl) GetBoard(ctx context.Context, userID string, boardID int64) (*models.BoardView, error) {
	if err := validateID("board_id", boardID); err != nil {
		return nil, err
	}

	// taken before any storage read, so a write that commits while the
	// view loads makes the Set below a no-op
	generation, genErr := s.boards.Generation(ctx, boardID)
	if genErr != nil {
		s.logger.Warn().
			Err(genErr).
			Int64("board_id", boardID).
			Msg("failed to read board generation")
	}

	var (
		view   *models.BoardView
		cached bool
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindBoard, []int64{boardID}); err != nil {
			return err
		}

		var err error
		view, cached, err = s.boards.Get(ctx, boardID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("board_id", boardID).
				Msg("failed to read board snapshot")
		}
		if cached {
			return nil
		}

		view, err = loadBoardView(ctx, tx, boardID)
		return err
	})
	if err != nil {
		err = wrapTxErr("get board", err)
		s.logger.Error().
			Err(err).
			Int64("board_id", boardID).
			Msg("failed to get board")
		return nil, err
	}

	if cached {
		s.logger.Debug().
			Int64("board_id", boardID).
			Msg("served board from snapshot")
		return view, nil
	}
	if genErr == nil {
		stored, err := s.boards.Set(ctx, view, generation)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("board_id", boardID).
				Msg("failed to store board snapshot")
		} else if !stored {
			s.logger.Debug().
				Int64("board_id", boardID).
				Int64("generation", generation).
				Msg("skipped stale board snapshot")
		}
	}

	s.logger.Debug().
		Int64("board_id", boardID).
		Int("lists", len(view.Lists)).
		Msg("selected board")
	return view, nil
}

func loadBoardView(ctx context.Context, tx storage.Tx, boardID int64) (*models.BoardView, error) {
	board, err := tx.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	lists, err := tx.ListListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	cards, err := tx.ListCardsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	// cards come sorted by (list_id, order)
	byList := make(map[int64][]models.Card, len(lists))
	for _, c := range cards {
		byList[c.ListID] = append(byList[c.ListID], c)
	}

	view := &models.BoardView{
		Board: *board,
		Lists: make([]models.ListView, 0, len(lists)),
	}
	for _, l := range lists {
		listCards := byList[l.ID]
		if listCards == nil {
			listCards = []models.Card{}
		}
		view.Lists = append(view.Lists, models.ListView{List: l, Cards: listCards})
	}
	return view, nil
}

func (s *boardServiceImpl) DeleteBoard(ctx context.Context, userID string, boardID int64) error {
	if err := validateID("board_id", boardID); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindBoard, []int64{boardID}); err != nil {
			return err
		}
		return tx.DeleteBoard(ctx, boardID)
	})
	if err != nil {
		err = wrapTxErr("delete board", err)
		s.logger.Error().
			Err(err).
			Int64("board_id", boardID).
			Msg("failed to delete board")
		return err
	}

	invalidateBoards(ctx, s.logger, s.boards, []int64{boardID})

	s.logger.Info().
		Str("user_id", userID).
		Int64("board_id", boardID).
		Msg("deleted board")
	return nil
}

func (s *boardServiceImpl) CreateList(ctx context.Context, userID string, boardID int64, title string) (*models.List, error) {
	if err := validateID("board_id", boardID); err != nil {
		return nil, err
	}
	if err := validateTitle("title", title); err != nil {
		return nil, err
	}

	now := time.Now()
	list := &models.List{
		BoardID:   boardID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindBoard, []int64{boardID}); err != nil {
			return err
		}

		order, err := tx.NextListOrder(ctx, boardID)
		if err != nil {
			return err
		}
		list.Order = order

		if err = tx.InsertList(ctx, list); err != nil {
			return err
		}
		return tx.InsertOwner(ctx, storage.KindList, list.ID, userID)
	})
	if err != nil {
		err = wrapTxErr("create list", err)
		s.logger.Error().
			Err(err).
			Int64("board_id", boardID).
			Msg("failed to create list")
		return nil, err
	}

	invalidateBoards(ctx, s.logger, s.boards, []int64{boardID})

	s.logger.Info().
		Int64("board_id", boardID).
		Int64("list_id", list.ID).
		Msg("created list")
	return list, nil
}

func (s *boardServiceImpl) DeleteList(ctx context.Context, userID string, listID int64) error {
	if err := validateID("list_id", listID); err != nil {
		return err
	}

	var boardIDs []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindList, []int64{listID}); err != nil {
			return err
		}

		var err error
		boardIDs, err = tx.BoardIDsByLists(ctx, []int64{listID})
		if err != nil {
			return err
		}
		return tx.DeleteList(ctx, listID)
	})
	if err != nil {
		err = wrapTxErr("delete list", err)
		s.logger.Error().
			Err(err).
			Int64("list_id", listID).
			Msg("failed to delete list")
		return err
	}

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Int64("list_id", listID).
		Msg("deleted list")
	return nil
}

func (s *boardServiceImpl) CreateCard(ctx context.Context, params CreateCardParams) (*models.Card, error) {
	if err := validateCardParams(&params); err != nil {
		s.logger.Error().
			Err(err).
			Int64("list_id", params.ListID).
			Msg("invalid card")
		return nil, err
	}

	now := time.Now()
	card := &models.Card{
		ListID:    params.ListID,
		Title:     params.Title,
		Status:    params.Status,
		Priority:  params.Priority,
		DueDate:   params.DueDate,
		Emotion:   params.Emotion,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var boardIDs []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, params.UserID, storage.KindList, []int64{params.ListID}); err != nil {
			return err
		}

		order, err := tx.NextCardOrder(ctx, params.ListID)
		if err != nil {
			return err
		}
		card.Order = order

		if err = tx.InsertCard(ctx, card); err != nil {
			return err
		}
		if err = tx.InsertOwner(ctx, storage.KindCard, card.ID, params.UserID); err != nil {
			return err
		}
		boardIDs, err = tx.BoardIDsByLists(ctx, []int64{params.ListID})
		return err
	})
	if err != nil {
		err = wrapTxErr("create card", err)
		s.logger.Error().
			Err(err).
			Int64("list_id", params.ListID).
			Msg("failed to create card")
		return nil, err
	}

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Int64("list_id", params.ListID).
		Int64("card_id", card.ID).
		Msg("created card")
	return card, nil
}

func (s *boardServiceImpl) DeleteCard(ctx context.Context, userID string, cardID int64) error {
	if err := validateID("card_id", cardID); err != nil {
		return err
	}

	var boardIDs []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := s.gate.Authorize(ctx, tx, userID, storage.KindCard, []int64{cardID}); err != nil {
			return err
		}

		var err error
		boardIDs, err = tx.BoardIDsByCards(ctx, []int64{cardID})
		if err != nil {
			return err
		}
		return tx.DeleteCard(ctx, cardID)
	})
	if err != nil {
		err = wrapTxErr("delete card", err)
		s.logger.Error().
			Err(err).
			Int64("card_id", cardID).
			Msg("failed to delete card")
		return err
	}

	invalidateBoards(ctx, s.logger, s.boards, boardIDs)

	s.logger.Info().
		Int64("card_id", cardID).
		Msg("deleted card")
	return nil
}

func validateCardParams(params *CreateCardParams) error {
	if err := validateID("list_id", params.ListID); err != nil {
		return err
	}
	if err := validateTitle("title", params.Title); err != nil {
		return err
	}
	if params.Status == "" {
		params.Status = models.StatusTodo
	}
	if !models.IsValidStatus(params.Status) {
		return &ValidationError{Field: "status", Reason: "must be one of todo, in_progress, done"}
	}
	if params.Priority < models.MinPriority || params.Priority > models.MaxPriority {
		return &ValidationError{Field: "priority", Reason: "must be between 0 and 3"}
	}
	if params.Emotion != nil && utf8.RuneCountInString(*params.Emotion) > maxTitleLength {
		return &ValidationError{Field: "emotion", Reason: "must be at most 255 characters"}
	}
	return nil
}
