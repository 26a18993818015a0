package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

// failingStore fails the n-th card position update of every transaction.
type failingStore struct {
	storage.Store
	failAt int
}

func (s *failingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failAt: s.failAt})
	})
}

type failingTx struct {
	storage.Tx
	failAt  int
	updates int
}

var errInjected = errors.New("injected failure")

func (t *failingTx) UpdateCardPosition(ctx context.Context, id int64, order int, listID int64) error {
	t.updates++
	if t.updates == t.failAt {
		return errInjected
	}
	return t.Tx.UpdateCardPosition(ctx, id, order, listID)
}

func TestReorderCardsAcrossLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.board(t, owner, "board")
	l1 := f.list(t, owner, b.ID, "L1")
	l2 := f.list(t, owner, b.ID, "L2")
	a := f.card(t, owner, l1.ID, "A")
	bb := f.card(t, owner, l1.ID, "B")
	c := f.card(t, owner, l1.ID, "C")
	d := f.card(t, owner, l2.ID, "D")

	// B moved to the top of L2
	batch := []models.CardOrder{
		{ID: a.ID, Order: 0, ListID: l1.ID},
		{ID: c.ID, Order: 1, ListID: l1.ID},
		{ID: bb.ID, Order: 0, ListID: l2.ID},
		{ID: d.ID, Order: 1, ListID: l2.ID},
	}
	if err := f.orders.ReorderCards(ctx, owner, batch); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	want := map[int64][]string{
		l1.ID: {"A", "C"},
		l2.ID: {"B", "D"},
	}
	if got := f.cardOrder(t, owner, b.ID); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestReorderCardsValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		batch []models.CardOrder
	}{
		{name: "empty", batch: nil},
		{name: "zero id", batch: []models.CardOrder{{ID: 0, Order: 0, ListID: 1}}},
		{name: "zero list", batch: []models.CardOrder{{ID: 1, Order: 0, ListID: 0}}},
		{name: "negative order", batch: []models.CardOrder{{ID: 1, Order: -1, ListID: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.orders.ReorderCards(context.Background(), owner, tt.batch)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestReorderCardsRejectsForeignCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.board(t, owner, "mine")
	myList := f.list(t, owner, mine.ID, "L")
	a := f.card(t, owner, myList.ID, "A")
	bb := f.card(t, owner, myList.ID, "B")

	theirs := f.board(t, stranger, "theirs")
	theirList := f.list(t, stranger, theirs.ID, "L")
	x := f.card(t, stranger, theirList.ID, "X")

	batch := []models.CardOrder{
		{ID: bb.ID, Order: 0, ListID: myList.ID},
		{ID: a.ID, Order: 1, ListID: myList.ID},
		{ID: x.ID, Order: 2, ListID: myList.ID},
	}
	if err := f.orders.ReorderCards(ctx, owner, batch); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// nothing was applied
	if got := f.cardOrder(t, owner, mine.ID)[myList.ID]; !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("expected untouched order, got %v", got)
	}
	if got := f.cardOrder(t, stranger, theirs.ID)[theirList.ID]; !reflect.DeepEqual(got, []string{"X"}) {
		t.Fatalf("expected foreign card to stay, got %v", got)
	}
}

func TestReorderCardsRejectsForeignDestination(t *testing.T) {
	f := newFixture(t)

	mine := f.board(t, owner, "mine")
	myList := f.list(t, owner, mine.ID, "L")
	a := f.card(t, owner, myList.ID, "A")

	theirs := f.board(t, stranger, "theirs")
	theirList := f.list(t, stranger, theirs.ID, "L")

	batch := []models.CardOrder{{ID: a.ID, Order: 0, ListID: theirList.ID}}
	if err := f.orders.ReorderCards(context.Background(), owner, batch); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.cardOrder(t, stranger, theirs.ID)[theirList.ID]; len(got) != 0 {
		t.Fatalf("expected foreign list to stay empty, got %v", got)
	}
}

func TestReorderCardsRollsBackOnFailure(t *testing.T) {
	base := newTestStore(t)
	f := newFixtureWithStore(t, base)
	failing := newFixtureWithStore(t, &failingStore{Store: base, failAt: 3})
	ctx := context.Background()

	b := f.board(t, owner, "board")
	l := f.list(t, owner, b.ID, "L")
	a := f.card(t, owner, l.ID, "A")
	bb := f.card(t, owner, l.ID, "B")
	c := f.card(t, owner, l.ID, "C")

	batch := []models.CardOrder{
		{ID: c.ID, Order: 0, ListID: l.ID},
		{ID: bb.ID, Order: 1, ListID: l.ID},
		{ID: a.ID, Order: 2, ListID: l.ID},
	}
	err := failing.orders.ReorderCards(ctx, owner, batch)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, errInjected) {
		t.Fatalf("expected storage error wrapping the injected failure, got %v", err)
	}

	// the first two updates must not survive
	if got := f.cardOrder(t, owner, b.ID)[l.ID]; !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected original order, got %v", got)
	}

	if err = f.orders.ReorderCards(ctx, owner, batch); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := f.cardOrder(t, owner, b.ID)[l.ID]; !reflect.DeepEqual(got, []string{"C", "B", "A"}) {
		t.Fatalf("expected reversed order, got %v", got)
	}
}

func TestReorderCardsLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.board(t, owner, "board")
	l := f.list(t, owner, b.ID, "L")
	a := f.card(t, owner, l.ID, "A")
	bb := f.card(t, owner, l.ID, "B")

	first := []models.CardOrder{{ID: bb.ID, Order: 0, ListID: l.ID}, {ID: a.ID, Order: 1, ListID: l.ID}}
	second := []models.CardOrder{{ID: a.ID, Order: 0, ListID: l.ID}, {ID: bb.ID, Order: 1, ListID: l.ID}}
	for _, batch := range [][]models.CardOrder{first, second} {
		if err := f.orders.ReorderCards(ctx, owner, batch); err != nil {
			t.Fatalf("reorder: %v", err)
		}
	}

	if got := f.cardOrder(t, owner, b.ID)[l.ID]; !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("expected second batch to win, got %v", got)
	}
}
