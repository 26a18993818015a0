package ordering

import (
	"errors"
	"math/rand"
	"reflect"
	"slices"
	"sort"
	"testing"
)

func boardState() State {
	// L1 = [A B C], L2 = [D]
	return NewState().
		Set(1, 10, 11, 12).
		Set(2, 13)
}

func TestApplyLocalMove(t *testing.T) {
	tests := []struct {
		name string
		move Move
		want map[int64][]int64
	}{
		{
			name: "across containers to the top",
			move: Move{ItemID: 11, From: 1, To: 2, ToIndex: 0},
			want: map[int64][]int64{1: {10, 12}, 2: {11, 13}},
		},
		{
			name: "across containers to the end",
			move: Move{ItemID: 10, From: 1, To: 2, ToIndex: 1},
			want: map[int64][]int64{1: {11, 12}, 2: {13, 10}},
		},
		{
			name: "within a container",
			move: Move{ItemID: 10, From: 1, To: 1, ToIndex: 2},
			want: map[int64][]int64{1: {11, 12, 10}, 2: {13}},
		},
		{
			name: "index past the end is clamped",
			move: Move{ItemID: 12, From: 1, To: 2, ToIndex: 99},
			want: map[int64][]int64{1: {10, 11}, 2: {13, 12}},
		},
		{
			name: "negative index is clamped",
			move: Move{ItemID: 13, From: 2, To: 1, ToIndex: -3},
			want: map[int64][]int64{1: {13, 10, 11, 12}, 2: {}},
		},
		{
			name: "into an unknown container",
			move: Move{ItemID: 11, From: 1, To: 3, ToIndex: 0},
			want: map[int64][]int64{1: {10, 12}, 2: {13}, 3: {11}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := boardState()
			after, err := ApplyLocalMove(before, tt.move)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}

			for container, want := range tt.want {
				if got := after.Items(container); !slices.Equal(got, want) {
					t.Fatalf("container %d: expected %v, got %v", container, want, got)
				}
			}

			// the input is left as it was
			if got := before.Items(1); !slices.Equal(got, []int64{10, 11, 12}) {
				t.Fatalf("input state was mutated: %v", got)
			}
		})
	}
}

func TestApplyLocalMoveUnknownItem(t *testing.T) {
	s := boardState()
	if _, err := ApplyLocalMove(s, Move{ItemID: 13, From: 1, To: 2}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := ApplyLocalMove(State{}, Move{ItemID: 1, From: 1, To: 1}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound on zero state, got %v", err)
	}
}

func multiset(s State) []int64 {
	var all []int64
	for _, c := range s.Containers() {
		all = append(all, s.Items(c)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

func TestApplyLocalMovePreservesItems(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewState().
		Set(1, 1, 2, 3, 4).
		Set(2, 5, 6).
		Set(3)
	want := multiset(s)

	for i := 0; i < 500; i++ {
		containers := s.Containers()
		from := containers[rng.Intn(len(containers))]
		items := s.Items(from)
		if len(items) == 0 {
			continue
		}
		m := Move{
			ItemID:  items[rng.Intn(len(items))],
			From:    from,
			To:      containers[rng.Intn(len(containers))],
			ToIndex: rng.Intn(8) - 2,
		}

		next, err := ApplyLocalMove(s, m)
		if err != nil {
			t.Fatalf("move %d %+v: %v", i, m, err)
		}
		if got := multiset(next); !slices.Equal(got, want) {
			t.Fatalf("move %d %+v changed the item set: %v", i, m, got)
		}
		s = next
	}
}

func TestComputeOrderPatch(t *testing.T) {
	s, err := ApplyLocalMove(boardState(), Move{ItemID: 11, From: 1, To: 2, ToIndex: 0})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := ComputeOrderPatch(s, 1, 2, 1)
	want := Patch{
		{ID: 10, Order: 0, ContainerID: 1},
		{ID: 12, Order: 1, ContainerID: 1},
		{ID: 11, Order: 0, ContainerID: 2},
		{ID: 13, Order: 1, ContainerID: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if patch := ComputeOrderPatch(s, 99); len(patch) != 0 {
		t.Fatalf("expected nothing for an unknown container, got %v", patch)
	}
}

func TestComputeOrderPatchReproducesSequence(t *testing.T) {
	s := NewState().
		Set(1, 7, 3, 9, 1).
		Set(2, 4)

	patch := ComputeOrderPatch(s, 1, 2)
	for _, container := range []int64{1, 2} {
		var entries []PatchEntry
		for _, e := range patch {
			if e.ContainerID == container {
				entries = append(entries, e)
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

		ids := make([]int64, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if want := s.Items(container); !slices.Equal(ids, want) {
			t.Fatalf("container %d: expected %v, got %v", container, want, ids)
		}
	}
}

func TestStateCopies(t *testing.T) {
	src := []int64{1, 2}
	s := NewState().Set(1, src...)
	src[0] = 99

	items := s.Items(1)
	items[1] = 42
	if got := s.Items(1); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("expected state to own its slices, got %v", got)
	}
	if s.Items(2) != nil {
		t.Fatal("expected nil for unknown container")
	}
}
