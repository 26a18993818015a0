// Package ordering holds the client-side model of ordered containers.
// A State maps a container id (a list) to the ordered ids of its items
// (cards). States are values: every operation returns a new State and
// leaves its input untouched.
package ordering

import (
	"errors"
	"slices"
)

var ErrItemNotFound = errors.New("item not found in source container")

type State struct {
	containers map[int64][]int64
}

func NewState() State {
	return State{containers: make(map[int64][]int64)}
}

// Set returns a copy of s with container replaced by items.
func (s State) Set(container int64, items ...int64) State {
	next := s.clone()
	next.containers[container] = slices.Clone(items)
	return next
}

// Items returns a copy of the container's sequence, or nil when unknown.
func (s State) Items(container int64) []int64 {
	items, ok := s.containers[container]
	if !ok {
		return nil
	}
	return slices.Clone(items)
}

// Containers returns the known container ids in ascending order.
func (s State) Containers() []int64 {
	ids := make([]int64, 0, len(s.containers))
	for id := range s.containers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s State) clone() State {
	next := State{containers: make(map[int64][]int64, len(s.containers)+1)}
	for id, items := range s.containers {
		next.containers[id] = slices.Clone(items)
	}
	return next
}

// Move relocates ItemID from container From to position ToIndex of
// container To. ToIndex counts positions after the item has been removed.
type Move struct {
	ItemID  int64
	From    int64
	To      int64
	ToIndex int
}

// ApplyLocalMove returns the state after the move. A ToIndex outside
// [0, len(To)] is clamped; moving within one container reindexes it.
func ApplyLocalMove(s State, m Move) (State, error) {
	source := s.containers[m.From]
	at := slices.Index(source, m.ItemID)
	if at < 0 {
		return s, ErrItemNotFound
	}

	next := s.clone()
	next.containers[m.From] = slices.Delete(next.containers[m.From], at, at+1)

	target := next.containers[m.To]
	index := min(max(m.ToIndex, 0), len(target))
	next.containers[m.To] = slices.Insert(target, index, m.ItemID)
	return next, nil
}

type PatchEntry struct {
	ID          int64
	Order       int
	ContainerID int64
}

// Patch is the full positional assignment of one or more containers.
type Patch []PatchEntry

// ComputeOrderPatch assigns Order = index to every member of each
// distinct touched container, in argument order. Unknown containers
// contribute nothing.
func ComputeOrderPatch(s State, touched ...int64) Patch {
	seen := make(map[int64]struct{}, len(touched))
	var patch Patch
	for _, container := range touched {
		if _, ok := seen[container]; ok {
			continue
		}
		seen[container] = struct{}{}

		for i, id := range s.containers[container] {
			patch = append(patch, PatchEntry{ID: id, Order: i, ContainerID: container})
		}
	}
	return patch
}
