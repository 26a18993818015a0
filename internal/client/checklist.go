package client

import (
	"context"
	"errors"
	"slices"

	"github.com/adanyl0v/go-boards/internal/models"
)

var ErrIndexOutOfRange = errors.New("checklist index out of range")

// SubtaskSaver persists a full checklist. Client implements it.
type SubtaskSaver interface {
	ReplaceSubtasks(ctx context.Context, cardID int64, subtasks []models.SubtaskInput) ([]models.Subtask, error)
}

// Checklist is the editable subtask list of one card. Edits stay local
// until Save, which sends the whole list and absorbs the canonical result.
type Checklist struct {
	cardID int64
	saver  SubtaskSaver
	items  []models.SubtaskInput
	dirty  bool
}

func NewChecklist(saver SubtaskSaver, cardID int64, stored []models.Subtask) *Checklist {
	c := &Checklist{cardID: cardID, saver: saver}
	c.absorb(stored)
	return c
}

// Items returns a deep copy of the current entries. New entries have a nil ID.
func (c *Checklist) Items() []models.SubtaskInput {
	out := make([]models.SubtaskInput, len(c.items))
	for i, item := range c.items {
		if item.ID != nil {
			id := *item.ID
			item.ID = &id
		}
		out[i] = item
	}
	return out
}

// Dirty reports unsaved edits.
func (c *Checklist) Dirty() bool {
	return c.dirty
}

func (c *Checklist) Add(title string) {
	c.items = append(c.items, models.SubtaskInput{Title: title})
	c.dirty = true
}

func (c *Checklist) Rename(i int, title string) error {
	if i < 0 || i >= len(c.items) {
		return ErrIndexOutOfRange
	}
	c.items[i].Title = title
	c.dirty = true
	return nil
}

func (c *Checklist) Toggle(i int) error {
	if i < 0 || i >= len(c.items) {
		return ErrIndexOutOfRange
	}
	c.items[i].IsCompleted = !c.items[i].IsCompleted
	c.dirty = true
	return nil
}

// Remove drops the entry; the server deletes it on the next Save.
func (c *Checklist) Remove(i int) error {
	if i < 0 || i >= len(c.items) {
		return ErrIndexOutOfRange
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.dirty = true
	return nil
}

// Move places entry from at index to, counted after removal.
func (c *Checklist) Move(from, to int) error {
	if from < 0 || from >= len(c.items) {
		return ErrIndexOutOfRange
	}
	item := c.items[from]
	c.items = slices.Delete(c.items, from, from+1)
	to = min(max(to, 0), len(c.items))
	c.items = slices.Insert(c.items, to, item)
	c.dirty = true
	return nil
}

// Save replaces the stored checklist with the local one. On failure the
// local edits are kept so they can be shown again or retried.
func (c *Checklist) Save(ctx context.Context) error {
	stored, err := c.saver.ReplaceSubtasks(ctx, c.cardID, c.Items())
	if err != nil {
		return err
	}
	c.absorb(stored)
	return nil
}

func (c *Checklist) absorb(stored []models.Subtask) {
	sorted := slices.Clone(stored)
	slices.SortStableFunc(sorted, func(a, b models.Subtask) int {
		return a.Order - b.Order
	})

	c.items = make([]models.SubtaskInput, len(sorted))
	for i, s := range sorted {
		id := s.ID
		c.items[i] = models.SubtaskInput{ID: &id, Title: s.Title, IsCompleted: s.IsCompleted}
	}
	c.dirty = false
}
