package main

import (
	"testing"

	"github.com/adanyl0v/go-boards/internal/ordering"
)

func TestContainerOf(t *testing.T) {
	state := ordering.NewState().Set(1, 10, 11).Set(2, 12)

	if id, ok := containerOf(state, 12); !ok || id != 2 {
		t.Fatalf("expected list 2, got %d %v", id, ok)
	}
	if _, ok := containerOf(state, 99); ok {
		t.Fatal("expected unknown card to be missing")
	}
}
