package board

import (
	"errors"
	"testing"

	"github.com/adwski/fourseat/backend/model"
)

func TestElimination_ApplyMove(t *testing.T) {
	tests := []struct {
		name    string
		move    model.Move
		wantErr error
	}{
		{name: "pawn push", move: "e2-e4"},
		{name: "two digit ranks", move: "d13-d12"},
		{name: "far corner", move: "n14-a1"},
		{name: "empty", move: "", wantErr: ErrMalformedMove},
		{name: "off the board file", move: "o2-o4", wantErr: ErrMalformedMove},
		{name: "off the board rank", move: "e15-e14", wantErr: ErrMalformedMove},
		{name: "zero rank", move: "e0-e1", wantErr: ErrMalformedMove},
		{name: "missing separator", move: "e2e4", wantErr: ErrMalformedMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewElimination()
			err := b.ApplyMove(tt.move)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ApplyMove(%q) = %v, want %v", tt.move, err, tt.wantErr)
			}
			next, _ := b.NextToMove()
			if tt.wantErr == nil && next != model.SeatSecond {
				t.Fatalf("next = %s, want seat2", next)
			}
			if tt.wantErr != nil && (next != model.SeatFirst || b.moves != 0) {
				t.Fatalf("rejected move changed the board: next=%s moves=%d", next, b.moves)
			}
		})
	}
}

func TestElimination_ForceLoss(t *testing.T) {
	b := NewElimination()

	b.ForceLoss(model.SeatFirst)
	if next, ok := b.NextToMove(); !ok || next != model.SeatSecond {
		t.Fatalf("next = %s, want seat2", next)
	}
	if got := b.Status().Of(model.SeatFirst); got != model.StatusLost {
		t.Fatalf("seat1 status = %q, want lost", got)
	}

	if err := b.ApplyMove("e2-e4"); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyMove("e2-e4"); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyMove("e2-e4"); err != nil {
		t.Fatal(err)
	}
	// seat1 is skipped when wrapping around
	if next, _ := b.NextToMove(); next != model.SeatSecond {
		t.Fatalf("next = %s, want seat2", next)
	}

	b.ForceLoss(model.SeatFourth)
	if next, _ := b.NextToMove(); next != model.SeatSecond {
		t.Fatalf("losing an idle seat must not change the turn, next = %s", next)
	}
	if _, ok := b.Winner(); ok {
		t.Fatal("winner declared too early")
	}

	b.ForceLoss(model.SeatSecond)
	if _, ok := b.NextToMove(); ok {
		t.Fatal("expected game over")
	}
	winner, ok := b.Winner()
	if !ok || winner != model.SeatThird {
		t.Fatalf("winner = %s, want seat3", winner)
	}
	want := model.Snapshot{model.StatusLost, model.StatusLost, model.StatusWon, model.StatusLost}
	if b.Status() != want {
		t.Fatalf("status = %v, want %v", b.Status(), want)
	}
	if err := b.ApplyMove("e2-e4"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("move after game over: %v", err)
	}
}

func TestElimination_ForceLossIgnoresInactive(t *testing.T) {
	b := NewElimination()
	b.ForceLoss(model.NoSeat)
	b.ForceLoss(model.SeatThird)
	b.ForceLoss(model.SeatThird)

	want := model.Snapshot{model.StatusActive, model.StatusActive, model.StatusLost, model.StatusActive}
	if b.Status() != want {
		t.Fatalf("status = %v, want %v", b.Status(), want)
	}
}
