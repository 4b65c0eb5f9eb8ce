// Package board provides a minimal engine for the session orchestrator.
//
// Elimination does not know chess rules. It validates that a move is
// well-formed notation on the 14x14 four-player grid, rotates the turn
// between seats still in play and declares the last remaining seat the
// winner. A real rules engine plugs into the orchestrator through the same
// five methods.
package board

import (
	"errors"
	"regexp"

	"github.com/adwski/fourseat/backend/model"
)

var (
	ErrMalformedMove = errors.New("malformed move")
	ErrGameOver      = errors.New("game is over")
)

var moveNotation = regexp.MustCompile(`^[a-n](1[0-4]|[1-9])-[a-n](1[0-4]|[1-9])$`)

type Elimination struct {
	status model.Snapshot
	turn   model.Seat
	moves  int
}

// NewElimination returns a board with all seats active and the first seat to move.
func NewElimination() *Elimination {
	b := &Elimination{turn: model.SeatFirst}
	for i := range b.status {
		b.status[i] = model.StatusActive
	}
	return b
}

func (b *Elimination) ApplyMove(mv model.Move) error {
	if b.turn == model.NoSeat {
		return ErrGameOver
	}
	if !moveNotation.MatchString(string(mv)) {
		return ErrMalformedMove
	}
	b.moves++
	b.turn = b.nextActiveAfter(b.turn)
	return nil
}

func (b *Elimination) ForceLoss(seat model.Seat) {
	if !seat.Valid() || b.status[seat.Index()] != model.StatusActive {
		return
	}
	b.status[seat.Index()] = model.StatusLost

	switch active := b.active(); {
	case len(active) == 1:
		b.status[active[0].Index()] = model.StatusWon
		b.turn = model.NoSeat
	case len(active) == 0:
		b.turn = model.NoSeat
	case b.turn == seat:
		b.turn = b.nextActiveAfter(seat)
	}
}

func (b *Elimination) Status() model.Snapshot {
	return b.status
}

func (b *Elimination) NextToMove() (model.Seat, bool) {
	return b.turn, b.turn != model.NoSeat
}

func (b *Elimination) Winner() (model.Seat, bool) {
	for _, seat := range model.Seats {
		if b.status[seat.Index()] == model.StatusWon {
			return seat, true
		}
	}
	return model.NoSeat, false
}

func (b *Elimination) active() []model.Seat {
	seats := make([]model.Seat, 0, model.SeatCount)
	for _, seat := range model.Seats {
		if b.status[seat.Index()] == model.StatusActive {
			seats = append(seats, seat)
		}
	}
	return seats
}

func (b *Elimination) nextActiveAfter(seat model.Seat) model.Seat {
	for next := seat.Next(); next != seat; next = next.Next() {
		if b.status[next.Index()] == model.StatusActive {
			return next
		}
	}
	return seat
}
