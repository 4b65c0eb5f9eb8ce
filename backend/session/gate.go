package session

import (
	"sync"

	"github.com/adwski/fourseat/backend/model"
)

// gate hands out each seat's wire exactly once and signals when the last
// seat is taken.
type gate struct {
	mx    *sync.Mutex
	wires [model.SeatCount]*model.Wire
	left   int
	full   chan struct{}
	closed bool
}

func newGate(wires [model.SeatCount]model.Wire) *gate {
	g := &gate{
		mx:   &sync.Mutex{},
		left: model.SeatCount,
		full: make(chan struct{}),
	}
	for i := range wires {
		w := wires[i]
		g.wires[i] = &w
	}
	return g
}

func (g *gate) claim(seat model.Seat) (model.Wire, error) {
	if !seat.Valid() {
		return model.Wire{}, ErrInvalidSeat
	}
	g.mx.Lock()
	defer g.mx.Unlock()

	if g.closed {
		return model.Wire{}, ErrSessionClosed
	}
	w := g.wires[seat.Index()]
	if w == nil {
		return model.Wire{}, ErrSeatAlreadyClaimed
	}
	g.wires[seat.Index()] = nil
	g.left--
	if g.left == 0 {
		close(g.full)
	}
	return *w, nil
}

// close refuses every later claim.
func (g *gate) close() {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.closed = true
}

// ready is closed once every seat was claimed.
func (g *gate) ready() <-chan struct{} {
	return g.full
}

func (g *gate) vacant() []model.Seat {
	g.mx.Lock()
	defer g.mx.Unlock()

	seats := make([]model.Seat, 0, g.left)
	for _, seat := range model.Seats {
		if g.wires[seat.Index()] != nil {
			seats = append(seats, seat)
		}
	}
	return seats
}
