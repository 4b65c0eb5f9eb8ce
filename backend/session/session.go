// Package session runs one four-seat game.
//
// A Session owns the board, a countdown clock per seat and a wire per seat.
// New starts the orchestrator goroutine right away; it waits until every
// seat was claimed, then drives turns until the board reports no next mover.
// Close aborts the orchestrator at any point. Aborting is not graceful: a
// board mutation in flight may stay applied, which is fine since the whole
// session is discarded.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/adwski/fourseat/backend/board"
	"github.com/adwski/fourseat/backend/clock"
	"github.com/adwski/fourseat/backend/model"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	ErrSeatAlreadyClaimed = errors.New("seat already claimed")
	ErrInvalidSeat        = errors.New("invalid seat")
	ErrSessionClosed      = errors.New("session is closed")
	ErrDisconnected       = errors.New("seat is disconnected")
)

type (
	// Board is the rules engine consumed by the orchestrator.
	Board interface {
		// ApplyMove mutates the board if the move is legal for the seat to
		// move. A rejected move leaves the board untouched.
		ApplyMove(model.Move) error
		// ForceLoss marks the seat as lost unconditionally.
		ForceLoss(model.Seat)
		Status() model.Snapshot
		// NextToMove returns false once the game is over.
		NextToMove() (model.Seat, bool)
		Winner() (model.Seat, bool)
	}

	Config struct {
		ID     string
		Board  Board
		Timers model.Timers // template copied into every seat's clock
		Clock  clockwork.Clock
		Logger *zerolog.Logger
	}

	Session struct {
		id     string
		logger zerolog.Logger

		board  *lockedBoard
		gate   *gate
		wires  [model.SeatCount]model.Wire
		clocks [model.SeatCount]*clock.Countdown
		out    *fanout

		cancel context.CancelFunc
		done   chan struct{}

		mx       *sync.RWMutex
		winner   model.Seat
		finished bool
	}
)

func New(cfg Config) *Session {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	if cfg.Board == nil {
		cfg.Board = board.NewElimination()
	}
	if cfg.Timers == (model.Timers{}) {
		cfg.Timers = clock.DefaultTimers()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger.With().Str("session", cfg.ID).Logger()
	s := &Session{
		id:     cfg.ID,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		board:  &lockedBoard{mx: &sync.Mutex{}, b: cfg.Board},
		done:   make(chan struct{}),
		mx:     &sync.RWMutex{},
	}
	for i := range s.wires {
		s.wires[i] = model.NewWire()
		s.clocks[i] = clock.NewCountdown(cfg.Clock, cfg.Timers)
	}
	s.gate = newGate(s.wires)
	s.out = newFanout(&logger, s.wires)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)

	s.logger.Debug().
		Dur("grace", cfg.Timers.Grace).
		Dur("time_bank", cfg.Timers.Remaining).
		Msg("session created")
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Claim transfers ownership of the seat's wire to the caller.
func (s *Session) Claim(seat model.Seat) (*Player, error) {
	w, err := s.gate.claim(seat)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("seat", seat.String()).Msg("seat claimed")
	return &Player{seat: seat, wire: w}, nil
}

// Vacant lists seats that were not claimed yet.
func (s *Session) Vacant() []model.Seat {
	return s.gate.vacant()
}

// Status reads the current status snapshot from the board.
func (s *Session) Status() model.Snapshot {
	return s.board.Status()
}

// Timers returns the clock reading of a seat.
func (s *Session) Timers(seat model.Seat) model.Timers {
	if !seat.Valid() {
		return model.Timers{}
	}
	return s.clocks[seat.Index()].Timers()
}

// Winner reports the winning seat once the game concluded.
func (s *Session) Winner() (model.Seat, bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.winner, s.finished
}

// Done is closed when the orchestrator goroutine exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close aborts the orchestrator and waits for it to exit. Every wire is torn
// down, so sends from claimed seats fail afterwards and messages left unread
// after a finished game are dropped.
func (s *Session) Close() {
	s.cancel()
	<-s.done
	s.teardown()
}

// lockedBoard serializes board access. The lock is held for a single call only.
type lockedBoard struct {
	mx *sync.Mutex
	b  Board
}

func (lb *lockedBoard) ApplyMove(mv model.Move) error {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.b.ApplyMove(mv)
}

func (lb *lockedBoard) ForceLoss(seat model.Seat) {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	lb.b.ForceLoss(seat)
}

func (lb *lockedBoard) Status() model.Snapshot {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.b.Status()
}

func (lb *lockedBoard) NextToMove() (model.Seat, bool) {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.b.NextToMove()
}

func (lb *lockedBoard) Winner() (model.Seat, bool) {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.b.Winner()
}
