package session

import (
	"context"

	"github.com/adwski/fourseat/backend/model"
	"github.com/jonboulle/clockwork"
)

type outcome string

const (
	outcomeMoved        outcome = "moved"
	outcomeSurrendered  outcome = "surrendered"
	outcomeDisconnected outcome = "disconnected"
	outcomeTimedOut     outcome = "timed_out"
)

type turnResult struct {
	outcome outcome
	move    model.Move
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.gate.close()

	select {
	case <-s.gate.ready():
	case <-ctx.Done():
		s.abort()
		return
	}
	s.logger.Info().Msg("all seats claimed, game started")

	last := s.board.Status()
	seat, ok := s.board.NextToMove()
	for ok {
		res, err := s.turn(ctx, seat)
		if err != nil {
			s.abort()
			return
		}
		s.logger.Debug().
			Str("seat", seat.String()).
			Str("outcome", string(res.outcome)).
			Str("move", string(res.move)).
			Msg("turn resolved")

		cur := s.board.Status()
		seat, ok = s.board.NextToMove()
		if delta, changed := cur.Diff(last); changed {
			last = cur
			s.out.broadcast(model.Outbound{Type: model.OutboundStatusChanged, Delta: delta})
		}
	}

	winner, _ := s.board.Winner()
	s.mx.Lock()
	s.winner, s.finished = winner, true
	s.mx.Unlock()

	s.out.broadcast(model.Outbound{Type: model.OutboundGameOver, Seat: winner})
	s.logger.Info().Str("winner", winner.String()).Msg("game over")
	s.conclude()
}

// turn runs a single turn of the seat. It returns an error only when the
// session was aborted.
func (s *Session) turn(ctx context.Context, seat model.Seat) (turnResult, error) {
	countdown := s.clocks[seat.Index()]
	timers := countdown.Timers()
	s.out.broadcast(model.Outbound{
		Type:   model.OutboundCallToMove,
		Seat:   seat,
		Timers: &timers,
	})

	deadline := countdown.Start()
	res, err := s.waitMove(ctx, seat, deadline)
	countdown.Stop()
	deadline.Stop()
	if err != nil {
		return res, err
	}

	switch res.outcome {
	case outcomeMoved:
		s.out.broadcast(model.Outbound{
			Type: model.OutboundMoveApplied,
			Seat: seat,
			Move: res.move,
		})
	default:
		s.board.ForceLoss(seat)
	}
	return res, nil
}

// waitMove races the seat's messages against its deadline. Rejected moves
// are reported to the seat only, and the wait goes on.
func (s *Session) waitMove(ctx context.Context, seat model.Seat, deadline clockwork.Timer) (turnResult, error) {
	rx := s.wires[seat.Index()].RX.Out()
	for {
		select {
		case <-ctx.Done():
			return turnResult{}, ctx.Err()

		case <-deadline.Chan():
			return turnResult{outcome: outcomeTimedOut}, nil

		case msg, ok := <-rx:
			if !ok {
				return turnResult{outcome: outcomeDisconnected}, nil
			}
			switch msg.Type {
			case model.InboundMove:
				if err := s.board.ApplyMove(msg.Move); err != nil {
					s.out.send(seat, model.Outbound{
						Type:   model.OutboundMoveRejected,
						Move:   msg.Move,
						Reason: err.Error(),
					})
					continue
				}
				return turnResult{outcome: outcomeMoved, move: msg.Move}, nil

			case model.InboundSurrender:
				return turnResult{outcome: outcomeSurrendered}, nil

			default:
				s.logger.Warn().
					Str("seat", seat.String()).
					Str("type", msg.Type).
					Msg("unknown message type ignored")
			}
		}
	}
}

// conclude closes the outbound queues after everything queued was delivered
// and stops accepting player messages.
func (s *Session) conclude() {
	for _, w := range s.wires {
		w.TX.Close()
		w.RX.Abort()
	}
}

func (s *Session) abort() {
	s.teardown()
	s.logger.Info().Msg("session aborted")
}

// teardown closes the gate and aborts every wire. Safe to call repeatedly.
func (s *Session) teardown() {
	s.gate.close()
	for _, w := range s.wires {
		w.Abort()
	}
}
