package session

import (
	"github.com/adwski/fourseat/backend/model"
	"github.com/adwski/fourseat/backend/queue"
	"github.com/rs/zerolog"
)

// fanout is the single writer of every seat's outbound queue.
type fanout struct {
	logger zerolog.Logger
	tx     [model.SeatCount]*queue.Unbounded[model.Outbound]
}

func newFanout(logger *zerolog.Logger, wires [model.SeatCount]model.Wire) *fanout {
	f := &fanout{
		logger: logger.With().Str("component", "fanout").Logger(),
	}
	for i, w := range wires {
		f.tx[i] = w.TX
	}
	return f
}

func (f *fanout) broadcast(msg model.Outbound) {
	for _, seat := range model.Seats {
		f.send(seat, msg)
	}
}

func (f *fanout) send(seat model.Seat, msg model.Outbound) {
	if err := f.tx[seat.Index()].Send(msg); err != nil {
		f.logger.Debug().
			Str("seat", seat.String()).
			Str("type", msg.Type).
			Msg("message dropped, seat is gone")
		return
	}
	f.logger.Trace().
		Str("seat", seat.String()).
		Str("type", msg.Type).
		Msg("message queued")
}
