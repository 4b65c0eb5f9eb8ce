package session

import (
	"errors"

	"github.com/adwski/fourseat/backend/model"
)

// Player is the claimed end of one seat's wire.
type Player struct {
	seat model.Seat
	wire model.Wire
}

func (p *Player) Seat() model.Seat {
	return p.seat
}

// Send delivers a message to the orchestrator. It fails after Leave or once
// the session is over.
func (p *Player) Send(msg model.Inbound) error {
	if err := p.wire.RX.Send(msg); err != nil {
		return errors.Join(ErrDisconnected, err)
	}
	return nil
}

func (p *Player) Move(mv model.Move) error {
	return p.Send(model.Inbound{Type: model.InboundMove, Move: mv})
}

func (p *Player) Surrender() error {
	return p.Send(model.Inbound{Type: model.InboundSurrender})
}

// Messages returns the orchestrator's messages for this seat. The channel is
// closed when the session ends.
func (p *Player) Messages() <-chan model.Outbound {
	return p.wire.TX.Out()
}

// Leave disconnects the seat. Messages already sent are still processed;
// when the seat is next to move it loses as if it had surrendered.
func (p *Player) Leave() {
	p.wire.RX.Close()
	p.wire.TX.Abort()
}
