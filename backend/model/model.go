package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adwski/fourseat/backend/queue"
)

// Seat is one of the four fixed player positions, in play order.
type Seat uint8

const (
	NoSeat Seat = iota
	SeatFirst
	SeatSecond
	SeatThird
	SeatFourth
)

// SeatCount is the number of seats in every session.
const SeatCount = 4

// Seats lists all seats in play order.
var Seats = [SeatCount]Seat{SeatFirst, SeatSecond, SeatThird, SeatFourth}

func (s Seat) Valid() bool {
	return s >= SeatFirst && s <= SeatFourth
}

// Index maps a valid seat onto 0..3 for fixed-size per-seat arrays.
func (s Seat) Index() int {
	return int(s) - 1
}

// Next returns the following seat in play order, wrapping from the fourth to the first.
func (s Seat) Next() Seat {
	if s >= SeatFourth {
		return SeatFirst
	}
	return s + 1
}

func (s Seat) String() string {
	if !s.Valid() {
		return "none"
	}
	return fmt.Sprintf("seat%d", uint8(s))
}

// ParseSeat parses "1".."4".
func ParseSeat(v string) (Seat, error) {
	if len(v) == 1 && v[0] >= '1' && v[0] <= '4' {
		return Seat(v[0] - '0'), nil
	}
	return NoSeat, fmt.Errorf("invalid seat %q", v)
}

// Move is an opaque move in board notation, interpreted only by the board engine.
type Move string

// Timers is a clock reading: the per-turn grace window and the remaining time bank.
type Timers struct {
	Grace     time.Duration
	Remaining time.Duration
}

type timersJSON struct {
	GraceMS     int64 `json:"grace_ms"`
	RemainingMS int64 `json:"remaining_ms"`
}

func (t Timers) MarshalJSON() ([]byte, error) {
	return json.Marshal(timersJSON{
		GraceMS:     t.Grace.Milliseconds(),
		RemainingMS: t.Remaining.Milliseconds(),
	})
}

func (t *Timers) UnmarshalJSON(b []byte) error {
	var tj timersJSON
	if err := json.Unmarshal(b, &tj); err != nil {
		return err
	}
	t.Grace = time.Duration(tj.GraceMS) * time.Millisecond
	t.Remaining = time.Duration(tj.RemainingMS) * time.Millisecond
	return nil
}

// Message types sent by the orchestrator to players.
const (
	OutboundCallToMove    = "call_to_move"
	OutboundMoveRejected  = "move_rejected"
	OutboundMoveApplied   = "move_applied"
	OutboundStatusChanged = "status_changed"
	OutboundGameOver      = "game_over"
)

// Message types sent by players to the orchestrator.
const (
	InboundMove      = "move"
	InboundSurrender = "surrender"
)

// Outbound is a message from the orchestrator to a seat.
type Outbound struct {
	Type   string      `json:"type"`
	Seat   Seat        `json:"seat,omitempty"` // mover, or winner for game_over
	Timers *Timers     `json:"timers,omitempty"`
	Move   Move        `json:"move,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Delta  StatusDelta `json:"delta,omitempty"`
}

// Inbound is a message from a seat to the orchestrator.
type Inbound struct {
	Type string `json:"type"`
	Move Move   `json:"move,omitempty"`
}

// Wire is the channel pair of one seat: RX carries player messages to the
// orchestrator, TX carries orchestrator messages to the player.
type Wire struct {
	RX *queue.Unbounded[Inbound]
	TX *queue.Unbounded[Outbound]
}

func NewWire() Wire {
	return Wire{
		RX: queue.New[Inbound](),
		TX: queue.New[Outbound](),
	}
}

// Abort tears down both directions, discarding anything still buffered.
func (w Wire) Abort() {
	w.RX.Abort()
	w.TX.Abort()
}

// SessionInfo describes a session for the API.
type SessionInfo struct {
	ID       string     `json:"session_id"`
	Seats    []SeatInfo `json:"seats"`
	Finished bool       `json:"finished"`
	Winner   Seat       `json:"winner,omitempty"`
}

type SeatInfo struct {
	Seat    Seat   `json:"seat"`
	Status  Status `json:"status"`
	Claimed bool   `json:"claimed"`
	Timers  Timers `json:"timers"`
}
