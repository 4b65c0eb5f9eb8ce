package model

// Status is the per-seat game status reported by the board engine.
type Status string

const (
	StatusUnknown Status = ""
	StatusActive  Status = "active"
	StatusLost    Status = "lost"
	StatusWon     Status = "won"
)

// Snapshot holds the status of every seat at one point in time.
// StatusUnknown marks a seat the board has not reported.
type Snapshot [SeatCount]Status

// StatusDelta is the subset of a snapshot that changed.
type StatusDelta map[Seat]Status

func (s Snapshot) Of(seat Seat) Status {
	if !seat.Valid() {
		return StatusUnknown
	}
	return s[seat.Index()]
}

// Diff returns the seats of s whose status differs from prev. A seat that
// prev does not report counts as changed. The second result is false when
// nothing changed.
func (s Snapshot) Diff(prev Snapshot) (StatusDelta, bool) {
	var delta StatusDelta
	for _, seat := range Seats {
		cur := s[seat.Index()]
		if cur == StatusUnknown {
			continue
		}
		if prev[seat.Index()] == cur {
			continue
		}
		if delta == nil {
			delta = make(StatusDelta, SeatCount)
		}
		delta[seat] = cur
	}
	return delta, delta != nil
}
