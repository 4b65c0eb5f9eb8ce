package service

import (
	"errors"

	"github.com/adwski/fourseat/backend/board"
	"github.com/adwski/fourseat/backend/model"
	"github.com/adwski/fourseat/backend/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var (
	ErrCreate = errors.New("unable to create session")
	ErrGet    = errors.New("unable to get session")
	ErrJoin   = errors.New("unable to join session")
)

type (
	SessionStore interface {
		AddSession(s *session.Session) error
		GetSession(id string) (*session.Session, error)
	}

	Service struct {
		store    SessionStore
		clock    clockwork.Clock
		timers   model.Timers
		newBoard func() session.Board
		logger   zerolog.Logger
		root     *zerolog.Logger
	}

	Config struct {
		SessionStore SessionStore
		Clock        clockwork.Clock
		Timers       model.Timers // default clock template
		NewBoard     func() session.Board
		Logger       *zerolog.Logger
	}
)

func NewService(cfg Config) *Service {
	if cfg.NewBoard == nil {
		cfg.NewBoard = func() session.Board { return board.NewElimination() }
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Service{
		store:    cfg.SessionStore,
		clock:    cfg.Clock,
		timers:   cfg.Timers,
		newBoard: cfg.NewBoard,
		root:     cfg.Logger,
		logger:   cfg.Logger.With().Str("component", "service").Logger(),
	}
}

// CreateSession starts a new session. Zero fields of timers fall back to the
// configured template.
func (svc *Service) CreateSession(timers model.Timers) (string, error) {
	if timers.Grace == 0 {
		timers.Grace = svc.timers.Grace
	}
	if timers.Remaining == 0 {
		timers.Remaining = svc.timers.Remaining
	}
	if timers.Grace < 0 || timers.Remaining < 0 {
		return "", errors.Join(ErrCreate, errors.New("negative clock setting"))
	}

	s := session.New(session.Config{
		ID:     uuid.NewString(),
		Board:  svc.newBoard(),
		Timers: timers,
		Clock:  svc.clock,
		Logger: svc.root,
	})
	if err := svc.store.AddSession(s); err != nil {
		s.Close()
		return "", errors.Join(ErrCreate, err)
	}
	svc.logger.Debug().
		Str("sessionID", s.ID()).
		Dur("grace", timers.Grace).
		Dur("time_bank", timers.Remaining).
		Msg("session created")
	return s.ID(), nil
}

func (svc *Service) GetSession(id string) (*model.SessionInfo, error) {
	s, err := svc.store.GetSession(id)
	if err != nil {
		return nil, errors.Join(ErrGet, err)
	}

	var (
		status = s.Status()
		vacant = make(map[model.Seat]bool, model.SeatCount)
		info   = &model.SessionInfo{ID: s.ID(), Seats: make([]model.SeatInfo, 0, model.SeatCount)}
	)
	for _, seat := range s.Vacant() {
		vacant[seat] = true
	}
	for _, seat := range model.Seats {
		info.Seats = append(info.Seats, model.SeatInfo{
			Seat:    seat,
			Status:  status.Of(seat),
			Claimed: !vacant[seat],
			Timers:  s.Timers(seat),
		})
	}
	info.Winner, info.Finished = s.Winner()
	return info, nil
}

// JoinSession claims a seat of the session for the caller.
func (svc *Service) JoinSession(id string, seat model.Seat) (*session.Player, error) {
	s, err := svc.store.GetSession(id)
	if err != nil {
		return nil, errors.Join(ErrJoin, err)
	}
	p, err := s.Claim(seat)
	if err != nil {
		return nil, errors.Join(ErrJoin, err)
	}
	svc.logger.Debug().
		Str("sessionID", id).
		Str("seat", seat.String()).
		Msg("seat joined")
	return p, nil
}
