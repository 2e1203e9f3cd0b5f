package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

// Transport delivers messages to connections and tracks room membership.
type Transport interface {
	Join(room, conn string)
	Send(conn string, msg any)
	Broadcast(room string, msg any)
}

// Caller identifies who issued a command. UserID is 0 for anonymous
// connections.
type Caller struct {
	Conn   string
	UserID int64
}

type Options struct {
	HostCode      string
	RevealEvery   time.Duration
	CountdownTick time.Duration
}

// Service is the command boundary: it resolves the room, runs the command
// under the room lock and broadcasts the resulting state.
type Service struct {
	registry *Registry
	store    store.Store
	out      Transport
	opts     Options
}

func NewService(reg *Registry, st store.Store, out Transport, opts Options) *Service {
	if opts.RevealEvery <= 0 {
		opts.RevealEvery = 1200 * time.Millisecond
	}
	if opts.CountdownTick <= 0 {
		opts.CountdownTick = time.Second
	}
	return &Service{registry: reg, store: st, out: out, opts: opts}
}

func (s *Service) Registry() *Registry { return s.registry }

// outcome collects what a command wants delivered once the room lock is released.
type outcome struct {
	replies    []any
	roomMsgs   []any
	broadcast  bool
	replyState bool

	startReveal    bool
	startCountdown bool
}

func msg(typ string, data any) internal.Message[any] {
	return internal.Message[any]{Type: typ, Data: data}
}

func toastMsg(format string, args ...any) internal.Message[any] {
	return msg("toast", internal.ToastData{Msg: fmt.Sprintf(format, args...)})
}

func (o *outcome) toast(format string, args ...any) {
	o.replies = append(o.replies, toastMsg(format, args...))
}

func (o *outcome) roomToast(format string, args ...any) {
	o.roomMsgs = append(o.roomMsgs, toastMsg(format, args...))
}

func (o *outcome) reply(typ string, data any) {
	o.replies = append(o.replies, msg(typ, data))
}

func (o *outcome) you(idx int) {
	if idx < 0 {
		o.reply("you", internal.YouData{PlayerIdx: nil})
		return
	}
	o.reply("you", internal.YouData{PlayerIdx: &idx})
}

// withRoom runs fn with the room locked. A *CommandError from fn becomes a
// toast to the caller and nothing is broadcast; fn must not mutate the room
// before returning one.
func (s *Service) withRoom(ctx context.Context, c Caller, roomID, cmd string, fn func(*internal.Room, *outcome) error) error {
	room, err := s.registry.Get(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}

	var out outcome
	room.Mu.Lock()
	err = fn(room, &out)

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		room.Mu.Unlock()
		log.Debug().Str("room", room.Id).Str("conn", c.Conn).Str("cmd", cmd).
			Str("kind", cmdErr.Kind.String()).Msg(cmdErr.Msg)
		s.out.Send(c.Conn, toastMsg("%s", cmdErr.Msg))
		return nil
	}
	if err != nil {
		room.Mu.Unlock()
		return fmt.Errorf("%s in room %s: %w", cmd, room.Id, err)
	}

	var snap internal.RoomSnapshot
	if out.broadcast || out.replyState {
		snap, err = s.snapshot(ctx, room)
		if err != nil {
			room.Mu.Unlock()
			return fmt.Errorf("%s snapshot: %w", cmd, err)
		}
	}
	roomID = room.Id
	room.Mu.Unlock()

	log.Debug().Str("room", roomID).Str("conn", c.Conn).Str("cmd", cmd).Msg("command applied")

	for _, m := range out.replies {
		s.out.Send(c.Conn, m)
	}
	for _, m := range out.roomMsgs {
		s.out.Broadcast(roomID, m)
	}
	stateMsg := msg("state", snap)
	if out.broadcast {
		s.out.Broadcast(roomID, stateMsg)
	} else if out.replyState {
		s.out.Send(c.Conn, stateMsg)
	}

	if out.startReveal {
		s.startTossupReveal(room)
	}
	if out.startCountdown {
		s.startFinalCountdown(room)
	}
	return nil
}

// broadcastState pushes the current snapshot of an existing room.
func (s *Service) broadcastState(ctx context.Context, room *internal.Room) {
	room.Mu.Lock()
	snap, err := s.snapshot(ctx, room)
	room.Mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("room", room.Id).Msg("[broadcastState] snapshot failed")
		return
	}
	s.out.Broadcast(room.Id, msg("state", snap))
}

// Disconnect drops every claim conn held in the given rooms.
func (s *Service) Disconnect(ctx context.Context, conn string, rooms []string) {
	for _, id := range rooms {
		room := s.registry.Lookup(id)
		if room == nil {
			continue
		}

		room.Mu.Lock()
		changed, resume := false, false
		for _, p := range room.Players {
			if p.ClaimedConn == conn {
				p.ClaimedConn = ""
				changed = true
			}
		}
		if room.HostConn == conn {
			room.HostConn = ""
			changed = true
		}
		if room.Tossup.ControllerConn == conn {
			room.Tossup.ControllerConn = ""
			changed = true
			resume = room.Phase == internal.PhaseTossup
		}
		if room.Tossup.LockedConns[conn] {
			delete(room.Tossup.LockedConns, conn)
			changed = true
		}
		room.Mu.Unlock()

		if changed {
			log.Debug().Str("room", id).Str("conn", conn).Msg("[Disconnect] released claims")
			s.broadcastState(ctx, room)
		}
		if resume {
			s.startTossupReveal(room)
		}
	}
}
