package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
)

// ErrUnknownCommand is returned by Dispatch for a message type it does not handle.
var ErrUnknownCommand = errors.New("unknown command")

var errBadPayload = errors.New("malformed payload")

// badPayloadToasts holds the message shown when a command's payload does not
// decode. Commands missing here get a generic one.
var badPayloadToasts = map[string]string{
	"claim_player":      "Choose a player slot to claim.",
	"set_active_player": "Invalid player index.",
	"set_active_pack":   "Bad pack id.",
	"load_pack":         "No valid lines found.",
	"guess":             "Enter a letter A-Z.",
	"solve":             "Type a solve attempt.",
	"final_pick":        "Enter a letter A-Z.",
	"set_players":       "Provide a list of player names.",
	"set_prize_names":   "Provide a list of prize names.",
	"set_config":        "Invalid config.",
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %w", errBadPayload, err)
	}
	return v, nil
}

// Dispatch routes one inbound websocket message to its command. A payload that
// does not decode is answered with a toast to the caller.
func (s *Service) Dispatch(ctx context.Context, c Caller, msgType string, raw json.RawMessage) error {
	err := s.dispatch(ctx, c, msgType, raw)
	if !errors.Is(err, errBadPayload) {
		return err
	}
	log.Debug().Err(err).Str("conn", c.Conn).Str("type", msgType).Msg("[Dispatch] bad payload")
	text, ok := badPayloadToasts[msgType]
	if !ok {
		text = "Invalid request."
	}
	s.out.Send(c.Conn, toastMsg("%s", text))
	return nil
}

func (s *Service) dispatch(ctx context.Context, c Caller, msgType string, raw json.RawMessage) error {
	switch msgType {
	case "set_active_pack":
		req, err := decode[internal.SetActivePackRequest](raw)
		if err != nil {
			return err
		}
		return s.SetActivePack(ctx, c, req)
	case "claim_host":
		req, err := decode[internal.ClaimHostRequest](raw)
		if err != nil {
			return err
		}
		return s.ClaimHost(ctx, c, req)
	case "claim_player":
		req, err := decode[internal.ClaimPlayerRequest](raw)
		if err != nil {
			return err
		}
		return s.ClaimPlayer(ctx, c, req)
	case "load_pack":
		req, err := decode[internal.LoadPackRequest](raw)
		if err != nil {
			return err
		}
		return s.LoadPack(ctx, c, req)
	case "set_active_player":
		req, err := decode[internal.SetActivePlayerRequest](raw)
		if err != nil {
			return err
		}
		return s.SetActivePlayer(ctx, c, req)
	case "guess":
		req, err := decode[internal.GuessRequest](raw)
		if err != nil {
			return err
		}
		return s.Guess(ctx, c, req)
	case "solve":
		req, err := decode[internal.SolveRequest](raw)
		if err != nil {
			return err
		}
		return s.Solve(ctx, c, req)
	case "start_tossup":
		req, err := decode[internal.StartTossupRequest](raw)
		if err != nil {
			return err
		}
		return s.StartTossup(ctx, c, req)
	case "final_pick":
		req, err := decode[internal.FinalPickRequest](raw)
		if err != nil {
			return err
		}
		return s.FinalPick(ctx, c, req)
	case "set_players", "set_prize_names":
		req, err := decode[internal.NamesRequest](raw)
		if err != nil {
			return err
		}
		if msgType == "set_players" {
			return s.SetPlayers(ctx, c, req)
		}
		return s.SetPrizeNames(ctx, c, req)
	case "set_config":
		req, err := decode[internal.SetConfigRequest](raw)
		if err != nil {
			return err
		}
		return s.SetConfig(ctx, c, req)
	}

	req, err := decode[internal.RoomRequest](raw)
	if err != nil {
		return err
	}
	switch msgType {
	case "join":
		return s.Join(ctx, c, req.Room)
	case "list_packs":
		return s.ListPacks(ctx, c, req.Room)
	case "release_host":
		return s.ReleaseHost(ctx, c, req.Room)
	case "release_player":
		return s.ReleasePlayer(ctx, c, req.Room)
	case "join_game":
		return s.JoinGame(ctx, c, req.Room)
	case "leave_game":
		return s.LeaveGame(ctx, c, req.Room)
	case "new_puzzle":
		return s.NewPuzzle(ctx, c, req.Room)
	case "new_game":
		return s.NewGame(ctx, c, req.Room)
	case "spin":
		return s.Spin(ctx, c, req.Room)
	case "buzz":
		return s.Buzz(ctx, c, req.Room)
	case "end_tossup":
		return s.EndTossup(ctx, c, req.Room)
	case "start_final":
		return s.StartFinal(ctx, c, req.Room)
	case "end_final":
		return s.EndFinal(ctx, c, req.Room)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, msgType)
}

// State returns the current snapshot of a room, creating it if needed.
func (s *Service) State(ctx context.Context, roomID string) (internal.RoomSnapshot, error) {
	room, err := s.registry.Get(ctx, roomID)
	if err != nil {
		return internal.RoomSnapshot{}, err
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return s.snapshot(ctx, room)
}

// IsHost reports whether conn currently holds host mode in an existing room.
func (s *Service) IsHost(roomID, conn string) bool {
	room := s.registry.Lookup(roomID)
	if room == nil {
		return false
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.IsHost(conn)
}

// BroadcastRoom pushes fresh state to a room after an out-of-band change such
// as an HTTP pack import.
func (s *Service) BroadcastRoom(ctx context.Context, roomID string) {
	if room := s.registry.Lookup(roomID); room != nil {
		s.broadcastState(ctx, room)
	}
}
