package game

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

// =============================================================================
// LOBBY - ROOM MEMBERSHIP, HOST AND PLAYER CLAIMS
// =============================================================================

// Join subscribes the connection to the room and restores a player slot the
// caller's account held before reconnecting.
func (s *Service) Join(ctx context.Context, c Caller, roomID string) error {
	roomID = normalizeRoomID(roomID)
	s.out.Join(roomID, c.Conn)

	if err := s.store.TouchRoom(ctx, roomID, c.UserID); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("[Join] failed to record room activity")
	}

	return s.withRoom(ctx, c, roomID, "join", func(room *internal.Room, out *outcome) error {
		out.replyState = true
		if c.UserID == 0 {
			return nil
		}
		for i, p := range room.Players {
			if p.ClaimedUserID == c.UserID && p.ClaimedConn == "" {
				releaseConn(room, c.Conn)
				p.ClaimedConn = c.Conn
				out.you(i)
				out.toast("Restored your claim on %s.", p.Name)
				out.broadcast = true
				break
			}
		}
		return nil
	})
}

func (s *Service) ListPacks(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "list_packs", func(room *internal.Room, out *outcome) error {
		packs, err := s.store.ListPacks(ctx)
		if err != nil {
			return err
		}
		out.reply("packs", internal.PacksData{Packs: packs})
		out.replyState = true
		return nil
	})
}

// parsePackID accepts null, a JSON number or a numeric string.
func parsePackID(raw json.RawMessage) (*int64, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, true
	}
	var unquoted string
	if err := json.Unmarshal(raw, &unquoted); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func (s *Service) SetActivePack(ctx context.Context, c Caller, req internal.SetActivePackRequest) error {
	return s.withRoom(ctx, c, req.Room, "set_active_pack", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		packID, ok := parsePackID(req.PackID)
		if !ok {
			return invalid("Bad pack id.")
		}
		if err := s.store.SetActivePack(ctx, room.Id, packID); err != nil {
			return err
		}
		room.Config.ActivePackID = packID

		label := "ALL"
		if packID != nil {
			name, err := s.store.PackName(ctx, *packID)
			switch {
			case err == nil:
				label = name
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}
		out.toast("Active pack set to: %s", label)
		out.broadcast = true
		return nil
	})
}

func (s *Service) ClaimHost(ctx context.Context, c Caller, req internal.ClaimHostRequest) error {
	return s.withRoom(ctx, c, req.Room, "claim_host", func(room *internal.Room, out *outcome) error {
		if subtle.ConstantTimeCompare([]byte(req.Code), []byte(s.opts.HostCode)) != 1 {
			out.toast("Invalid host code.")
			out.reply("host_granted", internal.HostGrantedData{Granted: false})
			return nil
		}
		room.HostConn = c.Conn
		out.reply("host_granted", internal.HostGrantedData{Granted: true})
		out.toast("Host mode enabled on this device.")
		out.broadcast = true
		log.Info().Str("room", room.Id).Str("conn", c.Conn).Msg("[ClaimHost] host claimed")
		return nil
	})
}

func (s *Service) ReleaseHost(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "release_host", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return denied("Only the host can release host mode.")
		}
		room.HostConn = ""
		out.reply("host_granted", internal.HostGrantedData{Granted: false})
		out.toast("Host released.")
		out.broadcast = true
		return nil
	})
}

// releaseConn drops any slot conn currently drives so a connection never
// holds two players.
func releaseConn(room *internal.Room, conn string) {
	for _, p := range room.Players {
		if p.ClaimedConn == conn {
			p.ClaimedConn = ""
		}
	}
}

func (s *Service) ClaimPlayer(ctx context.Context, c Caller, req internal.ClaimPlayerRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" && c.UserID != 0 {
		user, err := s.store.UserByID(ctx, c.UserID)
		switch {
		case err == nil:
			name = user.DisplayName
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("claim_player: %w", err)
		}
	}

	return s.withRoom(ctx, c, req.Room, "claim_player", func(room *internal.Room, out *outcome) error {
		if req.PlayerID == nil {
			return invalid("Choose a player slot to claim.")
		}
		pid := *req.PlayerID
		if pid < 0 || pid >= len(room.Players) {
			return invalid("Bad player slot.")
		}
		p := room.Players[pid]
		if p.ClaimedUserID != 0 && p.ClaimedUserID != c.UserID {
			return denied("That player slot is claimed by another user.")
		}
		if p.ClaimedConn != "" && p.ClaimedConn != c.Conn && p.ClaimedUserID == 0 {
			return denied("That player slot is already claimed.")
		}

		for _, other := range room.Players {
			if other.ClaimedConn == c.Conn {
				other.ClaimedConn = ""
			}
			if c.UserID != 0 && other.ClaimedUserID == c.UserID {
				other.ClaimedUserID = 0
			}
		}
		p.ClaimedConn = c.Conn
		p.ClaimedUserID = c.UserID
		if name != "" {
			p.Name = internal.Truncate(name, internal.MaxPlayerNameLen)
		}

		out.you(pid)
		out.toast("You claimed %s.", p.Name)
		out.broadcast = true
		return nil
	})
}

func (s *Service) ReleasePlayer(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "release_player", func(room *internal.Room, out *outcome) error {
		changed := false
		for _, p := range room.Players {
			switch {
			case p.ClaimedConn == c.Conn:
				p.ClaimedConn = ""
				p.ClaimedUserID = 0
				changed = true
			case c.UserID != 0 && p.ClaimedUserID == c.UserID:
				p.ClaimedUserID = 0
				changed = true
			}
		}
		if changed {
			out.you(-1)
			out.toast("Released your player slot.")
			out.broadcast = true
		}
		return nil
	})
}

// JoinGame adds the logged-in caller as a new player, or reattaches the
// connection to the slot already bound to the account.
func (s *Service) JoinGame(ctx context.Context, c Caller, roomID string) error {
	if c.UserID == 0 {
		s.out.Send(c.Conn, toastMsg("You must be logged in to join the game."))
		return nil
	}
	user, err := s.store.UserByID(ctx, c.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.out.Send(c.Conn, toastMsg("User not found. Please log in again."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("join_game: %w", err)
	}

	roomID = normalizeRoomID(roomID)
	s.out.Join(roomID, c.Conn)

	return s.withRoom(ctx, c, roomID, "join_game", func(room *internal.Room, out *outcome) error {
		name := internal.Truncate(user.DisplayName, internal.MaxPlayerNameLen)
		out.broadcast = true

		if i := room.PlayerIndexByUser(c.UserID); i >= 0 {
			releaseConn(room, c.Conn)
			p := room.Players[i]
			p.ClaimedConn = c.Conn
			p.Name = name
			out.you(i)
			return nil
		}

		releaseConn(room, c.Conn)
		p := internal.NewPlayer(len(room.Players), name)
		p.ClaimedConn = c.Conn
		p.ClaimedUserID = c.UserID
		room.Players = append(room.Players, p)

		out.you(p.Id)
		out.toast("Joined as %s!", name)
		log.Info().Str("room", room.Id).Int64("user", c.UserID).Int("player", p.Id).Msg("[JoinGame] player added")
		return nil
	})
}

func (s *Service) LeaveGame(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "leave_game", func(room *internal.Room, out *outcome) error {
		idx := room.PlayerIndexByConn(c.Conn)
		if idx < 0 {
			idx = room.PlayerIndexByUser(c.UserID)
		}
		if idx < 0 {
			return invalid("You're not in this game.")
		}

		removed := room.RemovePlayer(idx)
		out.you(-1)
		out.toast("%s left the game.", removed.Name)
		out.broadcast = true
		return nil
	})
}

// =============================================================================
// HOST ADMINISTRATION
// =============================================================================

func (s *Service) SetActivePlayer(ctx context.Context, c Caller, req internal.SetActivePlayerRequest) error {
	return s.withRoom(ctx, c, req.Room, "set_active_player", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		if req.PlayerIdx == nil || *req.PlayerIdx < 0 || *req.PlayerIdx >= len(room.Players) {
			return invalid("Invalid player index.")
		}
		room.SetActive(*req.PlayerIdx)
		out.toast("Active player set to %s.", room.Players[room.ActiveIdx].Name)
		out.broadcast = true
		return nil
	})
}

// decodeNames reads a JSON array, stringifying non-string entries.
func decodeNames(raw json.RawMessage) ([]string, bool) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	names := make([]string, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			names[i] = strings.TrimSpace(v)
		case nil:
			names[i] = ""
		default:
			names[i] = fmt.Sprint(v)
		}
	}
	return names, true
}

func (s *Service) SetPlayers(ctx context.Context, c Caller, req internal.NamesRequest) error {
	return s.withRoom(ctx, c, req.Room, "set_players", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		names, ok := decodeNames(req.Names)
		if !ok || len(names) == 0 {
			return invalid("Provide a list of player names.")
		}

		room.Players = make([]*internal.Player, len(names))
		for i, name := range names {
			room.Players[i] = internal.NewPlayer(i, name)
		}
		room.ActiveIdx = 0
		room.ClearTurnState()
		room.Tossup.AllowedPlayerIdxs = nil
		room.Tossup.IsTiebreaker = false
		out.toast("Set %d players.", len(room.Players))
		out.broadcast = true
		return nil
	})
}

// SetPrizeNames renames the prize wedges in wheel order; empty entries keep
// the existing name.
func (s *Service) SetPrizeNames(ctx context.Context, c Caller, req internal.NamesRequest) error {
	return s.withRoom(ctx, c, req.Room, "set_prize_names", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		names, ok := decodeNames(req.Names)
		if !ok {
			return invalid("Provide a list of prize names.")
		}

		prizeIdx := 0
		for i, w := range room.Wheel {
			if w.Kind != internal.WedgePrize {
				continue
			}
			if prizeIdx < len(names) && names[prizeIdx] != "" {
				room.Wheel[i] = internal.PrizeWedge(internal.Truncate(names[prizeIdx], internal.MaxPrizeNameLen))
			}
			prizeIdx++
		}
		out.toast("Updated %d prize names.", min(prizeIdx, len(names)))
		out.broadcast = true
		return nil
	})
}

// SetConfig merges a partial config into the room's stored config.
func (s *Service) SetConfig(ctx context.Context, c Caller, req internal.SetConfigRequest) error {
	return s.withRoom(ctx, c, req.Room, "set_config", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		var patch internal.ConfigPatch
		raw := strings.TrimSpace(string(req.Config))
		if !strings.HasPrefix(raw, "{") || json.Unmarshal(req.Config, &patch) != nil {
			return invalid("Invalid config.")
		}
		for _, v := range []*int{patch.VowelCost, patch.FinalSeconds, patch.FinalJackpot} {
			if v != nil && *v < 0 {
				return invalid("Invalid config.")
			}
		}

		cfg := room.Config
		if patch.VowelCost != nil {
			cfg.VowelCost = *patch.VowelCost
		}
		if patch.FinalSeconds != nil {
			cfg.FinalSeconds = *patch.FinalSeconds
		}
		if patch.FinalJackpot != nil {
			cfg.FinalJackpot = *patch.FinalJackpot
		}
		if patch.PrizeReplaceCashValues != nil {
			values := make([]int, 0, len(*patch.PrizeReplaceCashValues))
			for _, v := range *patch.PrizeReplaceCashValues {
				if v > 0 {
					values = append(values, v)
				}
			}
			cfg.PrizeReplaceCashValues = values
		}

		if err := s.store.SaveRoomConfig(ctx, room.Id, cfg); err != nil {
			return err
		}
		saved, err := s.store.RoomConfig(ctx, room.Id)
		if err != nil {
			return err
		}
		room.Config = saved

		out.toast("Config saved.")
		out.broadcast = true
		return nil
	})
}

// LoadPack stores newline separated "category|answer" puzzles under a pack name.
func (s *Service) LoadPack(ctx context.Context, c Caller, req internal.LoadPackRequest) error {
	return s.withRoom(ctx, c, req.Room, "load_pack", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		name := strings.TrimSpace(req.PackName)
		if name == "" {
			return invalid("Pack name is required.")
		}
		lines := store.ParsePackText(req.Text)
		if len(lines) == 0 {
			return invalid("No valid lines found.")
		}

		packID, err := s.store.EnsurePack(ctx, name)
		if err != nil {
			return err
		}
		n, err := s.store.AddPuzzles(ctx, &packID, lines)
		if err != nil {
			return err
		}
		out.toast("Saved pack '%s' with %d puzzles.", name, n)
		out.broadcast = true
		log.Info().Str("room", room.Id).Str("pack", name).Int("added", n).Msg("[LoadPack] pack saved")
		return nil
	})
}
