package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

// snapshot serializes the room for broadcast. Caller holds room.Mu.
func (s *Service) snapshot(ctx context.Context, room *internal.Room) (internal.RoomSnapshot, error) {
	counts, err := s.store.Counts(ctx, room.Id, room.Config.ActivePackID)
	if err != nil {
		return internal.RoomSnapshot{}, fmt.Errorf("puzzle counts: %w", err)
	}
	packs, err := s.store.ListPacks(ctx)
	if err != nil {
		return internal.RoomSnapshot{}, fmt.Errorf("list packs: %w", err)
	}
	var packName *string
	if room.Config.ActivePackID != nil {
		name, err := s.store.PackName(ctx, *room.Config.ActivePackID)
		switch {
		case err == nil:
			packName = &name
		case !errors.Is(err, store.ErrNotFound):
			return internal.RoomSnapshot{}, fmt.Errorf("pack name: %w", err)
		}
	}

	snap := BuildSnapshot(room)
	snap.DB = counts
	snap.Packs = packs
	snap.ActivePackName = packName
	return snap, nil
}

// BuildSnapshot copies the in-memory part of the room state. Caller holds room.Mu.
func BuildSnapshot(room *internal.Room) internal.RoomSnapshot {
	players := make([]internal.PlayerSnapshot, len(room.Players))
	for i, p := range room.Players {
		players[i] = internal.CreatePlayerSnapshot(p)
	}

	var wheelIndex *int
	if room.WheelIndex != nil {
		idx := *room.WheelIndex
		wheelIndex = &idx
	}
	var wedge *internal.Wedge
	if room.CurrentWedge != nil {
		w := *room.CurrentWedge
		wedge = &w
	}
	var activePack *int64
	if room.Config.ActivePackID != nil {
		id := *room.Config.ActivePackID
		activePack = &id
	}

	cfg := room.Config
	cfg.PrizeReplaceCashValues = append([]int{}, cfg.PrizeReplaceCashValues...)

	return internal.RoomSnapshot{
		Room:         room.Id,
		Phase:        room.Phase,
		Players:      players,
		ActiveIdx:    room.ActiveIdx,
		Puzzle:       room.Puzzle,
		Revealed:     room.Revealed.Sorted(),
		Used:         room.Used.Sorted(),
		CurrentWedge: wedge,
		WheelIndex:   wheelIndex,
		WheelSlots:   append([]internal.Wedge{}, room.Wheel...),
		Host:         internal.HostSnapshot{Claimed: room.HostConn != ""},
		Packs:        []internal.Pack{},
		ActivePackID: activePack,
		Config:       cfg,
		Tossup:       tossupSnapshot(room),
		Final:        finalSnapshot(room),
		TVWinnerIdxs: PickTVWinnerIndexes(room.Players),
	}
}

func tossupSnapshot(room *internal.Room) internal.TossupSnapshot {
	ts := internal.TossupSnapshot{
		LockedPlayerIdxs:  []int{},
		AllowedPlayerIdxs: append([]int{}, room.Tossup.AllowedPlayerIdxs...),
		IsTiebreaker:      room.Tossup.IsTiebreaker,
	}
	if idx := room.PlayerIndexByConn(room.Tossup.ControllerConn); idx >= 0 {
		ts.ControllerPlayerIdx = &idx
	}
	for i, p := range room.Players {
		if p.ClaimedConn != "" && room.Tossup.LockedConns[p.ClaimedConn] {
			ts.LockedPlayerIdxs = append(ts.LockedPlayerIdxs, i)
		}
	}
	return ts
}

func finalSnapshot(room *internal.Room) internal.FinalSnapshot {
	picks := internal.FinalPicks{Consonants: make([]string, 0, len(room.Final.Consonants))}
	for _, ch := range room.Final.Consonants {
		picks.Consonants = append(picks.Consonants, string(ch))
	}
	if room.Final.Vowel != 0 {
		v := string(room.Final.Vowel)
		picks.Vowel = &v
	}
	return internal.FinalSnapshot{
		Stage:            room.Final.Stage,
		Picks:            picks,
		RemainingSeconds: room.FinalRemainingSeconds(),
		Jackpot:          room.Config.FinalJackpot,
	}
}
