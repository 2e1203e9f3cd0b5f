package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/wheel"
)

// =============================================================================
// GAME FLOW - PUZZLES, TOSS-UP AND FINAL ROUND
// =============================================================================

func (s *Service) NewPuzzle(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "new_puzzle", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		ok, err := pickNextPuzzle(ctx, s.store, room)
		if err != nil {
			return err
		}
		if !ok {
			return exhausted("No unused puzzles left in this pack (or DB). New Game to reuse.")
		}
		out.toast("New puzzle loaded (id: %d).", room.Puzzle.ID)
		out.broadcast = true
		return nil
	})
}

// NewGame zeroes every score, reshuffles the wheel and makes the whole puzzle
// pool available to the room again.
func (s *Service) NewGame(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "new_game", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		if err := s.store.ClearUsed(ctx, room.Id); err != nil {
			return err
		}

		for _, p := range room.Players {
			p.ResetScores()
		}
		room.ActiveIdx = 0
		room.Wheel = wheel.Build(wheel.Base(), room.Rand)
		room.Revealed = internal.LetterSet{}
		room.Used = internal.LetterSet{}
		room.ClearTurnState()
		room.LastSpinIndex = nil
		room.Phase = internal.PhaseNormal
		room.ResetTossup()
		room.ResetFinal()

		if _, err := pickNextPuzzle(ctx, s.store, room); err != nil {
			return err
		}
		out.toast("New game started.")
		out.broadcast = true
		log.Info().Str("room", room.Id).Int64("puzzle", room.Puzzle.ID).Msg("[NewGame] game reset")
		return nil
	})
}

// ===== TOSS-UP =====

// StartTossup hides the board and starts revealing letters at random. A
// tiebreaker toss-up only accepts buzzes from the players tied for the lead.
func (s *Service) StartTossup(ctx context.Context, c Caller, req internal.StartTossupRequest) error {
	return s.withRoom(ctx, c, req.Room, "start_tossup", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}

		room.Phase = internal.PhaseTossup
		room.ResetFinal()
		room.ResetTossup()
		room.Revealed = internal.LetterSet{}
		room.Used = internal.LetterSet{}
		room.BuildTossupRevealOrder()
		room.ClearTurnState()

		if req.Tiebreaker && len(room.Players) > 0 {
			room.Tossup.AllowedPlayerIdxs = PickTVWinnerIndexes(room.Players)
			room.Tossup.IsTiebreaker = true
			out.roomToast("Tiebreaker toss-up started!")
		} else {
			out.roomToast("Toss-up started!")
		}
		out.broadcast = true
		out.startReveal = true
		return nil
	})
}

func (s *Service) EndTossup(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "end_tossup", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		room.Phase = internal.PhaseNormal
		room.ResetTossup()
		out.toast("Toss-up ended.")
		out.broadcast = true
		return nil
	})
}

// Buzz gives the first eligible claimed player control of the toss-up.
func (s *Service) Buzz(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "buzz", func(room *internal.Room, out *outcome) error {
		if room.Phase != internal.PhaseTossup {
			return invalid("Buzz is only available during toss-up.")
		}
		if room.Tossup.LockedConns[c.Conn] {
			return denied("You are locked out for this toss-up.")
		}
		if room.Tossup.ControllerConn != "" {
			return denied("Someone else already buzzed in.")
		}
		idx := room.PlayerIndexByConn(c.Conn)
		if idx < 0 {
			return denied("Claim a player slot first.")
		}
		if room.Tossup.IsTiebreaker && !containsInt(room.Tossup.AllowedPlayerIdxs, idx) {
			return denied("You are not allowed to buzz in this round.")
		}

		room.Tossup.ControllerConn = c.Conn
		room.ActiveIdx = idx
		room.ClearTurnState()
		out.roomToast("%s buzzed in!", room.Players[idx].Name)
		out.broadcast = true
		return nil
	})
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// ===== FINAL ROUND =====

// StartFinal loads a fresh puzzle with RSTLNE shown and waits for the active
// player's picks. When the pool is empty the current puzzle is reused.
func (s *Service) StartFinal(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "start_final", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}

		ok, err := pickNextPuzzle(ctx, s.store, room)
		if err != nil {
			return err
		}
		if !ok {
			room.Revealed = internal.LetterSet{}
			room.Used = internal.LetterSet{}
			out.toast("No unused puzzles left; the final uses the current puzzle.")
		}

		room.Phase = internal.PhaseFinal
		room.ResetTossup()
		room.ResetFinal()
		room.Final.Stage = internal.FinalPick
		room.ClearTurnState()
		for _, ch := range internal.FinalRSTLNE {
			room.Revealed.Add(ch)
			room.Used.Add(ch)
		}

		out.roomToast("Final round started! Pick 3 consonants and 1 vowel.")
		out.broadcast = true
		return nil
	})
}

func (s *Service) EndFinal(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "end_final", func(room *internal.Room, out *outcome) error {
		if !room.IsHost(c.Conn) {
			return errHostOnly
		}
		room.Phase = internal.PhaseNormal
		room.ResetFinal()
		out.toast("Final round ended.")
		out.broadcast = true
		return nil
	})
}

// FinalPick records one of the active player's three consonants or their
// vowel. The last pick reveals them all and starts the clock.
func (s *Service) FinalPick(ctx context.Context, c Caller, req internal.FinalPickRequest) error {
	return s.withRoom(ctx, c, req.Room, "final_pick", func(room *internal.Room, out *outcome) error {
		if room.Phase != internal.PhaseFinal || room.Final.Stage != internal.FinalPick {
			return invalid("Not in final pick phase.")
		}
		if idx := room.PlayerIndexByConn(c.Conn); idx < 0 || idx != room.ActiveIdx {
			return denied("Only the active player can pick.")
		}
		letter, ok := internal.ParseLetter(req.Letter)
		if !ok {
			return invalid("Enter a letter A-Z.")
		}
		if room.Used.Has(letter) {
			return invalid("%c already picked or in RSTLNE.", letter)
		}

		switch req.Kind {
		case internal.PickConsonant:
			if internal.IsVowel(letter) {
				return invalid("%c is a vowel.", letter)
			}
			if len(room.Final.Consonants) >= internal.FinalConsonantPicks {
				return invalid("Already picked 3 consonants.")
			}
			room.Final.Consonants = append(room.Final.Consonants, letter)
			out.toast("Picked consonant: %c", letter)
		case internal.PickVowel:
			if !internal.IsVowel(letter) {
				return invalid("%c is not a vowel.", letter)
			}
			if room.Final.Vowel != 0 {
				return invalid("Already picked a vowel.")
			}
			room.Final.Vowel = letter
			out.toast("Picked vowel: %c", letter)
		default:
			return invalid("Invalid pick kind.")
		}
		room.Used.Add(letter)
		out.broadcast = true

		if room.FinalAllPicksComplete() {
			room.FinalRevealPicks()
			room.Final.Stage = internal.FinalRunning
			room.Final.EndsAt = room.Now().Add(time.Duration(room.Config.FinalSeconds) * time.Second)
			out.roomToast("All picks complete! Solve now!")
			out.startCountdown = true
			log.Info().Str("room", room.Id).Int("seconds", room.Config.FinalSeconds).Msg("[FinalPick] final clock started")
		}
		return nil
	})
}
