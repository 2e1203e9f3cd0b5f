package game

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
)

// =============================================================================
// SPIN / GUESS / SOLVE
// =============================================================================

// Spin lands the wheel on a random wedge for the active player. The host may
// spin on the active player's behalf.
func (s *Service) Spin(ctx context.Context, c Caller, roomID string) error {
	return s.withRoom(ctx, c, roomID, "spin", func(room *internal.Room, out *outcome) error {
		if room.Phase != internal.PhaseNormal {
			return invalid("Spin is only allowed during normal rounds.")
		}
		if !room.IsActiveConn(c.Conn) && !room.IsHost(c.Conn) {
			return denied("Only the active player can spin.")
		}
		if room.ActivePlayer() == nil || len(room.Wheel) == 0 {
			return invalid("Add players before spinning.")
		}

		idx := room.Rand.Intn(len(room.Wheel))
		name := room.ActivePlayer().Name
		switch w := applySpin(room, idx); w.Kind {
		case internal.WedgeBankrupt:
			out.roomToast("%s hit BANKRUPT!", name)
		case internal.WedgeLoseATurn:
			out.roomToast("%s loses a turn.", name)
		}
		out.broadcast = true
		return nil
	})
}

// applySpin resolves landing on wheel slot idx. Bankrupt forfeits the round
// and passes the turn; lose-a-turn only passes it. Anything else waits for a
// guess.
func applySpin(room *internal.Room, idx int) internal.Wedge {
	w := room.Wheel[idx]
	spun, landed := idx, idx
	room.WheelIndex = &spun
	room.LastSpinIndex = &landed
	room.CurrentWedge = &w

	switch w.Kind {
	case internal.WedgeBankrupt:
		if p := room.ActivePlayer(); p != nil {
			p.ResetRoundState()
		}
		room.ClearTurnState()
		room.AdvancePlayer()
	case internal.WedgeLoseATurn:
		room.ClearTurnState()
		room.AdvancePlayer()
	}
	return w
}

// prizeCash picks a value from the room's prize replacement table.
func prizeCash(room *internal.Room) int {
	values := room.Config.PrizeReplaceCashValues
	if len(values) == 0 {
		return 1000
	}
	return values[room.Rand.Intn(len(values))]
}

func (s *Service) Guess(ctx context.Context, c Caller, req internal.GuessRequest) error {
	return s.withRoom(ctx, c, req.Room, "guess", func(room *internal.Room, out *outcome) error {
		if room.Phase != internal.PhaseNormal {
			return invalid("Letter guesses are only allowed during normal rounds.")
		}
		if !room.IsActiveConn(c.Conn) {
			return denied("Only the active player can guess.")
		}
		letter, ok := internal.ParseLetter(req.Letter)
		if !ok {
			return invalid("Enter a letter A-Z.")
		}
		if room.Used.Has(letter) {
			return invalid("%c already used.", letter)
		}

		p := room.ActivePlayer()
		vowel := internal.IsVowel(letter)
		if vowel && p.RoundBank < room.Config.VowelCost {
			return invalid("Need $%d to buy a vowel.", room.Config.VowelCost)
		}
		if !vowel && room.CurrentWedge == nil {
			return invalid("Spin before guessing a consonant.")
		}

		out.broadcast = true
		if vowel {
			p.RoundBank -= room.Config.VowelCost
		}
		room.Used.Add(letter)
		count := internal.CountLetter(room.Puzzle.Answer, letter)

		var wedge internal.Wedge
		if room.CurrentWedge != nil {
			wedge = *room.CurrentWedge
		}

		if count == 0 {
			switch wedge.Kind {
			case internal.WedgePrize:
				out.toast("Missed! Lost the prize and your turn.")
				room.ClearTurnState()
				room.AdvancePlayer()
			case internal.WedgeFreePlay:
				out.toast("No %c's.", letter)
				room.ClearTurnState()
			default:
				out.toast("No %c's.", letter)
				room.ClearTurnState()
				room.AdvancePlayer()
			}
			return nil
		}

		room.Revealed.Add(letter)
		if vowel {
			out.toast("%d %c(s).", count, letter)
			room.ClearTurnState()
			return nil
		}

		switch wedge.Kind {
		case internal.WedgeCash:
			won := wedge.Amount * count
			p.RoundBank += won
			out.toast("%d %c(s). +$%d", count, letter, won)
		case internal.WedgePrize:
			value := prizeCash(room)
			if !p.HasRoundPrize(wedge.Name) {
				p.RoundPrizes = append(p.RoundPrizes, internal.Prize{Name: wedge.Name, Value: value})
			}
			if i := room.LastSpinIndex; i != nil && *i >= 0 && *i < len(room.Wheel) {
				room.Wheel[*i] = internal.Cash(prizeCash(room))
			}
			out.toast("Prize banked: %s ($%d). Spin again!", wedge.Name, value)
		case internal.WedgeFreePlay:
			out.toast("%d %c(s). Free Play!", count, letter)
		default:
			out.toast("%d %c(s).", count, letter)
		}
		room.ClearTurnState()
		return nil
	})
}

// Solve compares the attempt with the answer. What a correct or wrong
// attempt does depends on the phase: a normal round banks the round, a
// toss-up pays the toss-up award and a running final pays the jackpot.
func (s *Service) Solve(ctx context.Context, c Caller, req internal.SolveRequest) error {
	return s.withRoom(ctx, c, req.Room, "solve", func(room *internal.Room, out *outcome) error {
		if strings.TrimSpace(req.Attempt) == "" {
			return invalid("Type a solve attempt.")
		}
		switch room.Phase {
		case internal.PhaseTossup:
			return s.solveTossup(ctx, room, c, req.Attempt, out)
		case internal.PhaseFinal:
			return solveFinal(room, c, req.Attempt, out)
		default:
			return s.solveNormal(ctx, room, c, req.Attempt, out)
		}
	})
}

func (s *Service) solveNormal(ctx context.Context, room *internal.Room, c Caller, attempt string, out *outcome) error {
	if !room.IsActiveConn(c.Conn) && !room.IsHost(c.Conn) {
		return denied("Only the active player can solve.")
	}
	out.broadcast = true

	if !room.SolveMatches(attempt) {
		out.toast("Incorrect solve.")
		room.ClearTurnState()
		room.AdvancePlayer()
		return nil
	}

	room.RevealAnswer()
	room.AwardRoundToActive()
	room.ClearTurnState()
	if p := room.ActivePlayer(); p != nil {
		log.Info().Str("room", room.Id).Str("player", p.Name).Int("total", p.Total).Msg("[Solve] puzzle solved")
	}

	ok, err := pickNextPuzzle(ctx, s.store, room)
	if err != nil {
		return err
	}
	if !ok {
		out.toast("Solved! No unused puzzles left (in this pack). New Game to reuse.")
	} else {
		out.toast("Solved! Next puzzle loaded (id: %d).", room.Puzzle.ID)
	}
	return nil
}

// solveTossup lets only the player who buzzed in answer. A wrong answer locks
// that connection out and resumes the reveal.
func (s *Service) solveTossup(ctx context.Context, room *internal.Room, c Caller, attempt string, out *outcome) error {
	if room.Tossup.ControllerConn == "" {
		return invalid("Buzz in before solving.")
	}
	if room.Tossup.ControllerConn != c.Conn {
		return denied("Only the player who buzzed in can solve.")
	}
	idx := room.PlayerIndexByConn(c.Conn)
	if idx < 0 {
		return denied("Claim a player slot first.")
	}
	p := room.Players[idx]
	out.broadcast = true

	if !room.SolveMatches(attempt) {
		room.Tossup.LockedConns[c.Conn] = true
		room.Tossup.ControllerConn = ""
		out.toast("Incorrect solve.")
		out.roomToast("%s is locked out of this toss-up.", p.Name)
		out.startReveal = true
		return nil
	}

	room.RevealAnswer()
	p.Total += internal.TossupAward
	room.ActiveIdx = idx
	room.Phase = internal.PhaseNormal
	room.ResetTossup()
	room.ClearTurnState()
	out.roomToast("%s solved the toss-up! +$%d", p.Name, internal.TossupAward)
	log.Info().Str("room", room.Id).Str("player", p.Name).Msg("[Solve] toss-up solved")

	ok, err := pickNextPuzzle(ctx, s.store, room)
	if err != nil {
		return err
	}
	if !ok {
		out.toast("No unused puzzles left (in this pack). New Game to reuse.")
	}
	return nil
}

// solveFinal pays the jackpot for a correct answer while the clock runs.
// A wrong answer costs nothing but time.
func solveFinal(room *internal.Room, c Caller, attempt string, out *outcome) error {
	switch room.Final.Stage {
	case internal.FinalPick:
		return invalid("Finish your picks before solving.")
	case internal.FinalRunning:
	default:
		return invalid("The final round is over.")
	}
	if !room.IsActiveConn(c.Conn) && !room.IsHost(c.Conn) {
		return denied("Only the active player can solve.")
	}

	if !room.SolveMatches(attempt) {
		out.toast("Incorrect solve.")
		return nil
	}

	room.RevealAnswer()
	room.Final.Stage = internal.FinalDone
	room.Final.EndsAt = time.Time{}
	room.Phase = internal.PhaseNormal
	jackpot := room.Config.FinalJackpot
	if p := room.ActivePlayer(); p != nil {
		p.Total += jackpot
		out.roomToast("%s won the final round! +$%d", p.Name, jackpot)
	} else {
		out.roomToast("Final puzzle solved!")
	}
	out.broadcast = true
	return nil
}
