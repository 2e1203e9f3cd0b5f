package internal

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// NewRoom returns a room in phase normal with no players, no puzzle and an
// unshuffled wheel. Callers load the wheel and puzzle.
func NewRoom(id string, rng *rand.Rand, now func() time.Time) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	return &Room{
		Id:       id,
		Config:   DefaultConfig(),
		Players:  make([]*Player, 0),
		Revealed: LetterSet{},
		Used:     LetterSet{},
		Phase:    PhaseNormal,
		Tossup:   TossupState{LockedConns: map[string]bool{}},
		Final:    FinalState{Stage: FinalOff},
		Rand:     rng,
		Now:      now,
		Context:  ctx,
		Cancel:   cancel,
	}
}

// Methods (Room Struct). All of them expect Mu to be held by the caller.

func (r *Room) ActivePlayer() *Player {
	if len(r.Players) == 0 || r.ActiveIdx < 0 || r.ActiveIdx >= len(r.Players) {
		return nil
	}
	return r.Players[r.ActiveIdx]
}

// PlayerIndexByConn returns the slot claimed by conn, or -1.
func (r *Room) PlayerIndexByConn(conn string) int {
	if conn == "" {
		return -1
	}
	for i, p := range r.Players {
		if p.ClaimedConn == conn {
			return i
		}
	}
	return -1
}

func (r *Room) PlayerIndexByUser(userID int64) int {
	if userID == 0 {
		return -1
	}
	for i, p := range r.Players {
		if p.ClaimedUserID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) IsHost(conn string) bool {
	return conn != "" && r.HostConn == conn
}

func (r *Room) IsActiveConn(conn string) bool {
	p := r.ActivePlayer()
	return p != nil && conn != "" && p.ClaimedConn == conn
}

// ClearTurnState drops the current spin. LastSpinIndex is kept so a won prize
// wedge can still be replaced.
func (r *Room) ClearTurnState() {
	r.CurrentWedge = nil
	r.WheelIndex = nil
}

func (r *Room) AdvancePlayer() {
	if len(r.Players) == 0 {
		r.ActiveIdx = 0
		return
	}
	r.ActiveIdx = (r.ActiveIdx + 1) % len(r.Players)
	r.ClearTurnState()
}

func (r *Room) ResetRoundBanks() {
	for _, p := range r.Players {
		p.ResetRoundState()
	}
}

func (r *Room) SetPuzzle(pz Puzzle) {
	pz.Answer = strings.ToUpper(pz.Answer)
	r.Puzzle = pz
	r.Revealed = LetterSet{}
	r.Used = LetterSet{}
	r.ResetRoundBanks()
	r.ClearTurnState()
	r.LastSpinIndex = nil
}

func (r *Room) AwardRoundToActive() {
	if p := r.ActivePlayer(); p != nil {
		p.BankRound()
	}
}

func (r *Room) RevealAnswer() {
	for _, ch := range AnswerLetters(r.Puzzle.Answer) {
		r.Revealed.Add(ch)
	}
}

func (r *Room) SolveMatches(attempt string) bool {
	attempt = strings.ToUpper(strings.TrimSpace(attempt))
	return attempt != "" && attempt == strings.ToUpper(strings.TrimSpace(r.Puzzle.Answer))
}

// RemovePlayer deletes slot idx, renumbers the rest and keeps the active
// pointer on the same player where possible.
func (r *Room) RemovePlayer(idx int) *Player {
	if idx < 0 || idx >= len(r.Players) {
		return nil
	}
	removed := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	for i, p := range r.Players {
		p.Id = i
	}
	switch {
	case idx < r.ActiveIdx:
		r.ActiveIdx--
	case idx == r.ActiveIdx:
		// the turn passes to whoever now holds the slot
		r.ClearTurnState()
		if r.ActiveIdx >= len(r.Players) {
			r.ActiveIdx = 0
		}
	}

	if r.Tossup.AllowedPlayerIdxs != nil {
		allowed := make([]int, 0, len(r.Tossup.AllowedPlayerIdxs))
		for _, i := range r.Tossup.AllowedPlayerIdxs {
			switch {
			case i < idx:
				allowed = append(allowed, i)
			case i > idx:
				allowed = append(allowed, i-1)
			}
		}
		r.Tossup.AllowedPlayerIdxs = allowed
	}
	return removed
}

// SetActive hands the turn to player idx. A spin taken by the previous
// player does not carry over.
func (r *Room) SetActive(idx int) {
	if idx != r.ActiveIdx {
		r.ClearTurnState()
	}
	r.ActiveIdx = idx
}

// =============================================================================
// TOSS-UP
// =============================================================================

func (r *Room) ResetTossup() {
	r.Tossup.ControllerConn = ""
	r.Tossup.LockedConns = map[string]bool{}
	r.Tossup.RevealOrder = nil
	r.Tossup.AllowedPlayerIdxs = nil
	r.Tossup.IsTiebreaker = false
}

func (r *Room) BuildTossupRevealOrder() {
	letters := AnswerLetters(r.Puzzle.Answer)
	r.Rand.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
	r.Tossup.RevealOrder = letters
}

// TossupRevealStep pops up to n letters off the reveal order and returns how
// many of them were not already revealed.
func (r *Room) TossupRevealStep(n int) int {
	newly := 0
	for i := 0; i < n && len(r.Tossup.RevealOrder) > 0; i++ {
		last := len(r.Tossup.RevealOrder) - 1
		ch := r.Tossup.RevealOrder[last]
		r.Tossup.RevealOrder = r.Tossup.RevealOrder[:last]
		if !r.Revealed.Has(ch) {
			r.Revealed.Add(ch)
			newly++
		}
	}
	return newly
}

// =============================================================================
// FINAL ROUND
// =============================================================================

func (r *Room) ResetFinal() {
	r.Final.Stage = FinalOff
	r.Final.Consonants = nil
	r.Final.Vowel = 0
	r.Final.EndsAt = time.Time{}
}

func (r *Room) FinalAllPicksComplete() bool {
	return len(r.Final.Consonants) >= FinalConsonantPicks && r.Final.Vowel != 0
}

func (r *Room) FinalRevealPicks() {
	for _, ch := range r.Final.Consonants {
		r.Revealed.Add(ch)
		r.Used.Add(ch)
	}
	if r.Final.Vowel != 0 {
		r.Revealed.Add(r.Final.Vowel)
		r.Used.Add(r.Final.Vowel)
	}
}

// FinalRemainingSeconds is nil when no countdown is armed.
func (r *Room) FinalRemainingSeconds() *int {
	if r.Final.EndsAt.IsZero() {
		return nil
	}
	rem := int(r.Final.EndsAt.Sub(r.Now()) / time.Second)
	rem = max(rem, 0)
	return &rem
}
