package internal

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultRoom         = "main"
	DefaultVowelCost    = 250
	DefaultFinalSeconds = 30
	DefaultFinalJackpot = 10000
	TossupAward         = 1000
	MaxPlayerNameLen    = 24
	MaxPrizeNameLen     = 30
	FinalConsonantPicks = 3
	FinalRSTLNE         = "RSTLNE"
	Vowels              = "AEIOU"
)

// DefaultPrizeReplaceCash is the pool a won prize wedge is valued from and replaced with.
var DefaultPrizeReplaceCash = []int{500, 1000, 1500, 2000, 2500, 3000, 3500}

// FallbackPuzzle is loaded when the puzzle store has nothing left for a new room.
var FallbackPuzzle = Puzzle{ID: 0, Category: "Phrase", Answer: "JINGLE ALL THE WAY"}

type GamePhase string

const (
	PhaseNormal GamePhase = "normal"
	PhaseTossup GamePhase = "tossup"
	PhaseFinal  GamePhase = "final"
)

type FinalStage string

const (
	FinalOff     FinalStage = "off"
	FinalPick    FinalStage = "pick"
	FinalRunning FinalStage = "running"
	FinalDone    FinalStage = "done"
)

type PickKind string

const (
	PickConsonant PickKind = "consonant"
	PickVowel     PickKind = "vowel"
)

type Puzzle struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

type Pack struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PuzzleCount int    `json:"puzzle_count"`
}

type PuzzleCounts struct {
	Total  int `json:"total"`
	Used   int `json:"used"`
	Unused int `json:"unused"`
}

// Config holds the per-room tunables that live in the config store.
type Config struct {
	VowelCost              int    `json:"vowel_cost"`
	FinalSeconds           int    `json:"final_seconds"`
	FinalJackpot           int    `json:"final_jackpot"`
	PrizeReplaceCashValues []int  `json:"prize_replace_cash_values"`
	UpdatedAt              int64  `json:"updated_at"`
	ActivePackID           *int64 `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		VowelCost:              DefaultVowelCost,
		FinalSeconds:           DefaultFinalSeconds,
		FinalJackpot:           DefaultFinalJackpot,
		PrizeReplaceCashValues: append([]int(nil), DefaultPrizeReplaceCash...),
	}
}

type TossupState struct {
	ControllerConn    string
	LockedConns       map[string]bool
	RevealOrder       []rune
	AllowedPlayerIdxs []int
	IsTiebreaker      bool
	RevealRunning     bool
}

type FinalState struct {
	Stage        FinalStage
	Consonants   []rune
	Vowel        rune
	EndsAt       time.Time
	TimerRunning bool
}

type Room struct {
	Id     string
	Config Config

	Players   []*Player
	ActiveIdx int

	// Puzzle state
	Puzzle   Puzzle
	Revealed LetterSet
	Used     LetterSet

	// Wheel
	Wheel         []Wedge
	WheelIndex    *int
	LastSpinIndex *int
	CurrentWedge  *Wedge

	HostConn string

	Phase  GamePhase
	Tossup TossupState
	Final  FinalState

	// Rand and Now are only touched while Mu is held.
	Rand *rand.Rand
	Now  func() time.Time

	// Concurrency control
	Mu sync.RWMutex

	// Context for background loops
	Context context.Context
	Cancel  context.CancelFunc
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

type RoomActivity struct {
	Name           string    `json:"name"`
	CreatedBy      *int64    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	IsPublic       bool      `json:"is_public"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
