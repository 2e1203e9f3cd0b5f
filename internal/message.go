package internal

import "encoding/json"

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Outbound payloads

type ToastData struct {
	Msg string `json:"msg"`
}

type YouData struct {
	PlayerIdx *int `json:"player_idx"`
}

type HostGrantedData struct {
	Granted bool `json:"granted"`
}

type PacksData struct {
	Packs []Pack `json:"packs"`
}

type HelloData struct {
	ConnID string `json:"conn_id"`
}

type HostSnapshot struct {
	Claimed bool `json:"claimed"`
}

type TossupSnapshot struct {
	ControllerPlayerIdx *int  `json:"controller_player_idx"`
	LockedPlayerIdxs    []int `json:"locked_player_idxs"`
	AllowedPlayerIdxs   []int `json:"allowed_player_idxs"`
	IsTiebreaker        bool  `json:"is_tiebreaker"`
}

type FinalPicks struct {
	Consonants []string `json:"consonants"`
	Vowel      *string  `json:"vowel"`
}

type FinalSnapshot struct {
	Stage            FinalStage `json:"stage"`
	Picks            FinalPicks `json:"picks"`
	RemainingSeconds *int       `json:"remaining_seconds"`
	Jackpot          int        `json:"jackpot"`
}

// RoomSnapshot is the full "state" payload broadcast to a room.
type RoomSnapshot struct {
	Room           string           `json:"room"`
	Phase          GamePhase        `json:"phase"`
	Players        []PlayerSnapshot `json:"players"`
	ActiveIdx      int              `json:"active_idx"`
	Puzzle         Puzzle           `json:"puzzle"`
	Revealed       []string         `json:"revealed"`
	Used           []string         `json:"used"`
	CurrentWedge   *Wedge           `json:"current_wedge"`
	WheelIndex     *int             `json:"wheel_index"`
	WheelSlots     []Wedge          `json:"wheel_slots"`
	Host           HostSnapshot     `json:"host"`
	DB             PuzzleCounts     `json:"db"`
	Packs          []Pack           `json:"packs"`
	ActivePackID   *int64           `json:"active_pack_id"`
	ActivePackName *string          `json:"active_pack_name"`
	Config         Config           `json:"config"`
	Tossup         TossupSnapshot   `json:"tossup"`
	Final          FinalSnapshot    `json:"final"`
	TVWinnerIdxs   []int            `json:"tv_winner_idxs"`
}

// Inbound payloads. Every command carries the room it targets.

type RoomRequest struct {
	Room string `json:"room"`
}

type ClaimHostRequest struct {
	Room string `json:"room"`
	Code string `json:"code"`
}

type ClaimPlayerRequest struct {
	Room     string `json:"room"`
	PlayerID *int   `json:"player_id"`
	Name     string `json:"name"`
}

type SetActivePackRequest struct {
	Room   string          `json:"room"`
	PackID json.RawMessage `json:"pack_id"`
}

type LoadPackRequest struct {
	Room     string `json:"room"`
	PackName string `json:"pack_name"`
	Text     string `json:"text"`
}

type SetActivePlayerRequest struct {
	Room      string `json:"room"`
	PlayerIdx *int   `json:"player_idx"`
}

type GuessRequest struct {
	Room   string `json:"room"`
	Letter string `json:"letter"`
}

type SolveRequest struct {
	Room    string `json:"room"`
	Attempt string `json:"attempt"`
}

type StartTossupRequest struct {
	Room       string `json:"room"`
	Tiebreaker bool   `json:"tiebreaker"`
}

type FinalPickRequest struct {
	Room   string   `json:"room"`
	Kind   PickKind `json:"kind"`
	Letter string   `json:"letter"`
}

type NamesRequest struct {
	Room  string          `json:"room"`
	Names json.RawMessage `json:"names"`
}

type ConfigPatch struct {
	VowelCost              *int   `json:"vowel_cost"`
	FinalSeconds           *int   `json:"final_seconds"`
	FinalJackpot           *int   `json:"final_jackpot"`
	PrizeReplaceCashValues *[]int `json:"prize_replace_cash_values"`
}

type SetConfigRequest struct {
	Room   string          `json:"room"`
	Config json.RawMessage `json:"config"`
}
