// Package store defines the persistence collaborators of the game and the
// helpers shared by every backend.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/balllder/holiday-wheel/internal"
)

var (
	ErrNoPuzzles  = errors.New("no unused puzzles")
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// PuzzleLine is one category/answer pair ready for insertion.
type PuzzleLine struct {
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

type PuzzleStore interface {
	// NextUnused returns a random enabled puzzle not yet used in room,
	// restricted to packID when set. ErrNoPuzzles when none remain.
	NextUnused(ctx context.Context, room string, packID *int64) (internal.Puzzle, error)
	MarkUsed(ctx context.Context, room string, puzzleID int64) error
	ClearUsed(ctx context.Context, room string) error
	Counts(ctx context.Context, room string, packID *int64) (internal.PuzzleCounts, error)

	ListPacks(ctx context.Context) ([]internal.Pack, error)
	PackName(ctx context.Context, packID int64) (string, error)
	// EnsurePack returns the id of the named pack, creating it when missing.
	EnsurePack(ctx context.Context, name string) (int64, error)
	AddPuzzles(ctx context.Context, packID *int64, lines []PuzzleLine) (int, error)
	// SeedDefaults inserts DefaultPuzzles when no enabled puzzle exists.
	SeedDefaults(ctx context.Context) error
}

type ConfigStore interface {
	// RoomConfig returns the stored config, creating the default row first.
	RoomConfig(ctx context.Context, room string) (internal.Config, error)
	SaveRoomConfig(ctx context.Context, room string, cfg internal.Config) error
	SetActivePack(ctx context.Context, room string, packID *int64) error
}

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, displayName string) (internal.User, error)
	UserByEmail(ctx context.Context, email string) (internal.User, error)
	UserByID(ctx context.Context, id int64) (internal.User, error)
	TouchLogin(ctx context.Context, id int64) error
}

type RoomStore interface {
	// TouchRoom records activity in room, creating it on first sight.
	TouchRoom(ctx context.Context, room string, userID int64) error
	ActiveRooms(ctx context.Context, since time.Time) ([]internal.RoomActivity, error)
}

type Store interface {
	PuzzleStore
	ConfigStore
	UserStore
	RoomStore
	Close() error
}

var DefaultPuzzles = []PuzzleLine{
	{"Phrase", "JINGLE ALL THE WAY"},
	{"Phrase", "PEACE ON EARTH"},
	{"Thing", "UGLY SWEATER"},
	{"Thing", "GINGERBREAD HOUSE"},
	{"Food & Drink", "HOT COCOA"},
	{"Song", "SILENT NIGHT"},
	{"Event", "NEW YEARS EVE"},
	{"Phrase", "DECK THE HALLS"},
}

func CSVFromInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// IntsFromCSV parses a comma list, returning fallback when it is empty or malformed.
func IntsFromCSV(s string, fallback []int) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return append([]int(nil), fallback...)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return append([]int(nil), fallback...)
	}
	return out
}

// ParsePackText reads newline separated "category|answer" lines, skipping
// anything without both halves.
func ParsePackText(text string) []PuzzleLine {
	var lines []PuzzleLine
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		cat, ans, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		cat, ans = strings.TrimSpace(cat), strings.TrimSpace(ans)
		if cat != "" && ans != "" {
			lines = append(lines, PuzzleLine{Category: cat, Answer: ans})
		}
	}
	return lines
}

// NormalizeEmail lowercases and trims an address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
