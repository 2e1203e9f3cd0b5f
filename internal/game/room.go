package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/wheel"
)

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// RoomStore is what the registry needs from persistence.
type RoomStore interface {
	store.PuzzleStore
	store.ConfigStore
}

// Registry maps room ids to live rooms. Rooms are created on first reference
// and their config is re-read from the store on every reference.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*internal.Room

	store   RoomStore
	newRand func() *rand.Rand
	now     func() time.Time
}

type RegistryOption func(*Registry)

// WithSeed gives every new room a rand source seeded with seed.
func WithSeed(seed int64) RegistryOption {
	return func(r *Registry) {
		r.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(st RoomStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:   make(map[string]*internal.Room),
		store:   st,
		newRand: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalizeRoomID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return internal.DefaultRoom
	}
	return id
}

// Get returns the room, creating it when missing, with a freshly loaded config.
func (r *Registry) Get(ctx context.Context, id string) (*internal.Room, error) {
	id = normalizeRoomID(id)

	cfg, err := r.store.RoomConfig(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load config for room %s: %w", id, err)
	}

	r.mu.Lock()
	room, exists := r.rooms[id]
	if !exists {
		room, err = r.createRoom(ctx, id, cfg)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.rooms[id] = room
	}
	r.mu.Unlock()

	if exists {
		room.Mu.Lock()
		room.Config = cfg
		room.Mu.Unlock()
	}
	return room, nil
}

// createRoom builds a room with a shuffled wheel and its first puzzle.
// Caller holds r.mu.
func (r *Registry) createRoom(ctx context.Context, id string, cfg internal.Config) (*internal.Room, error) {
	room := internal.NewRoom(id, r.newRand(), r.now)
	room.Config = cfg
	room.Wheel = wheel.Build(wheel.Base(), room.Rand)

	ok, err := pickNextPuzzle(ctx, r.store, room)
	if err != nil {
		return nil, fmt.Errorf("first puzzle for room %s: %w", id, err)
	}
	if !ok {
		room.SetPuzzle(internal.FallbackPuzzle)
		log.Warn().Str("room", id).Msg("[createRoom] puzzle store exhausted, using fallback puzzle")
	}

	log.Info().Str("room", id).Int64("puzzle", room.Puzzle.ID).Msg("[createRoom] created room")
	return room, nil
}

// Lookup returns an existing room without creating or refreshing it.
func (r *Registry) Lookup(id string) *internal.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[normalizeRoomID(id)]
}

func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every room's background loops.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, room := range r.rooms {
		if room.Cancel != nil {
			room.Cancel()
		}
		log.Debug().Str("room", id).Msg("[Registry.Close] room context cancelled")
	}
}

// pickNextPuzzle loads the next unused puzzle for the room's active pack.
// It reports false when the pool is exhausted; the room keeps its puzzle.
func pickNextPuzzle(ctx context.Context, ps store.PuzzleStore, room *internal.Room) (bool, error) {
	pz, err := ps.NextUnused(ctx, room.Id, room.Config.ActivePackID)
	if errors.Is(err, store.ErrNoPuzzles) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := ps.MarkUsed(ctx, room.Id, pz.ID); err != nil {
		return false, fmt.Errorf("mark puzzle %d used: %w", pz.ID, err)
	}
	room.SetPuzzle(pz)
	return true, nil
}
