package store

import (
	"cmp"
	"context"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/balllder/holiday-wheel/internal"
)

type memPuzzle struct {
	internal.Puzzle
	enabled bool
	packID  *int64
}

// MemoryStore keeps everything in process. Used by tests and by the server
// when no database is configured.
type MemoryStore struct {
	mu sync.Mutex

	rng *rand.Rand
	now func() time.Time

	nextPuzzleID int64
	nextPackID   int64
	nextUserID   int64

	puzzles []memPuzzle
	packs   map[int64]string
	used    map[string]map[int64]bool
	configs map[string]internal.Config
	users   map[int64]internal.User
	rooms   map[string]internal.RoomActivity
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewMemoryStoreWithRand(rng *rand.Rand) *MemoryStore {
	return &MemoryStore{
		rng:     rng,
		now:     time.Now,
		packs:   make(map[int64]string),
		used:    make(map[string]map[int64]bool),
		configs: make(map[string]internal.Config),
		users:   make(map[int64]internal.User),
		rooms:   make(map[string]internal.RoomActivity),
	}
}

func (m *MemoryStore) Close() error { return nil }

func samePack(a, b *int64) bool {
	if b == nil {
		return true
	}
	return a != nil && *a == *b
}

func (m *MemoryStore) NextUnused(ctx context.Context, room string, packID *int64) (internal.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []internal.Puzzle
	for _, p := range m.puzzles {
		if p.enabled && samePack(p.packID, packID) && !m.used[room][p.ID] {
			candidates = append(candidates, p.Puzzle)
		}
	}
	if len(candidates) == 0 {
		return internal.Puzzle{}, ErrNoPuzzles
	}
	return candidates[m.rng.Intn(len(candidates))], nil
}

func (m *MemoryStore) MarkUsed(ctx context.Context, room string, puzzleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used[room] == nil {
		m.used[room] = make(map[int64]bool)
	}
	m.used[room][puzzleID] = true
	return nil
}

func (m *MemoryStore) ClearUsed(ctx context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.used, room)
	return nil
}

func (m *MemoryStore) Counts(ctx context.Context, room string, packID *int64) (internal.PuzzleCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c internal.PuzzleCounts
	for _, p := range m.puzzles {
		if p.enabled && samePack(p.packID, packID) {
			c.Total++
		}
	}
	if packID == nil {
		c.Used = len(m.used[room])
	} else {
		for _, p := range m.puzzles {
			if samePack(p.packID, packID) && m.used[room][p.ID] {
				c.Used++
			}
		}
	}
	c.Unused = c.Total - c.Used
	return c, nil
}

func (m *MemoryStore) ListPacks(ctx context.Context) ([]internal.Pack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	packs := make([]internal.Pack, 0, len(m.packs))
	for id, name := range m.packs {
		n := 0
		for _, p := range m.puzzles {
			if p.enabled && p.packID != nil && *p.packID == id {
				n++
			}
		}
		packs = append(packs, internal.Pack{ID: id, Name: name, PuzzleCount: n})
	}
	slices.SortFunc(packs, func(a, b internal.Pack) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return packs, nil
}

func (m *MemoryStore) PackName(ctx context.Context, packID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.packs[packID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (m *MemoryStore) EnsurePack(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.TrimSpace(name)
	for id, n := range m.packs {
		if n == name {
			return id, nil
		}
	}
	m.nextPackID++
	m.packs[m.nextPackID] = name
	return m.nextPackID, nil
}

func (m *MemoryStore) AddPuzzles(ctx context.Context, packID *int64, lines []PuzzleLine) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.nextPuzzleID++
		var pid *int64
		if packID != nil {
			id := *packID
			pid = &id
		}
		m.puzzles = append(m.puzzles, memPuzzle{
			Puzzle:  internal.Puzzle{ID: m.nextPuzzleID, Category: l.Category, Answer: strings.ToUpper(l.Answer)},
			enabled: true,
			packID:  pid,
		})
	}
	return len(lines), nil
}

func (m *MemoryStore) SeedDefaults(ctx context.Context) error {
	m.mu.Lock()
	empty := true
	for _, p := range m.puzzles {
		if p.enabled {
			empty = false
			break
		}
	}
	m.mu.Unlock()
	if !empty {
		return nil
	}
	_, err := m.AddPuzzles(ctx, nil, DefaultPuzzles)
	return err
}

func (m *MemoryStore) RoomConfig(ctx context.Context, room string) (internal.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[room]
	if !ok {
		cfg = internal.DefaultConfig()
		cfg.UpdatedAt = m.now().Unix()
		m.configs[room] = cfg
	}
	return copyConfig(cfg), nil
}

func (m *MemoryStore) SaveRoomConfig(ctx context.Context, room string, cfg internal.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.configs[room]
	if !ok {
		prev = internal.DefaultConfig()
	}
	values := cfg.PrizeReplaceCashValues
	if len(values) == 0 {
		values = internal.DefaultPrizeReplaceCash
	}
	prev.VowelCost = cfg.VowelCost
	prev.FinalSeconds = cfg.FinalSeconds
	prev.FinalJackpot = cfg.FinalJackpot
	prev.PrizeReplaceCashValues = append([]int(nil), values...)
	prev.UpdatedAt = m.now().Unix()
	m.configs[room] = prev
	return nil
}

func (m *MemoryStore) SetActivePack(ctx context.Context, room string, packID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[room]
	if !ok {
		cfg = internal.DefaultConfig()
		cfg.UpdatedAt = m.now().Unix()
	}
	if packID == nil {
		cfg.ActivePackID = nil
	} else {
		id := *packID
		cfg.ActivePackID = &id
	}
	m.configs[room] = cfg
	return nil
}

func copyConfig(cfg internal.Config) internal.Config {
	cfg.PrizeReplaceCashValues = append([]int(nil), cfg.PrizeReplaceCashValues...)
	if cfg.ActivePackID != nil {
		id := *cfg.ActivePackID
		cfg.ActivePackID = &id
	}
	return cfg
}

func (m *MemoryStore) CreateUser(ctx context.Context, email, passwordHash, displayName string) (internal.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return internal.User{}, ErrEmailTaken
		}
	}
	m.nextUserID++
	u := internal.User{
		ID:           m.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    m.now().UTC(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) UserByEmail(ctx context.Context, email string) (internal.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return internal.User{}, ErrNotFound
}

func (m *MemoryStore) UserByID(ctx context.Context, id int64) (internal.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return internal.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) TouchLogin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = m.now().UTC()
	m.users[id] = u
	return nil
}

func (m *MemoryStore) TouchRoom(ctx context.Context, room string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	ra, ok := m.rooms[room]
	if !ok {
		ra = internal.RoomActivity{Name: room, CreatedAt: now, IsPublic: true}
		if userID != 0 {
			id := userID
			ra.CreatedBy = &id
		}
	}
	ra.LastActivityAt = now
	m.rooms[room] = ra
	return nil
}

func (m *MemoryStore) ActiveRooms(ctx context.Context, since time.Time) ([]internal.RoomActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []internal.RoomActivity
	for _, ra := range m.rooms {
		if ra.LastActivityAt.After(since) {
			out = append(out, ra)
		}
	}
	slices.SortFunc(out, func(a, b internal.RoomActivity) int {
		return b.LastActivityAt.Compare(a.LastActivityAt)
	})
	return out, nil
}
