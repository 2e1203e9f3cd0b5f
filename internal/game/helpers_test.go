package game

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

const testHostCode = "letmein"

// recorder is a Transport that keeps every delivered message.
type recorder struct {
	mu     sync.Mutex
	sent   map[string][]internal.Message[any]
	rooms  map[string][]internal.Message[any]
	joined map[string][]string
}

func newRecorder() *recorder {
	return &recorder{
		sent:   map[string][]internal.Message[any]{},
		rooms:  map[string][]internal.Message[any]{},
		joined: map[string][]string{},
	}
}

func (r *recorder) Join(room, conn string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined[room] = append(r.joined[room], conn)
}

func (r *recorder) Send(conn string, m any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[conn] = append(r.sent[conn], m.(internal.Message[any]))
}

func (r *recorder) Broadcast(room string, m any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room] = append(r.rooms[room], m.(internal.Message[any]))
}

func toastsIn(msgs []internal.Message[any]) []string {
	var out []string
	for _, m := range msgs {
		if m.Type == "toast" {
			out = append(out, m.Data.(internal.ToastData).Msg)
		}
	}
	return out
}

// lastToast returns the newest toast sent directly to conn.
func (r *recorder) lastToast(conn string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	toasts := toastsIn(r.sent[conn])
	if len(toasts) == 0 {
		return ""
	}
	return toasts[len(toasts)-1]
}

func (r *recorder) roomToasts(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return toastsIn(r.rooms[room])
}

func (r *recorder) last(conn, typ string) (internal.Message[any], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.sent[conn]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i], true
		}
	}
	return internal.Message[any]{}, false
}

func (r *recorder) stateBroadcasts(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.rooms[room] {
		if m.Type == "state" {
			n++
		}
	}
	return n
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	store *store.MemoryStore
	out   *recorder
	room  *internal.Room
}

var (
	host = Caller{Conn: "host"}
	ann  = Caller{Conn: "c0"}
	bob  = Caller{Conn: "c1"}
	cy   = Caller{Conn: "c2"}
)

// newFixture builds a service over a seeded memory store with one room
// "main" holding a claimed host and three claimed players, on the puzzle
// HELLO WORLD.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStoreWithRand(rand.New(rand.NewSource(1)))
	require.NoError(t, st.SeedDefaults(ctx))
	out := newRecorder()
	reg := NewRegistry(st, WithSeed(42))
	svc := NewService(reg, st, out, Options{
		HostCode:      testHostCode,
		RevealEvery:   5 * time.Millisecond,
		CountdownTick: 5 * time.Millisecond,
	})
	t.Cleanup(reg.Close)

	f := &fixture{t: t, ctx: ctx, svc: svc, store: st, out: out}
	require.NoError(t, svc.Join(ctx, host, "main"))
	require.NoError(t, svc.ClaimHost(ctx, host, internal.ClaimHostRequest{Room: "main", Code: testHostCode}))
	require.NoError(t, svc.SetPlayers(ctx, host, internal.NamesRequest{Room: "main", Names: json.RawMessage(`["Ann","Bob","Cy"]`)}))
	for i, c := range []Caller{ann, bob, cy} {
		idx := i
		require.NoError(t, svc.Join(ctx, c, "main"))
		require.NoError(t, svc.ClaimPlayer(ctx, c, internal.ClaimPlayerRequest{Room: "main", PlayerID: &idx}))
	}

	f.room = reg.Lookup("main")
	require.NotNil(t, f.room)
	f.locked(func(r *internal.Room) {
		r.SetPuzzle(internal.Puzzle{ID: 999, Category: "Phrase", Answer: "HELLO WORLD"})
	})
	return f
}

// locked runs fn while holding the room lock.
func (f *fixture) locked(fn func(r *internal.Room)) {
	f.room.Mu.Lock()
	defer f.room.Mu.Unlock()
	fn(f.room)
}

// fillWheel replaces every slot with w so the next spin is known.
func (f *fixture) fillWheel(w internal.Wedge) {
	f.locked(func(r *internal.Room) {
		for i := range r.Wheel {
			r.Wheel[i] = w
		}
	})
}

func (f *fixture) spin(c Caller) {
	f.t.Helper()
	require.NoError(f.t, f.svc.Spin(f.ctx, c, "main"))
}

func (f *fixture) guess(c Caller, letter string) {
	f.t.Helper()
	require.NoError(f.t, f.svc.Guess(f.ctx, c, internal.GuessRequest{Room: "main", Letter: letter}))
}

func (f *fixture) solve(c Caller, attempt string) {
	f.t.Helper()
	require.NoError(f.t, f.svc.Solve(f.ctx, c, internal.SolveRequest{Room: "main", Attempt: attempt}))
}

func (f *fixture) snapshot() internal.RoomSnapshot {
	var snap internal.RoomSnapshot
	f.locked(func(r *internal.Room) { snap = BuildSnapshot(r) })
	return snap
}
