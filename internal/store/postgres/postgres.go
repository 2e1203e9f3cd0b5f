// Package postgres is a store.Store backend on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS packs (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS puzzles (
	id BIGSERIAL PRIMARY KEY,
	category TEXT NOT NULL,
	answer TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at BIGINT NOT NULL,
	pack_id BIGINT REFERENCES packs(id)
);

CREATE TABLE IF NOT EXISTS used_puzzles (
	room TEXT NOT NULL,
	puzzle_id BIGINT NOT NULL,
	used_at BIGINT NOT NULL,
	PRIMARY KEY (room, puzzle_id)
);

CREATE TABLE IF NOT EXISTS room_config (
	room TEXT PRIMARY KEY,
	vowel_cost INTEGER NOT NULL,
	final_seconds INTEGER NOT NULL,
	final_jackpot INTEGER NOT NULL,
	prize_replace_cash_csv TEXT NOT NULL,
	updated_at BIGINT NOT NULL,
	active_pack_id BIGINT
);

CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at BIGINT NOT NULL,
	last_login_at BIGINT
);

CREATE TABLE IF NOT EXISTS rooms (
	name TEXT PRIMARY KEY,
	created_by BIGINT,
	created_at BIGINT NOT NULL,
	last_activity_at BIGINT NOT NULL,
	is_public BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_rooms_last_activity ON rooms(last_activity_at);
`

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Msg("postgres store ready")
	return &Store{pool: pool, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) NextUnused(ctx context.Context, room string, packID *int64) (internal.Puzzle, error) {
	q := `
		SELECT pu.id, pu.category, pu.answer
		FROM puzzles pu
		LEFT JOIN used_puzzles u ON u.puzzle_id = pu.id AND u.room = $1
		WHERE pu.enabled AND u.puzzle_id IS NULL`
	args := []any{room}
	if packID != nil {
		q += ` AND pu.pack_id = $2`
		args = append(args, *packID)
	}
	q += ` ORDER BY RANDOM() LIMIT 1`

	var pz internal.Puzzle
	err := s.pool.QueryRow(ctx, q, args...).Scan(&pz.ID, &pz.Category, &pz.Answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Puzzle{}, store.ErrNoPuzzles
	}
	if err != nil {
		return internal.Puzzle{}, fmt.Errorf("next unused puzzle: %w", err)
	}
	return pz, nil
}

func (s *Store) MarkUsed(ctx context.Context, room string, puzzleID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO used_puzzles(room, puzzle_id, used_at) VALUES($1,$2,$3) ON CONFLICT DO NOTHING`,
		room, puzzleID, s.now().Unix())
	return err
}

func (s *Store) ClearUsed(ctx context.Context, room string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM used_puzzles WHERE room=$1`, room)
	return err
}

func (s *Store) Counts(ctx context.Context, room string, packID *int64) (internal.PuzzleCounts, error) {
	var c internal.PuzzleCounts
	if packID == nil {
		err := s.pool.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM puzzles WHERE enabled),
			       (SELECT COUNT(*) FROM used_puzzles WHERE room=$1)`, room).Scan(&c.Total, &c.Used)
		if err != nil {
			return c, err
		}
	} else {
		err := s.pool.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM puzzles WHERE enabled AND pack_id=$2),
			       (SELECT COUNT(*) FROM used_puzzles u JOIN puzzles pu ON pu.id=u.puzzle_id
			        WHERE u.room=$1 AND pu.pack_id=$2)`, room, *packID).Scan(&c.Total, &c.Used)
		if err != nil {
			return c, err
		}
	}
	c.Unused = c.Total - c.Used
	return c, nil
}

func (s *Store) ListPacks(ctx context.Context) ([]internal.Pack, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name,
		       (SELECT COUNT(*) FROM puzzles pu WHERE pu.pack_id=p.id AND pu.enabled)
		FROM packs p
		ORDER BY LOWER(p.name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packs := make([]internal.Pack, 0)
	for rows.Next() {
		var p internal.Pack
		if err := rows.Scan(&p.ID, &p.Name, &p.PuzzleCount); err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

func (s *Store) PackName(ctx context.Context, packID int64) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM packs WHERE id=$1`, packID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return name, err
}

func (s *Store) EnsurePack(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("pack name empty")
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO packs(name, created_at) VALUES($1,$2)
		ON CONFLICT(name) DO UPDATE SET name=EXCLUDED.name
		RETURNING id`, name, s.now().Unix()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert pack: %w", err)
	}
	return id, nil
}

func (s *Store) AddPuzzles(ctx context.Context, packID *int64, lines []store.PuzzleLine) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	now := s.now().Unix()
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO puzzles(category, answer, enabled, created_at, pack_id) VALUES($1,$2,TRUE,$3,$4)`,
			l.Category, strings.ToUpper(l.Answer), now, packID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert puzzles: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *Store) SeedDefaults(ctx context.Context) error {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM puzzles WHERE enabled`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := s.AddPuzzles(ctx, nil, store.DefaultPuzzles)
	return err
}

func (s *Store) ensureRoomConfig(ctx context.Context, room string) error {
	def := internal.DefaultConfig()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_config(room, vowel_cost, final_seconds, final_jackpot, prize_replace_cash_csv, updated_at)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT(room) DO NOTHING`,
		room, def.VowelCost, def.FinalSeconds, def.FinalJackpot,
		store.CSVFromInts(def.PrizeReplaceCashValues), s.now().Unix())
	return err
}

func (s *Store) RoomConfig(ctx context.Context, room string) (internal.Config, error) {
	if err := s.ensureRoomConfig(ctx, room); err != nil {
		return internal.Config{}, fmt.Errorf("ensure room config: %w", err)
	}
	var (
		cfg internal.Config
		csv string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT vowel_cost, final_seconds, final_jackpot, prize_replace_cash_csv, updated_at, active_pack_id
		FROM room_config WHERE room=$1`, room).
		Scan(&cfg.VowelCost, &cfg.FinalSeconds, &cfg.FinalJackpot, &csv, &cfg.UpdatedAt, &cfg.ActivePackID)
	if err != nil {
		return internal.Config{}, fmt.Errorf("load room config: %w", err)
	}
	cfg.PrizeReplaceCashValues = store.IntsFromCSV(csv, internal.DefaultPrizeReplaceCash)
	return cfg, nil
}

func (s *Store) SaveRoomConfig(ctx context.Context, room string, cfg internal.Config) error {
	if err := s.ensureRoomConfig(ctx, room); err != nil {
		return err
	}
	values := cfg.PrizeReplaceCashValues
	if len(values) == 0 {
		values = internal.DefaultPrizeReplaceCash
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE room_config
		SET vowel_cost=$1, final_seconds=$2, final_jackpot=$3, prize_replace_cash_csv=$4, updated_at=$5
		WHERE room=$6`,
		cfg.VowelCost, cfg.FinalSeconds, cfg.FinalJackpot, store.CSVFromInts(values), s.now().Unix(), room)
	return err
}

func (s *Store) SetActivePack(ctx context.Context, room string, packID *int64) error {
	if err := s.ensureRoomConfig(ctx, room); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `UPDATE room_config SET active_pack_id=$1 WHERE room=$2`, packID, room)
	return err
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, displayName string) (internal.User, error) {
	email = store.NormalizeEmail(email)
	now := s.now().Unix()
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users(email, password_hash, display_name, created_at) VALUES($1,$2,$3,$4)
		ON CONFLICT(email) DO NOTHING
		RETURNING id`, email, passwordHash, displayName, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.User{}, store.ErrEmailTaken
	}
	if err != nil {
		return internal.User{}, fmt.Errorf("insert user: %w", err)
	}
	return internal.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    time.Unix(now, 0).UTC(),
	}, nil
}

const userColumns = `id, email, password_hash, display_name, verified, created_at, last_login_at`

func scanUser(row pgx.Row) (internal.User, error) {
	var (
		u         internal.User
		created   int64
		lastLogin *int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Verified, &created, &lastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.User{}, store.ErrNotFound
	}
	if err != nil {
		return internal.User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	if lastLogin != nil {
		u.LastLoginAt = time.Unix(*lastLogin, 0).UTC()
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (internal.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, store.NormalizeEmail(email)))
}

func (s *Store) UserByID(ctx context.Context, id int64) (internal.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *Store) TouchLogin(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at=$1 WHERE id=$2`, s.now().Unix(), id)
	return err
}

func (s *Store) TouchRoom(ctx context.Context, room string, userID int64) error {
	now := s.now().Unix()
	var createdBy *int64
	if userID != 0 {
		createdBy = &userID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms(name, created_by, created_at, last_activity_at) VALUES($1,$2,$3,$3)
		ON CONFLICT(name) DO UPDATE SET last_activity_at=EXCLUDED.last_activity_at`,
		room, createdBy, now)
	return err
}

func (s *Store) ActiveRooms(ctx context.Context, since time.Time) ([]internal.RoomActivity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, created_by, created_at, last_activity_at, is_public
		FROM rooms WHERE last_activity_at >= $1
		ORDER BY last_activity_at DESC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomActivity
	for rows.Next() {
		var (
			ra                  internal.RoomActivity
			created, lastActive int64
		)
		if err := rows.Scan(&ra.Name, &ra.CreatedBy, &created, &lastActive, &ra.IsPublic); err != nil {
			return nil, err
		}
		ra.CreatedAt = time.Unix(created, 0).UTC()
		ra.LastActivityAt = time.Unix(lastActive, 0).UTC()
		out = append(out, ra)
	}
	return out, rows.Err()
}
