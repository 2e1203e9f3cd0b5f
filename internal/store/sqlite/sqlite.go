// Package sqlite is the default store.Store backend, on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS packs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS puzzles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	answer TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	pack_id INTEGER,
	FOREIGN KEY(pack_id) REFERENCES packs(id)
);

CREATE TABLE IF NOT EXISTS used_puzzles (
	room TEXT NOT NULL,
	puzzle_id INTEGER NOT NULL,
	used_at INTEGER NOT NULL,
	PRIMARY KEY (room, puzzle_id)
);

CREATE TABLE IF NOT EXISTS room_config (
	room TEXT PRIMARY KEY,
	vowel_cost INTEGER NOT NULL,
	final_seconds INTEGER NOT NULL,
	final_jackpot INTEGER NOT NULL,
	prize_replace_cash_csv TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	active_pack_id INTEGER
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	verified INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_login_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS rooms (
	name TEXT PRIMARY KEY,
	created_by INTEGER,
	created_at INTEGER NOT NULL,
	last_activity_at INTEGER NOT NULL,
	is_public INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_rooms_last_activity ON rooms(last_activity_at);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if missing) the database file and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("path", path).Msg("sqlite store ready")
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) NextUnused(ctx context.Context, room string, packID *int64) (internal.Puzzle, error) {
	q := `
		SELECT pu.id, pu.category, pu.answer
		FROM puzzles pu
		LEFT JOIN used_puzzles u ON u.puzzle_id = pu.id AND u.room = ?
		WHERE pu.enabled = 1 AND u.puzzle_id IS NULL`
	args := []any{room}
	if packID != nil {
		q += ` AND pu.pack_id = ?`
		args = append(args, *packID)
	}
	q += ` ORDER BY RANDOM() LIMIT 1`

	var pz internal.Puzzle
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&pz.ID, &pz.Category, &pz.Answer)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Puzzle{}, store.ErrNoPuzzles
	}
	if err != nil {
		return internal.Puzzle{}, fmt.Errorf("next unused puzzle: %w", err)
	}
	return pz, nil
}

func (s *Store) MarkUsed(ctx context.Context, room string, puzzleID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO used_puzzles(room, puzzle_id, used_at) VALUES(?,?,?)`,
		room, puzzleID, s.now().Unix())
	return err
}

func (s *Store) ClearUsed(ctx context.Context, room string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM used_puzzles WHERE room=?`, room)
	return err
}

func (s *Store) Counts(ctx context.Context, room string, packID *int64) (internal.PuzzleCounts, error) {
	var c internal.PuzzleCounts
	if packID == nil {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles WHERE enabled=1`).Scan(&c.Total); err != nil {
			return c, err
		}
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM used_puzzles WHERE room=?`, room).Scan(&c.Used); err != nil {
			return c, err
		}
	} else {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM puzzles WHERE enabled=1 AND pack_id=?`, *packID).Scan(&c.Total); err != nil {
			return c, err
		}
		if err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM used_puzzles u
			JOIN puzzles pu ON pu.id = u.puzzle_id
			WHERE u.room=? AND pu.pack_id=?`, room, *packID).Scan(&c.Used); err != nil {
			return c, err
		}
	}
	c.Unused = c.Total - c.Used
	return c, nil
}

func (s *Store) ListPacks(ctx context.Context) ([]internal.Pack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name,
		       (SELECT COUNT(*) FROM puzzles pu WHERE pu.pack_id=p.id AND pu.enabled=1)
		FROM packs p
		ORDER BY p.name COLLATE NOCASE`)
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
	err := s.db.QueryRowContext(ctx, `SELECT name FROM packs WHERE id=?`, packID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return name, err
}

func (s *Store) EnsurePack(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("pack name empty")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO packs(name, created_at) VALUES(?,?) ON CONFLICT(name) DO NOTHING`,
		name, s.now().Unix()); err != nil {
		return 0, fmt.Errorf("insert pack: %w", err)
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM packs WHERE name=?`, name).Scan(&id)
	return id, err
}

func (s *Store) AddPuzzles(ctx context.Context, packID *int64, lines []store.PuzzleLine) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	now := s.now().Unix()
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO puzzles(category, answer, enabled, created_at, pack_id) VALUES(?,?,1,?,?)`,
			l.Category, strings.ToUpper(l.Answer), now, packID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert puzzle: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *Store) SeedDefaults(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles WHERE enabled=1`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := s.AddPuzzles(ctx, nil, store.DefaultPuzzles)
	if err == nil {
		log.Info().Int("count", len(store.DefaultPuzzles)).Msg("seeded default puzzles")
	}
	return err
}

func (s *Store) ensureRoomConfig(ctx context.Context, room string) error {
	def := internal.DefaultConfig()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_config(room, vowel_cost, final_seconds, final_jackpot, prize_replace_cash_csv, updated_at, active_pack_id)
		VALUES(?,?,?,?,?,?,NULL)
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
		cfg    internal.Config
		csv    string
		packID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT vowel_cost, final_seconds, final_jackpot, prize_replace_cash_csv, updated_at, active_pack_id
		FROM room_config WHERE room=?`, room).
		Scan(&cfg.VowelCost, &cfg.FinalSeconds, &cfg.FinalJackpot, &csv, &cfg.UpdatedAt, &packID)
	if err != nil {
		return internal.Config{}, fmt.Errorf("load room config: %w", err)
	}
	cfg.PrizeReplaceCashValues = store.IntsFromCSV(csv, internal.DefaultPrizeReplaceCash)
	if packID.Valid {
		id := packID.Int64
		cfg.ActivePackID = &id
	}
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
	_, err := s.db.ExecContext(ctx, `
		UPDATE room_config
		SET vowel_cost=?, final_seconds=?, final_jackpot=?, prize_replace_cash_csv=?, updated_at=?
		WHERE room=?`,
		cfg.VowelCost, cfg.FinalSeconds, cfg.FinalJackpot, store.CSVFromInts(values), s.now().Unix(), room)
	return err
}

func (s *Store) SetActivePack(ctx context.Context, room string, packID *int64) error {
	if err := s.ensureRoomConfig(ctx, room); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE room_config SET active_pack_id=? WHERE room=?`, packID, room)
	return err
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, displayName string) (internal.User, error) {
	email = store.NormalizeEmail(email)
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(email, password_hash, display_name, verified, created_at) VALUES(?,?,?,0,?)
		 ON CONFLICT(email) DO NOTHING`,
		email, passwordHash, displayName, now.Unix())
	if err != nil {
		return internal.User{}, fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internal.User{}, store.ErrEmailTaken
	}
	id, err := res.LastInsertId()
	if err != nil {
		return internal.User{}, err
	}
	return internal.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

const userColumns = `id, email, password_hash, display_name, verified, created_at, last_login_at`

func scanUser(row *sql.Row) (internal.User, error) {
	var (
		u         internal.User
		verified  int
		created   int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &verified, &created, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.User{}, store.ErrNotFound
	}
	if err != nil {
		return internal.User{}, err
	}
	u.Verified = verified == 1
	u.CreatedAt = time.Unix(created, 0).UTC()
	if lastLogin.Valid {
		u.LastLoginAt = time.Unix(lastLogin.Int64, 0).UTC()
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (internal.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=?`, store.NormalizeEmail(email)))
}

func (s *Store) UserByID(ctx context.Context, id int64) (internal.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (s *Store) TouchLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, s.now().Unix(), id)
	return err
}

func (s *Store) TouchRoom(ctx context.Context, room string, userID int64) error {
	now := s.now().Unix()
	var createdBy any
	if userID != 0 {
		createdBy = userID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms(name, created_by, created_at, last_activity_at) VALUES(?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET last_activity_at=excluded.last_activity_at`,
		room, createdBy, now, now)
	return err
}

func (s *Store) ActiveRooms(ctx context.Context, since time.Time) ([]internal.RoomActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, created_by, created_at, last_activity_at, is_public
		FROM rooms WHERE last_activity_at >= ?
		ORDER BY last_activity_at DESC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RoomActivity
	for rows.Next() {
		var (
			ra                  internal.RoomActivity
			createdBy           sql.NullInt64
			created, lastActive int64
			public              int
		)
		if err := rows.Scan(&ra.Name, &createdBy, &created, &lastActive, &public); err != nil {
			return nil, err
		}
		if createdBy.Valid {
			id := createdBy.Int64
			ra.CreatedBy = &id
		}
		ra.CreatedAt = time.Unix(created, 0).UTC()
		ra.LastActivityAt = time.Unix(lastActive, 0).UTC()
		ra.IsPublic = public == 1
		out = append(out, ra)
	}
	return out, rows.Err()
}
