package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/g960059/tiledash/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// ImportCatalog replaces the tiles of every given category. Category position follows slice order
// and keys are stored normalized.
func (s *Store) ImportCatalog(ctx context.Context, categories []model.Category) error {
	now := ts(time.Now().UTC())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM categories`).Scan(&base); err != nil {
		return fmt.Errorf("next category position: %w", err)
	}
	for i, c := range categories {
		key := model.NormalizeCategoryKey(c.Key)
		if key == "" {
			return fmt.Errorf("category %d: key is required", i)
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO categories(category_key, title, position, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(category_key) DO UPDATE SET
	title = CASE WHEN excluded.title != '' THEN excluded.title ELSE categories.title END,
	updated_at = excluded.updated_at
`, key, c.Title, base+i, now)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tiles WHERE category_key = ?`, key); err != nil {
			return fmt.Errorf("clear tiles for %s: %w", key, err)
		}
		for pos, t := range c.Tiles {
			if err := insertTile(ctx, tx, key, pos, t, now); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// AppendTile adds t at the end of an existing category and returns its row id.
func (s *Store) AppendTile(ctx context.Context, categoryKey string, t model.Tile) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin append tile: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	categoryKey = model.NormalizeCategoryKey(categoryKey)
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE category_key = ?`, categoryKey).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("category %s: %w", categoryKey, ErrNotFound)
		}
		return "", fmt.Errorf("lookup category: %w", err)
	}
	var pos int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM tiles WHERE category_key = ?`, categoryKey).Scan(&pos); err != nil {
		return "", fmt.Errorf("next tile position: %w", err)
	}
	tileID := uuid.NewString()
	if err := insertTileWithID(ctx, tx, tileID, categoryKey, pos, t, ts(time.Now().UTC())); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit append tile: %w", err)
	}
	return tileID, nil
}

func insertTile(ctx context.Context, tx *sql.Tx, categoryKey string, pos int, t model.Tile, now string) error {
	return insertTileWithID(ctx, tx, uuid.NewString(), categoryKey, pos, t, now)
}

func insertTileWithID(ctx context.Context, tx *sql.Tx, tileID, categoryKey string, pos int, t model.Tile, now string) error {
	if strings.TrimSpace(t.OwningPackage) == "" {
		return fmt.Errorf("tile %q: owning_package is required", t.Title)
	}
	var (
		hasIntent bool
		action    string
		component string
		flags     model.IntentFlag
		extras    = "{}"
	)
	if t.Intent != nil {
		hasIntent = true
		action = t.Intent.Action
		flags = t.Intent.Flags
		if t.Intent.HasComponent() {
			component = t.Intent.Component.Flatten()
		}
		raw, err := marshalExtras(t.Intent.Extras)
		if err != nil {
			return err
		}
		extras = raw
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO tiles(tile_id, category_key, position, tile_key, title, summary, icon, fragment_class, action_override, has_intent, intent_action, component, extras_json, flags, priority, owning_package, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, tileID, categoryKey, pos, t.Key, t.Title, t.Summary, t.Icon, t.Fragment, t.IntentAction, boolToInt(hasIntent), action, component, extras, int(flags), t.Priority, t.OwningPackage, now)
	if err != nil {
		return fmt.Errorf("insert tile %q: %w", t.Title, err)
	}
	for i, u := range t.UserHandles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tile_users(tile_id, position, user_handle) VALUES (?, ?, ?)`, tileID, i, int(u)); err != nil {
			return fmt.Errorf("insert tile user: %w", err)
		}
	}
	return nil
}

// Tiles returns the tiles of a category in declared order; unknown categories yield nil.
func (s *Store) Tiles(ctx context.Context, categoryKey string) ([]model.Tile, error) {
	categoryKey = model.NormalizeCategoryKey(categoryKey)
	rows, err := s.db.QueryContext(ctx, `
SELECT tile_id, tile_key, title, summary, icon, fragment_class, action_override, has_intent, intent_action, component, extras_json, flags, priority, owning_package
FROM tiles
WHERE category_key = ?
ORDER BY position ASC`, categoryKey)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	defer rows.Close()

	var (
		out []model.Tile
		ids []string
	)
	for rows.Next() {
		id, t, err := scanTile(rows)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tiles: %w", err)
	}
	users, err := s.tileUsers(ctx, categoryKey)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		out[i].UserHandles = users[id]
	}
	return out, nil
}

func (s *Store) tileUsers(ctx context.Context, categoryKey string) (map[string][]model.UserHandle, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT u.tile_id, u.user_handle
FROM tile_users u
JOIN tiles t ON t.tile_id = u.tile_id
WHERE t.category_key = ?
ORDER BY u.tile_id ASC, u.position ASC`, categoryKey)
	if err != nil {
		return nil, fmt.Errorf("list tile users: %w", err)
	}
	defer rows.Close()
	out := map[string][]model.UserHandle{}
	for rows.Next() {
		var (
			id   string
			user int
		)
		if err := rows.Scan(&id, &user); err != nil {
			return nil, fmt.Errorf("scan tile user: %w", err)
		}
		out[id] = append(out[id], model.UserHandle(user))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter tile users: %w", err)
	}
	return out, nil
}

// Categories returns every category with its tiles, in import order.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category_key, title FROM categories ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Key, &c.Title); err != nil {
			rows.Close() //nolint:errcheck
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck
		return nil, fmt.Errorf("iter categories: %w", err)
	}
	rows.Close() //nolint:errcheck

	for i := range out {
		tiles, err := s.Tiles(ctx, out[i].Key)
		if err != nil {
			return nil, err
		}
		out[i].Tiles = tiles
	}
	return out, nil
}

func (s *Store) RecordLaunch(ctx context.Context, component string, at time.Time) (model.LaunchRecord, error) {
	component = strings.TrimSpace(component)
	if component == "" {
		return model.LaunchRecord{}, fmt.Errorf("component is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec := model.LaunchRecord{LaunchID: uuid.NewString(), Component: component, RecordedAt: at.UTC()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO launches(launch_id, component, recorded_at) VALUES (?, ?, ?)`, rec.LaunchID, rec.Component, ts(rec.RecordedAt))
	if err != nil {
		return model.LaunchRecord{}, fmt.Errorf("insert launch: %w", err)
	}
	return rec, nil
}

// ListLaunches returns the newest records first. limit <= 0 means no limit.
func (s *Store) ListLaunches(ctx context.Context, limit int) ([]model.LaunchRecord, error) {
	query := `SELECT launch_id, component, recorded_at FROM launches ORDER BY recorded_at DESC, launch_id ASC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	defer rows.Close()

	out := make([]model.LaunchRecord, 0)
	for rows.Next() {
		var (
			rec        model.LaunchRecord
			recordedAt string
		)
		if err := rows.Scan(&rec.LaunchID, &rec.Component, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		if rec.RecordedAt, err = parseTS(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter launches: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertPackage(ctx context.Context, pkg string) error {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return fmt.Errorf("package_name is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO packages(package_name, updated_at) VALUES (?, ?)
ON CONFLICT(package_name) DO UPDATE SET updated_at = excluded.updated_at
`, pkg, ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert package: %w", err)
	}
	return nil
}

func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles(user_handle, profile_name, updated_at) VALUES (?, ?, ?)
ON CONFLICT(user_handle) DO UPDATE SET
	profile_name = excluded.profile_name,
	updated_at = excluded.updated_at
`, int(p.User), p.Name, ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, user model.UserHandle) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_handle = ?`, int(user))
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_handle, profile_name FROM profiles ORDER BY user_handle ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	out := make([]model.Profile, 0)
	for rows.Next() {
		var (
			p    model.Profile
			user int
		)
		if err := rows.Scan(&user, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.User = model.UserHandle(user)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter profiles: %w", err)
	}
	return out, nil
}

func (s *Store) listPackages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT package_name FROM packages ORDER BY package_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		out = append(out, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter packages: %w", err)
	}
	return out, nil
}

func scanTile(scanner interface{ Scan(dest ...any) error }) (string, model.Tile, error) {
	var (
		id        string
		t         model.Tile
		hasIntent int
		action    string
		component string
		extras    string
		flags     int
	)
	if err := scanner.Scan(&id, &t.Key, &t.Title, &t.Summary, &t.Icon, &t.Fragment, &t.IntentAction, &hasIntent, &action, &component, &extras, &flags, &t.Priority, &t.OwningPackage); err != nil {
		return "", model.Tile{}, fmt.Errorf("scan tile: %w", err)
	}
	if hasIntent == 0 {
		return id, t, nil
	}
	intent := model.Intent{Action: action, Flags: model.IntentFlag(flags)}
	if component != "" {
		cn, err := model.ParseComponent(component)
		if err != nil {
			return "", model.Tile{}, fmt.Errorf("tile %s: %w", id, err)
		}
		intent.Component = &cn
	}
	parsed, err := unmarshalExtras(extras)
	if err != nil {
		return "", model.Tile{}, fmt.Errorf("tile %s: %w", id, err)
	}
	intent.Extras = parsed
	t.Intent = &intent
	return id, t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func marshalExtras(extras map[string]string) (string, error) {
	if len(extras) == 0 {
		return "{}", nil
	}
	buf, err := json.Marshal(extras)
	if err != nil {
		return "", fmt.Errorf("marshal extras: %w", err)
	}
	return string(buf), nil
}

func unmarshalExtras(raw string) (map[string]string, error) {
	text := strings.TrimSpace(raw)
	if text == "" || text == "{}" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("unmarshal extras: %w", err)
	}
	return out, nil
}
