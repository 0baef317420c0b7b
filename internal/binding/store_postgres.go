package binding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rollcall/internal/registry"
	"rollcall/pkg/platform/sentinel"
)

// PostgresStore persists bindings in PostgreSQL across the guild_bindings
// and position_bindings tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed binding store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema holds the DDL for the binding tables. Applied by migrations in
// production and by the integration test harness directly.
const Schema = `
CREATE TABLE IF NOT EXISTS guild_bindings (
	guild_id TEXT PRIMARY KEY,
	role_id  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS position_bindings (
	position TEXT PRIMARY KEY,
	role_id  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS guild_bindings_role_idx ON guild_bindings (role_id);
CREATE INDEX IF NOT EXISTS position_bindings_role_idx ON position_bindings (role_id);
`

func (s *PostgresStore) GetGuildBinding(ctx context.Context, guildID string) (*Binding, error) {
	var roleID string
	err := s.db.QueryRowContext(ctx,
		`SELECT role_id FROM guild_bindings WHERE guild_id = $1`, guildID).Scan(&roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guild binding %s: %w", guildID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get guild binding: %w", err)
	}
	b := GuildBinding(guildID, roleID)
	return &b, nil
}

func (s *PostgresStore) GetPositionBinding(ctx context.Context, position registry.Position) (*Binding, error) {
	var roleID string
	err := s.db.QueryRowContext(ctx,
		`SELECT role_id FROM position_bindings WHERE position = $1`, string(position)).Scan(&roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position binding %s: %w", position, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get position binding: %w", err)
	}
	b := PositionBinding(position, roleID)
	return &b, nil
}

// FindByRole scans both collections; the uniqueness invariant spans them.
func (s *PostgresStore) FindByRole(ctx context.Context, roleID string) (*Binding, error) {
	var kind, key string
	err := s.db.QueryRowContext(ctx, `
		SELECT 'guild', guild_id FROM guild_bindings WHERE role_id = $1
		UNION ALL
		SELECT 'position', position FROM position_bindings WHERE role_id = $1
		LIMIT 1`, roleID).Scan(&kind, &key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("binding for role %s: %w", roleID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find binding by role: %w", err)
	}
	return &Binding{Kind: Kind(kind), Key: key, RoleID: roleID}, nil
}

func (s *PostgresStore) UpsertGuildBinding(ctx context.Context, guildID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_bindings (guild_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET role_id = EXCLUDED.role_id`,
		guildID, roleID)
	if err != nil {
		return fmt.Errorf("upsert guild binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertPositionBinding(ctx context.Context, position registry.Position, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO position_bindings (position, role_id)
		VALUES ($1, $2)
		ON CONFLICT (position) DO UPDATE SET role_id = EXCLUDED.role_id`,
		string(position), roleID)
	if err != nil {
		return fmt.Errorf("upsert position binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteGuildBinding(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_bindings WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("delete guild binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePositionBinding(ctx context.Context, position registry.Position) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM position_bindings WHERE position = $1`, string(position)); err != nil {
		return fmt.Errorf("delete position binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'guild', guild_id, role_id FROM guild_bindings
		UNION ALL
		SELECT 'position', position, role_id FROM position_bindings
		ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		var kind, key, roleID string
		if err := rows.Scan(&kind, &key, &roleID); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, Binding{Kind: Kind(kind), Key: key, RoleID: roleID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	return bindings, nil
}
