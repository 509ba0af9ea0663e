// Package sqlite provides a SQLite-backed lobby storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/storage"
	"github.com/veylan/guildpost/internal/lobby/storage/sqlite/migrations"
	"github.com/veylan/guildpost/internal/platform/storage/sqlitemigrate"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists lobby state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite lobby store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSession inserts one published lobby snapshot.
func (s *Store) SaveSession(ctx context.Context, record storage.SessionRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	lobbyID := strings.TrimSpace(record.ID)
	if lobbyID == "" {
		return fmt.Errorf("lobby id is required")
	}
	if strings.TrimSpace(record.ContentKey) == "" {
		return fmt.Errorf("content key is required")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var scheduledAt any
	if record.Scheduled != nil {
		scheduledAt = toMillis(*record.Scheduled)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO lobbies (
		   id, guild_id, channel_id, message_id, master_id,
		   content_key, created_at, scheduled_at, active
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lobbyID,
		record.GuildID,
		record.ChannelID,
		record.MessageID,
		record.MasterID,
		record.ContentKey,
		toMillis(createdAt),
		scheduledAt,
		boolToInt(record.Active),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadActiveSessions returns every session still marked active.
func (s *Store) LoadActiveSessions(ctx context.Context) ([]storage.SessionRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, guild_id, channel_id, message_id, master_id,
		        content_key, created_at, scheduled_at, active
		   FROM lobbies
		  WHERE active = 1
		  ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("load active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []storage.SessionRecord
	for rows.Next() {
		var (
			record      storage.SessionRecord
			createdAt   int64
			scheduledAt sql.NullInt64
			active      int
		)
		if err := rows.Scan(
			&record.ID,
			&record.GuildID,
			&record.ChannelID,
			&record.MessageID,
			&record.MasterID,
			&record.ContentKey,
			&createdAt,
			&scheduledAt,
			&active,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		if scheduledAt.Valid {
			scheduled := fromMillis(scheduledAt.Int64)
			record.Scheduled = &scheduled
		}
		record.Active = active != 0
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return records, nil
}

// MarkInactive flips a session's active flag off. Unknown ids are a no-op.
func (s *Store) MarkInactive(ctx context.Context, lobbyID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	lobbyID = strings.TrimSpace(lobbyID)
	if lobbyID == "" {
		return fmt.Errorf("lobby id is required")
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE lobbies SET active = 0 WHERE id = ?",
		lobbyID,
	); err != nil {
		return fmt.Errorf("mark session inactive: %w", err)
	}
	return nil
}

// UpdateSchedule replaces a session's scheduled time. Unknown ids report
// ErrNotFound so reschedules against vanished lobbies surface.
func (s *Store) UpdateSchedule(ctx context.Context, lobbyID string, scheduled *time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	lobbyID = strings.TrimSpace(lobbyID)
	if lobbyID == "" {
		return fmt.Errorf("lobby id is required")
	}
	var scheduledAt any
	if scheduled != nil {
		scheduledAt = toMillis(*scheduled)
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE lobbies SET scheduled_at = ? WHERE id = ?",
		scheduledAt,
		lobbyID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddRosterMember records one confirmed participant at the next position.
func (s *Store) AddRosterMember(ctx context.Context, lobbyID string, character domain.Character) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	lobbyID = strings.TrimSpace(lobbyID)
	if lobbyID == "" {
		return fmt.Errorf("lobby id is required")
	}
	if strings.TrimSpace(character.Name) == "" {
		return fmt.Errorf("character name is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO lobby_players (lobby_id, character_name, owner_id, class, item_level, position)
		 VALUES (?, ?, ?, ?, ?, (
		   SELECT COALESCE(MAX(position) + 1, 0) FROM lobby_players WHERE lobby_id = ?
		 ))`,
		lobbyID,
		character.Name,
		character.OwnerID,
		character.Class,
		character.ItemLevel,
		lobbyID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("add roster member: %w", err)
	}
	return nil
}

// RemoveRosterMember deletes one confirmed participant by character name.
func (s *Store) RemoveRosterMember(ctx context.Context, lobbyID string, characterName string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		"DELETE FROM lobby_players WHERE lobby_id = ? AND character_name = ?",
		strings.TrimSpace(lobbyID),
		strings.TrimSpace(characterName),
	)
	if err != nil {
		return fmt.Errorf("remove roster member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove roster member rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LoadRoster returns a lobby's confirmed participants in join order.
func (s *Store) LoadRoster(ctx context.Context, lobbyID string) ([]domain.Character, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT character_name, owner_id, class, item_level
		   FROM lobby_players
		  WHERE lobby_id = ?
		  ORDER BY position`,
		strings.TrimSpace(lobbyID),
	)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roster []domain.Character
	for rows.Next() {
		var member domain.Character
		if err := rows.Scan(&member.Name, &member.OwnerID, &member.Class, &member.ItemLevel); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		roster = append(roster, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster rows: %w", err)
	}
	return roster, nil
}

// ListEligibleCandidates returns guild characters at or above minItemLevel
// whose owners are not excluded, strongest first.
func (s *Store) ListEligibleCandidates(ctx context.Context, guildID string, minItemLevel int, excludedOwners []string) ([]domain.Character, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, fmt.Errorf("guild id is required")
	}

	query := strings.Builder{}
	query.WriteString(
		`SELECT name, owner_id, class, item_level
		   FROM characters
		  WHERE guild_id = ? AND item_level >= ?`,
	)
	args := []any{guildID, minItemLevel}
	if len(excludedOwners) > 0 {
		query.WriteString(" AND owner_id NOT IN (?" + strings.Repeat(", ?", len(excludedOwners)-1) + ")")
		for _, owner := range excludedOwners {
			args = append(args, owner)
		}
	}
	query.WriteString(" ORDER BY item_level DESC, name")

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []domain.Character
	for rows.Next() {
		var candidate domain.Character
		if err := rows.Scan(&candidate.Name, &candidate.OwnerID, &candidate.Class, &candidate.ItemLevel); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	return candidates, nil
}

// GetCharacter returns one guild character by name.
func (s *Store) GetCharacter(ctx context.Context, guildID string, characterName string) (domain.Character, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Character{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT name, owner_id, class, item_level
		   FROM characters
		  WHERE guild_id = ? AND name = ?`,
		strings.TrimSpace(guildID),
		strings.TrimSpace(characterName),
	)
	var character domain.Character
	if err := row.Scan(&character.Name, &character.OwnerID, &character.Class, &character.ItemLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Character{}, storage.ErrNotFound
		}
		return domain.Character{}, fmt.Errorf("get character: %w", err)
	}
	return character, nil
}

// UpsertCharacter registers or refreshes one guild character record.
func (s *Store) UpsertCharacter(ctx context.Context, guildID string, character domain.Character) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}
	if strings.TrimSpace(character.Name) == "" {
		return fmt.Errorf("character name is required")
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO characters (guild_id, name, owner_id, class, item_level)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (guild_id, name)
		 DO UPDATE SET owner_id = excluded.owner_id, class = excluded.class, item_level = excluded.item_level`,
		guildID,
		character.Name,
		character.OwnerID,
		character.Class,
		character.ItemLevel,
	); err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
