// Package store persists per-guild playback settings in SQLite behind a
// Bloom filter and LRU cache.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"guildplayer/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id TEXT PRIMARY KEY,
	autoplay INTEGER NOT NULL DEFAULT 0,
	persistent_enabled INTEGER NOT NULL DEFAULT 0,
	persistent_voice_channel_id TEXT NOT NULL DEFAULT '',
	persistent_text_channel_id TEXT NOT NULL DEFAULT '',
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// SettingsStore is the SQLite backed implementation of core.SettingsStore.
// Other processes may write the same database file; their commits are
// detected through PRAGMA data_version and invalidate the cache.
type SettingsStore struct {
	db     *sql.DB
	cache  *settingsCache
	logger *zap.Logger
	now    func() time.Time

	syncMutex   sync.Mutex
	dataVersion int64
}

// Open opens (and if needed creates) the settings database at path.
func Open(ctx context.Context, config core.StoreConfig, logger *zap.Logger) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", config.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	// SQLite serializes writers.
	db.SetMaxOpenConns(1)

	store := &SettingsStore{
		db:     db,
		cache:  newSettingsCache(config.CacheSize, config.BloomFalsePositiveRate),
		logger: logger,
		now:    time.Now,
	}

	if err := store.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SettingsStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create settings schema: %w", err)
	}

	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	version, err := s.readDataVersion(ctx)
	if err != nil {
		return err
	}
	n, err := s.reloadCache(ctx)
	if err != nil {
		return err
	}
	s.dataVersion = version

	s.logger.Info("Settings store ready", zap.Int("guilds", n))
	return nil
}

// syncCache reloads the cache when another connection committed since the
// last check. Commits on our own connection leave data_version unchanged.
func (s *SettingsStore) syncCache(ctx context.Context) error {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	version, err := s.readDataVersion(ctx)
	if err != nil {
		return err
	}
	if version == s.dataVersion {
		return nil
	}

	n, err := s.reloadCache(ctx)
	if err != nil {
		return err
	}
	s.dataVersion = version
	s.logger.Debug("Settings changed by another process, cache reloaded", zap.Int("guilds", n))
	return nil
}

func (s *SettingsStore) readDataVersion(ctx context.Context) (int64, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read data version: %w", err)
	}
	return version, nil
}

func (s *SettingsStore) reloadCache(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id FROM guild_settings`)
	if err != nil {
		return 0, fmt.Errorf("failed to load guild ids: %w", err)
	}
	defer rows.Close()

	var guildIDs []string
	for rows.Next() {
		var guildID string
		if err := rows.Scan(&guildID); err != nil {
			return 0, fmt.Errorf("failed to scan guild id: %w", err)
		}
		guildIDs = append(guildIDs, guildID)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to load guild ids: %w", err)
	}

	s.cache.load(guildIDs)
	return len(guildIDs), nil
}

// FindSettings returns the stored settings for guildID, or nil when none exist.
func (s *SettingsStore) FindSettings(ctx context.Context, guildID string) (*core.GuildSettings, error) {
	if err := s.syncCache(ctx); err != nil {
		return nil, err
	}
	if !s.cache.mayExist(guildID) {
		return nil, nil
	}
	if settings, ok := s.cache.get(guildID); ok {
		return settings, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, autoplay, persistent_enabled,
			persistent_voice_channel_id, persistent_text_channel_id, updated_at
		FROM guild_settings WHERE guild_id = ?`, guildID)

	settings, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings for guild %s: %w", guildID, err)
	}

	s.cache.put(settings)
	return settings, nil
}

// SaveSettings creates or replaces the settings row for settings.GuildID.
func (s *SettingsStore) SaveSettings(ctx context.Context, settings *core.GuildSettings) error {
	if settings.GuildID == "" {
		return errors.New("guild id is required")
	}

	saved := *settings
	saved.UpdatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, autoplay, persistent_enabled,
			persistent_voice_channel_id, persistent_text_channel_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			autoplay = excluded.autoplay,
			persistent_enabled = excluded.persistent_enabled,
			persistent_voice_channel_id = excluded.persistent_voice_channel_id,
			persistent_text_channel_id = excluded.persistent_text_channel_id,
			updated_at = excluded.updated_at
	`, saved.GuildID, saved.AutoplayEnabled, saved.Persistent.Enabled,
		saved.Persistent.VoiceChannelID, saved.Persistent.TextChannelID, saved.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings for guild %s: %w", settings.GuildID, err)
	}

	s.cache.put(&saved)
	s.logger.Debug("Saved guild settings",
		zap.String("guildID", saved.GuildID),
		zap.Bool("autoplay", saved.AutoplayEnabled),
		zap.Bool("persistent", saved.Persistent.Enabled))
	return nil
}

// DeleteSettings removes the settings row for guildID. Deleting a guild
// without settings is not an error.
func (s *SettingsStore) DeleteSettings(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id = ?`, guildID); err != nil {
		return fmt.Errorf("failed to delete settings for guild %s: %w", guildID, err)
	}
	s.cache.remove(guildID)
	return nil
}

// ListSettings returns every stored row ordered by guild ID.
func (s *SettingsStore) ListSettings(ctx context.Context) ([]*core.GuildSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, autoplay, persistent_enabled,
			persistent_voice_channel_id, persistent_text_channel_id, updated_at
		FROM guild_settings ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var result []*core.GuildSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		result = append(result, settings)
	}
	return result, rows.Err()
}

// PersistentGuilds returns the settings of guilds with a persistent session enabled.
func (s *SettingsStore) PersistentGuilds(ctx context.Context) ([]*core.GuildSettings, error) {
	all, err := s.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	var result []*core.GuildSettings
	for _, settings := range all {
		if settings.Persistent.Enabled {
			result = append(result, settings)
		}
	}
	return result, nil
}

// Close closes the database.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSettings(row scanner) (*core.GuildSettings, error) {
	var (
		settings  core.GuildSettings
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&settings.GuildID,
		&settings.AutoplayEnabled,
		&settings.Persistent.Enabled,
		&settings.Persistent.VoiceChannelID,
		&settings.Persistent.TextChannelID,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		settings.UpdatedAt = updatedAt.Time
	}
	return &settings, nil
}
