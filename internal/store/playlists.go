package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

// PlaylistFlag names one of the boolean role columns of playlists.
type PlaylistFlag string

const (
	FlagCurrent PlaylistFlag = "flag_current"
	FlagPublic  PlaylistFlag = "flag_public"
	FlagVisible PlaylistFlag = "flag_visible"
)

var allowedFlags = map[PlaylistFlag]bool{
	FlagCurrent: true,
	FlagPublic:  true,
	FlagVisible: true,
}

const playlistColumns = `id, name, flag_current, flag_public, flag_visible, num_karas, length, time_left, created_at, modified_at`

func (db *DB) CreatePlaylist(ctx context.Context, p *domain.Playlist) error {
	query := `INSERT INTO playlists (name, flag_current, flag_public, flag_visible, num_karas, length, time_left, created_at, modified_at)
		VALUES (:name, :flag_current, :flag_public, :flag_visible, :num_karas, :length, :time_left, :created_at, :modified_at)`

	res, err := db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read playlist id: %w", err)
	}
	p.ID = id
	return nil
}

func (db *DB) GetPlaylist(ctx context.Context, id int64) (*domain.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`

	p := &domain.Playlist{}
	err := db.GetContext(ctx, p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("playlist %d", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlaylistByFlag returns the playlist holding a role, or nil when none does.
func (db *DB) GetPlaylistByFlag(ctx context.Context, flag PlaylistFlag) (*domain.Playlist, error) {
	if !allowedFlags[flag] {
		return nil, fmt.Errorf("invalid flag column: %s", flag)
	}
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE ` + string(flag) + ` = 1 ORDER BY id LIMIT 1`

	p := &domain.Playlist{}
	err := db.GetContext(ctx, p, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists ORDER BY created_at ASC, id ASC`

	var playlists []*domain.Playlist
	err := db.SelectContext(ctx, &playlists, query)
	return playlists, err
}

func (db *DB) RenamePlaylist(ctx context.Context, id int64, name string) error {
	query := `UPDATE playlists SET name = ?, modified_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, name, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist", id)
}

func (db *DB) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist", id)
}

// ClearPlaylistFlag unsets flag on every playlist holding it.
func (db *DB) ClearPlaylistFlag(ctx context.Context, flag PlaylistFlag) error {
	if !allowedFlags[flag] {
		return fmt.Errorf("invalid flag column: %s", flag)
	}
	query := fmt.Sprintf("UPDATE playlists SET %s = 0, modified_at = ? WHERE %s = 1", flag, flag)
	_, err := db.ExecContext(ctx, query, time.Now())
	return err
}

func (db *DB) SetPlaylistFlag(ctx context.Context, id int64, flag PlaylistFlag, value bool) error {
	if !allowedFlags[flag] {
		return fmt.Errorf("invalid flag column: %s", flag)
	}
	query := fmt.Sprintf("UPDATE playlists SET %s = ?, modified_at = ? WHERE id = ?", flag)
	res, err := db.ExecContext(ctx, query, value, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist", id)
}

// UpdatePlaylistStats stores the aggregates derived from the playlist contents.
func (db *DB) UpdatePlaylistStats(ctx context.Context, id int64, numKaras, length, timeLeft int, modifiedAt time.Time) error {
	query := `UPDATE playlists SET num_karas = ?, length = ?, time_left = ?, modified_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, numKaras, length, timeLeft, modifiedAt, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist", id)
}

func expectAffected(res sql.Result, entity string, id interface{}) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundf("%s %v", entity, id)
	}
	return nil
}
