package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

const contentColumns = `id, playlist_id, kara_id, kid, pos, flag_playing, added_by, created_at`

// contentOrder is the canonical ordering of a playlist. Ties on pos, which a
// consistent playlist never has, go to the most recently added entry.
const contentOrder = `ORDER BY pos ASC, created_at DESC, id DESC`

func (db *DB) InsertContent(ctx context.Context, plc *domain.PlaylistContent) error {
	query := `INSERT INTO playlist_contents (playlist_id, kara_id, kid, pos, flag_playing, added_by, created_at)
		VALUES (:playlist_id, :kara_id, :kid, :pos, :flag_playing, :added_by, :created_at)`

	res, err := db.NamedExecContext(ctx, query, plc)
	if err != nil {
		return fmt.Errorf("failed to insert playlist content: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read playlist content id: %w", err)
	}
	plc.ID = id
	return nil
}

func (db *DB) GetContent(ctx context.Context, id int64) (*domain.PlaylistContent, error) {
	query := `SELECT ` + contentColumns + ` FROM playlist_contents WHERE id = ?`

	plc := &domain.PlaylistContent{}
	err := db.GetContext(ctx, plc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("playlist content %d", id)
	}
	if err != nil {
		return nil, err
	}
	return plc, nil
}

// GetContents loads the given entries. Unknown ids are silently absent from
// the result; callers compare lengths when they need all of them.
func (db *DB) GetContents(ctx context.Context, ids []int64) ([]*domain.PlaylistContent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+contentColumns+` FROM playlist_contents WHERE id IN (?) ORDER BY playlist_id, pos`, ids)
	if err != nil {
		return nil, err
	}

	var contents []*domain.PlaylistContent
	err = db.SelectContext(ctx, &contents, db.Rebind(query), args...)
	return contents, err
}

func (db *DB) ListContents(ctx context.Context, playlistID int64) ([]*domain.PlaylistContent, error) {
	query := `SELECT ` + contentColumns + ` FROM playlist_contents WHERE playlist_id = ? ` + contentOrder

	var contents []*domain.PlaylistContent
	err := db.SelectContext(ctx, &contents, query, playlistID)
	return contents, err
}

func (db *DB) CountContents(ctx context.Context, playlistID int64) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM playlist_contents WHERE playlist_id = ?`, playlistID)
	return count, err
}

// PlayingContent returns the entry flagged as playing, or nil.
func (db *DB) PlayingContent(ctx context.Context, playlistID int64) (*domain.PlaylistContent, error) {
	query := `SELECT ` + contentColumns + ` FROM playlist_contents WHERE playlist_id = ? AND flag_playing = 1 LIMIT 1`

	plc := &domain.PlaylistContent{}
	err := db.GetContext(ctx, plc, query, playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plc, nil
}

// ShiftPositions adds delta to every position in [from, to]. A to of 0 means
// no upper bound.
func (db *DB) ShiftPositions(ctx context.Context, playlistID int64, from, to, delta int) error {
	if to > 0 {
		_, err := db.ExecContext(ctx,
			`UPDATE playlist_contents SET pos = pos + ? WHERE playlist_id = ? AND pos >= ? AND pos <= ?`,
			delta, playlistID, from, to)
		return err
	}
	_, err := db.ExecContext(ctx,
		`UPDATE playlist_contents SET pos = pos + ? WHERE playlist_id = ? AND pos >= ?`,
		delta, playlistID, from)
	return err
}

func (db *DB) SetContentPos(ctx context.Context, id int64, pos int) error {
	res, err := db.ExecContext(ctx, `UPDATE playlist_contents SET pos = ? WHERE id = ?`, pos, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist content", id)
}

func (db *DB) DeleteContents(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM playlist_contents WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(query), args...)
	return err
}

func (db *DB) DeleteContentsByPlaylist(ctx context.Context, playlistID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM playlist_contents WHERE playlist_id = ?`, playlistID)
	return err
}

func (db *DB) ClearPlaying(ctx context.Context, playlistID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE playlist_contents SET flag_playing = 0 WHERE playlist_id = ? AND flag_playing = 1`, playlistID)
	return err
}

func (db *DB) SetContentPlaying(ctx context.Context, id int64, playing bool) error {
	res, err := db.ExecContext(ctx, `UPDATE playlist_contents SET flag_playing = ? WHERE id = ?`, playing, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "playlist content", id)
}
