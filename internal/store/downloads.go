package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

const downloadColumns = `id, kid, name, status, blacklisted, error, created_at, updated_at`

// CreateDownload inserts an entry unless an active one already exists for the
// same kid. created reports whether the row was written.
func (db *DB) CreateDownload(ctx context.Context, d *domain.DownloadEntry) (created bool, err error) {
	query := `INSERT OR IGNORE INTO download_queue (id, kid, name, status, blacklisted, error, created_at, updated_at)
		VALUES (:id, :kid, :name, :status, :blacklisted, :error, :created_at, :updated_at)`

	res, err := db.NamedExecContext(ctx, query, d)
	if err != nil {
		return false, fmt.Errorf("failed to create download: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (db *DB) GetDownload(ctx context.Context, id string) (*domain.DownloadEntry, error) {
	d := &domain.DownloadEntry{}
	err := db.GetContext(ctx, d, `SELECT `+downloadColumns+` FROM download_queue WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("download %s", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetActiveDownloadByKID returns the planned or running entry for kid, or nil.
func (db *DB) GetActiveDownloadByKID(ctx context.Context, kid string) (*domain.DownloadEntry, error) {
	query := `SELECT ` + downloadColumns + ` FROM download_queue
		WHERE kid = ? AND status IN (?, ?) LIMIT 1`

	d := &domain.DownloadEntry{}
	err := db.GetContext(ctx, d, query, kid, domain.DownloadPlanned, domain.DownloadRunning)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) ListDownloads(ctx context.Context, limit int) ([]*domain.DownloadEntry, error) {
	query := `SELECT ` + downloadColumns + ` FROM download_queue ORDER BY created_at DESC LIMIT ?`

	var entries []*domain.DownloadEntry
	err := db.SelectContext(ctx, &entries, query, limit)
	return entries, err
}

// ListActiveDownloads returns planned and running entries, oldest first.
func (db *DB) ListActiveDownloads(ctx context.Context) ([]*domain.DownloadEntry, error) {
	query := `SELECT ` + downloadColumns + ` FROM download_queue
		WHERE status IN (?, ?) ORDER BY created_at ASC`

	var entries []*domain.DownloadEntry
	err := db.SelectContext(ctx, &entries, query, domain.DownloadPlanned, domain.DownloadRunning)
	return entries, err
}

// UpdateDownloadStatus moves an entry from one status to another. It reports a
// Conflict when the entry is no longer in the expected status.
func (db *DB) UpdateDownloadStatus(ctx context.Context, id string, from, to domain.DownloadStatus, errMsg *string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE download_queue SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, errMsg, time.Now(), id, from)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, gErr := db.GetDownload(ctx, id); gErr != nil {
			return gErr
		}
		return domain.Conflictf("download %s is not %s", id, from)
	}
	return nil
}

// ResetRunningDownloads returns entries left running by a previous process to
// the planned state.
func (db *DB) ResetRunningDownloads(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE download_queue SET status = ?, updated_at = ? WHERE status = ?`,
		domain.DownloadPlanned, time.Now(), domain.DownloadRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) ClearDoneDownloads(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM download_queue WHERE status = ?`, domain.DownloadDone)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
