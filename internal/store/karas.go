package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

const karaColumns = `id, kid, title, title_aliases, series, duration, tags`

func (db *DB) CreateKara(ctx context.Context, k *domain.Kara) error {
	query := `INSERT INTO karas (kid, title, title_aliases, series, duration, tags)
		VALUES (:kid, :title, :title_aliases, :series, :duration, :tags)`

	res, err := db.NamedExecContext(ctx, query, k)
	if err != nil {
		return fmt.Errorf("failed to create kara: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read kara id: %w", err)
	}
	k.ID = id
	return nil
}

func (db *DB) GetKaraByID(ctx context.Context, id int64) (*domain.Kara, error) {
	k := &domain.Kara{}
	err := db.GetContext(ctx, k, `SELECT `+karaColumns+` FROM karas WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("kara %d", id)
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (db *DB) GetKaraByKID(ctx context.Context, kid string) (*domain.Kara, error) {
	k := &domain.Kara{}
	err := db.GetContext(ctx, k, `SELECT `+karaColumns+` FROM karas WHERE kid = ?`, kid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("kara %s", kid)
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// GetKarasByIDs returns the karas that exist among ids, in no particular order.
func (db *DB) GetKarasByIDs(ctx context.Context, ids []int64) ([]*domain.Kara, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+karaColumns+` FROM karas WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var karas []*domain.Kara
	err = db.SelectContext(ctx, &karas, db.Rebind(query), args...)
	return karas, err
}

func (db *DB) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := db.NamedExecContext(ctx,
		`INSERT INTO tags (id, name, type) VALUES (:id, :name, :type)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type`, t)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (db *DB) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	t := &domain.Tag{}
	err := db.GetContext(ctx, t, `SELECT id, name, type FROM tags WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("tag %s", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
