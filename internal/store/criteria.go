package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

func (db *DB) CreateCriteria(ctx context.Context, c *domain.BlacklistCriteria) error {
	query := `INSERT INTO blacklist_criteria (kind, value, created_at) VALUES (:kind, :value, :created_at)`

	res, err := db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create criteria: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read criteria id: %w", err)
	}
	c.ID = id
	return nil
}

func (db *DB) GetCriteria(ctx context.Context, id int64) (*domain.BlacklistCriteria, error) {
	c := &domain.BlacklistCriteria{}
	err := db.GetContext(ctx, c, `SELECT id, kind, value, created_at FROM blacklist_criteria WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("blacklist criteria %d", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) ListCriteria(ctx context.Context) ([]*domain.BlacklistCriteria, error) {
	var criteria []*domain.BlacklistCriteria
	err := db.SelectContext(ctx, &criteria, `SELECT id, kind, value, created_at FROM blacklist_criteria ORDER BY id ASC`)
	return criteria, err
}

func (db *DB) UpdateCriteria(ctx context.Context, c *domain.BlacklistCriteria) error {
	res, err := db.ExecContext(ctx, `UPDATE blacklist_criteria SET kind = ?, value = ? WHERE id = ?`, c.Kind, c.Value, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update criteria: %w", err)
	}
	return expectAffected(res, "blacklist criteria", c.ID)
}

func (db *DB) DeleteCriteria(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM blacklist_criteria WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "blacklist criteria", id)
}

func (db *DB) ClearCriteria(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM blacklist_criteria`)
	return err
}
