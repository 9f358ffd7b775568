package catalog

import (
	"context"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

// Catalog is the read-only source of kara metadata. Lookups of unknown karas
// or tags fail with domain.ErrNotFound.
type Catalog interface {
	GetKara(ctx context.Context, ref domain.KaraRef) (*domain.Kara, error)
	// GetKaras returns the known karas among ids keyed by id. Missing ids are
	// absent from the map.
	GetKaras(ctx context.Context, ids []int64) (map[int64]*domain.Kara, error)
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
}

type karaStore interface {
	GetKaraByID(ctx context.Context, id int64) (*domain.Kara, error)
	GetKaraByKID(ctx context.Context, kid string) (*domain.Kara, error)
	GetKarasByIDs(ctx context.Context, ids []int64) ([]*domain.Kara, error)
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
}

// StoreCatalog reads karas and tags straight from the database.
type StoreCatalog struct {
	store karaStore
}

func NewStoreCatalog(store karaStore) *StoreCatalog {
	return &StoreCatalog{store: store}
}

func (c *StoreCatalog) GetKara(ctx context.Context, ref domain.KaraRef) (*domain.Kara, error) {
	switch {
	case ref.KID != "":
		return c.store.GetKaraByKID(ctx, ref.KID)
	case ref.ID != 0:
		return c.store.GetKaraByID(ctx, ref.ID)
	default:
		return nil, domain.InvalidArgumentf("empty kara reference")
	}
}

func (c *StoreCatalog) GetKaras(ctx context.Context, ids []int64) (map[int64]*domain.Kara, error) {
	karas, err := c.store.GetKarasByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*domain.Kara, len(karas))
	for _, k := range karas {
		out[k.ID] = k
	}
	return out, nil
}

func (c *StoreCatalog) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return c.store.GetTag(ctx, id)
}

var _ Catalog = (*StoreCatalog)(nil)
