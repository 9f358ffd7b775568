package catalog

import (
	"context"
	"sync"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

// MockCatalog is an in-memory Catalog for tests and local runs.
type MockCatalog struct {
	mu    sync.RWMutex
	karas map[int64]*domain.Kara
	kids  map[string]int64
	tags  map[string]*domain.Tag

	karasErr error
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		karas: make(map[int64]*domain.Kara),
		kids:  make(map[string]int64),
		tags:  make(map[string]*domain.Tag),
	}
}

// AddKara registers k, assigning an id when it has none. Its tags are
// registered too.
func (m *MockCatalog) AddKara(k domain.Kara) *domain.Kara {
	m.mu.Lock()
	defer m.mu.Unlock()

	if k.ID == 0 {
		k.ID = int64(len(m.karas) + 1)
	}
	kara := &k
	m.karas[kara.ID] = kara
	if kara.KID != "" {
		m.kids[kara.KID] = kara.ID
	}
	for _, t := range kara.Tags {
		tag := t
		m.tags[tag.ID] = &tag
	}
	return kara
}

func (m *MockCatalog) AddTag(t domain.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[t.ID] = &t
}

func (m *MockCatalog) GetKara(ctx context.Context, ref domain.KaraRef) (*domain.Kara, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := ref.ID
	if ref.KID != "" {
		var ok bool
		if id, ok = m.kids[ref.KID]; !ok {
			return nil, domain.NotFoundf("kara %s", ref.KID)
		}
	}
	k, ok := m.karas[id]
	if !ok {
		return nil, domain.NotFoundf("kara %s", ref)
	}
	cp := *k
	return &cp, nil
}

// FailGetKaras makes GetKaras return err until it is called again with nil.
func (m *MockCatalog) FailGetKaras(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.karasErr = err
}

func (m *MockCatalog) GetKaras(ctx context.Context, ids []int64) (map[int64]*domain.Kara, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.karasErr != nil {
		return nil, m.karasErr
	}

	out := make(map[int64]*domain.Kara, len(ids))
	for _, id := range ids {
		if k, ok := m.karas[id]; ok {
			cp := *k
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockCatalog) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tags[id]
	if !ok {
		return nil, domain.NotFoundf("tag %s", id)
	}
	cp := *t
	return &cp, nil
}

var _ Catalog = (*MockCatalog)(nil)
