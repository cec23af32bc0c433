package repository

import (
	"context"
	"sync"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
)

// MemoryRepo keeps namespaces in process. A namespace created by Insert
// survives DeleteAll, the way an emptied Mongo collection does.
type MemoryRepo struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*toggle.Toggle
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{namespaces: make(map[string]map[string]*toggle.Toggle)}
}

func (m *MemoryRepo) NamespaceExists(_ context.Context, ns string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.namespaces[ns]
	return ok, nil
}

func (m *MemoryRepo) Insert(_ context.Context, ns string, t *toggle.Toggle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.namespaces[ns]
	if !ok {
		col = make(map[string]*toggle.Toggle)
		m.namespaces[ns] = col
	}
	cp := *t
	col[t.ID] = &cp
	return nil
}

func (m *MemoryRepo) FindAll(ctx context.Context, ns string) ([]*toggle.Toggle, error) {
	return m.Find(ctx, ns, Filter{})
}

func (m *MemoryRepo) Find(_ context.Context, ns string, f Filter) ([]*toggle.Toggle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.namespaces[ns]
	out := make([]*toggle.Toggle, 0, len(col))
	for _, t := range col {
		if f.Match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepo) FindByID(_ context.Context, ns, id string) (*toggle.Toggle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.namespaces[ns][id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, toggle.ErrToggleNotFound
}

func (m *MemoryRepo) UpdateFields(_ context.Context, ns, id string, f Fields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.namespaces[ns][id]
	if !ok {
		return 0, nil
	}
	f.apply(t)
	return 1, nil
}

func (m *MemoryRepo) DeleteByID(_ context.Context, ns, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.namespaces[ns]
	if _, ok := col[id]; !ok {
		return 0, nil
	}
	delete(col, id)
	return 1, nil
}

func (m *MemoryRepo) DeleteAll(_ context.Context, ns string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.namespaces[ns]
	if !ok {
		return 0, nil
	}
	n := int64(len(col))
	m.namespaces[ns] = make(map[string]*toggle.Toggle)
	return n, nil
}

func (m *MemoryRepo) Count(_ context.Context, ns string, f *Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, t := range m.namespaces[ns] {
		if f == nil || f.Match(t) {
			n++
		}
	}
	return n, nil
}
