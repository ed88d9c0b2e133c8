package nav

import (
	"sync"

	"github.com/datastudio/warehouse-admin/internal/authstore"
)

// Source is the part of the session store the menu depends on.
type Source interface {
	Snapshot() authstore.Snapshot
	Subscribe(fn func(authstore.Snapshot)) func()
}

// Menu memoises the filtered tree for one session store. The memo is dropped
// whenever the store changes, so a menu is never reused across identities.
type Menu struct {
	items []Item
	src   Source

	mu      sync.Mutex
	visible []Item
	valid   bool
	cancel  func()
}

// NewMenu binds items to src.
func NewMenu(items []Item, src Source) *Menu {
	m := &Menu{items: items, src: src}
	m.cancel = src.Subscribe(func(authstore.Snapshot) {
		m.mu.Lock()
		m.valid = false
		m.visible = nil
		m.mu.Unlock()
	})
	return m
}

// Visible returns the filtered tree for the store's current permissions.
func (m *Menu) Visible() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid {
		m.visible = Filter(m.items, m.src.Snapshot().Permissions)
		m.valid = true
	}
	return m.visible
}

// Close detaches the menu from its store.
func (m *Menu) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}
