// Package cleanup tracks resources opened by a command and releases them in
// LIFO order on exit.
package cleanup

// Manager collects named cleanup functions. It is not safe for concurrent
// use; commands register resources as they open them and run Execute once.
type Manager struct {
	entries []entry
}

type entry struct {
	name string
	fn   func() error
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add registers a cleanup function. Functions run in LIFO order so that
// dependent resources are released before what they depend on.
func (m *Manager) Add(name string, fn func() error) {
	m.entries = append(m.entries, entry{name: name, fn: fn})
}

// Execute runs every registered function in reverse registration order,
// reporting failures through report. All functions run even if some fail.
func (m *Manager) Execute(report func(name string, err error)) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if err := m.entries[i].fn(); err != nil && report != nil {
			report(m.entries[i].name, err)
		}
	}
	m.entries = nil
}
