// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package throttle

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
