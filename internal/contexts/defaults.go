package contexts

import "slices"

// Every Helix deployment ships with a fixed set of default compute and
// launcher contexts. They are platform infrastructure: no client operation
// may create, edit or delete a context carrying one of these names.

var defaultComputeContexts = []string{
	"Formats service compute context",
	"Data Mining compute context",
	"Import service compute context",
	"Job Execution compute context",
	"Model Manager compute context",
	"Studio compute context",
	"Visual Forecasting compute context",
}

var defaultLauncherContexts = []string{
	"Formats service launcher context",
	"Data Mining launcher context",
	"Import service launcher context",
	"Job Flow Execution launcher context",
	"Job Execution launcher context",
	"Model Manager launcher context",
	"Studio launcher context",
	"Visual Forecasting launcher context",
}

// DefaultComputeContexts returns the reserved compute context names.
func (m *Manager) DefaultComputeContexts() []string {
	return slices.Clone(m.defaultComputeContexts)
}

// DefaultLauncherContexts returns the reserved launcher context names.
func (m *Manager) DefaultLauncherContexts() []string {
	return slices.Clone(m.defaultLauncherContexts)
}

func (m *Manager) isDefaultComputeContext(name string) bool {
	return slices.Contains(m.defaultComputeContexts, name)
}

func (m *Manager) isDefaultLauncherContext(name string) bool {
	return slices.Contains(m.defaultLauncherContexts, name)
}
