// Package migrate upgrades versioned on-disk files one schema step at a
// time. Each file kind owns a [Registry]; packages register the upgrade
// for every version they introduce.
package migrate

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades data from Version-1 to Version.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade rewrites data from the prior version to [Migration.Version].
	Upgrade func(data []byte) ([]byte, error)
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Run upgrades data from fromVersion through every later migration in
// version order. Each step must produce exactly the next version; a gap or
// a duplicate is an error, as is a failing Upgrade. The returned version is
// the last one reached, which on error is the version data was left at.
func Run(data []byte, fromVersion int, migrations []Migration) ([]byte, int, error) {
	sorted := slices.SortedFunc(slices.Values(migrations), func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
	version := fromVersion
	for i, m := range sorted {
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, version, fmt.Errorf("duplicate migration to v%d", m.Version)
		}
		if m.Version <= version {
			continue
		}
		if m.Version != version+1 {
			return nil, version, fmt.Errorf("no migration from v%d to v%d", version, version+1)
		}
		slog.Info("applying migration", "from", version, "to", m.Version, "description", m.Description)
		out, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		data, version = out, m.Version
	}
	return data, version, nil
}
