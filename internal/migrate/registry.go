package migrate

import "fmt"

// Registry holds the schema version and upgrade chain for one file kind.
type Registry struct {
	// Name labels the file kind in errors, e.g. "config".
	Name string
	// CurrentVersion is the version this binary reads and writes.
	CurrentVersion int
	// Migrations is the upgrade chain. Exported so tests can swap it.
	Migrations []Migration
}

// Register adds m to the chain. It panics on a duplicate version or one
// beyond CurrentVersion, both of which are programming errors.
func (r *Registry) Register(m Migration) {
	if m.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: %s migration to v%d exceeds current version %d", r.Name, m.Version, r.CurrentVersion))
	}
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate %s migration version %d (description: %q)", r.Name, m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// Check rejects files written by a newer binary.
func (r *Registry) Check(fileVersion int) error {
	if fileVersion > r.CurrentVersion {
		return fmt.Errorf("%s version %d is newer than supported version %d", r.Name, fileVersion, r.CurrentVersion)
	}
	return nil
}

// NeedsMigration reports whether a file at fileVersion is older than
// CurrentVersion.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	return fileVersion < r.CurrentVersion
}

// Upgrade migrates data to CurrentVersion. It fails if the chain stops
// short of CurrentVersion.
func (r *Registry) Upgrade(data []byte, fromVersion int) ([]byte, error) {
	out, version, err := Run(data, fromVersion, r.Migrations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	if version != r.CurrentVersion {
		return nil, fmt.Errorf("%s: no migration from v%d to v%d", r.Name, version, version+1)
	}
	return out, nil
}

// Config is the registry for config.toml.
//
// Version history:
//   - 1: a single [render] table with start_size, margin, and font_path
//   - 2: split into [fit], [layout], and [font] tables
var Config = &Registry{Name: "config", CurrentVersion: 2}
