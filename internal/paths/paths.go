// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	ConfigFile = "config.toml"
	LogFile    = "captioner.log"
	BinaryName = "captioner"
)

// Default locations, relative to the data directory. The config file may
// override each of them.
const (
	CatalogPath = "data/memes.json"
	ImageDir    = "data/img"
	OutputDir   = "output"
	InboxDir    = "inbox"
)

// Inbox layout used by watch mode.
const (
	JobExt    = ".json"
	ErrorExt  = ".err"
	DoneDir   = "done"
	FailedDir = "failed"
	LockFile  = ".captioner.lock"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the default log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Resolve returns p unchanged when it is absolute, otherwise p joined to
// the data directory. An empty p stays empty.
func (d DataDir) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}

// ///////////////////////////////////////////////
// Inbox
// ///////////////////////////////////////////////

// Inbox provides path construction methods for a watch-mode inbox.
type Inbox struct {
	Dir string
}

// Done returns the directory processed jobs move to.
func (in Inbox) Done() string { return filepath.Join(in.Dir, DoneDir) }

// Failed returns the directory failed jobs move to.
func (in Inbox) Failed() string { return filepath.Join(in.Dir, FailedDir) }

// Lock returns the lock file path guarding the inbox.
func (in Inbox) Lock() string { return filepath.Join(in.Dir, LockFile) }

// ErrorNote returns the failure note path for a job file name.
func (in Inbox) ErrorNote(job string) string {
	return filepath.Join(in.Failed(), job+ErrorExt)
}

// IsJob reports whether name looks like a job file: a .json file that is
// not hidden.
func IsJob(name string) bool {
	base := filepath.Base(name)
	return len(base) > len(JobExt) && base[0] != '.' && filepath.Ext(base) == JobExt
}
