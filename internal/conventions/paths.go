package conventions

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// DefaultDataDir is the default consoleqa data directory name (relative to home).
	DefaultDataDir = ".consoleqa"
	// DBFile is the verification history database filename.
	DBFile = "consoleqa.db"
)

// Console layout.
const (
	// LoginPath is the console login page.
	LoginPath = "/login.jsp"
	// SystemUpdatePath is the system updates page, rendered in the right frame.
	SystemUpdatePath = "/jsp/system_update.jsp"

	FrameTopHead = "tophead"
	FrameLeft    = "left"
	FrameRight   = "right"

	// LoginUserField and LoginPasswordField are the login form input names.
	LoginUserField     = "userid"
	LoginPasswordField = "password"
)

// Frames returns the frames the console frameset must have.
func Frames() []string {
	return []string{FrameTopHead, FrameLeft, FrameRight}
}

// Appliance layout.
const (
	// INIFile is the appliance main configuration, it has the installed component versions.
	INIFile = "/etc/iscan/intscan.ini"
	// LocksDir has one lock file per component while it's being updated.
	LocksDir = "/var/iwss/updates/locks"
	// UpdateLogFile is the component update log.
	UpdateLogFile = "/var/log/iwss/update.log"
	// BackupDir has the component backups used by rollbacks.
	BackupDir = "/var/iwss/backup"
	// ServiceName is the appliance main service.
	ServiceName = "iwss"
	// OSReleaseFile has the appliance OS release.
	OSReleaseFile = "/etc/redhat-release"
)

// DBPath returns the history database path for a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// LockFilePath returns the lock file path of a component lock name (e.g: ptn).
func LockFilePath(lockName string) string {
	return path.Join(LocksDir, lockName+".lock")
}

// BackupPath returns the backup directory of a component.
func BackupPath(componentID string) string {
	return path.Join(BackupDir, strings.ToLower(componentID))
}
