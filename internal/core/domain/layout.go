package domain

import (
	"os"
	"path/filepath"
)

const (
	// KegHomeDir is the default store directory, relative to the user's home.
	KegHomeDir = ".keg"

	// IndexFileName is the metadata index inside the store root.
	IndexFileName = "index.json"

	// LockFileName is the advisory lock file inside the store root.
	LockFileName = "lock"

	// PayloadDirName holds one directory per installed content hash.
	PayloadDirName = "payload"

	// BlobDirName caches fetched artifacts by content hash.
	BlobDirName = "blobs"

	// StagingDirName holds in-progress extractions.
	StagingDirName = "staging"

	// LinkDirName holds one symlink per installed package name.
	LinkDirName = "opt"

	// ConfigFileName is the optional settings file inside the store root.
	ConfigFileName = "config.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the permission for files only the owner may read (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultRoot returns ~/.keg, or .keg in the working directory when the home
// directory cannot be determined.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return KegHomeDir
	}
	return filepath.Join(home, KegHomeDir)
}
