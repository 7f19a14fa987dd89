package domain

// PruneReport lists what a store cleanup removed.
type PruneReport struct {
	StagingDirs []string
	Payloads    []string
	Blobs       []string
	Links       []string

	// Bytes is the total size of the removed files.
	Bytes int64
}

// Removed returns the number of removed entries.
func (r PruneReport) Removed() int {
	return len(r.StagingDirs) + len(r.Payloads) + len(r.Blobs) + len(r.Links)
}
