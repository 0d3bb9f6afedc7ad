package store

// DiskUsage returns the total on-disk size of the database in bytes, as
// reported by pebble. Zero when the store is not open.
func DiskUsage() uint64 {
	if db == nil {
		return 0
	}
	return db.Metrics().DiskSpaceUsage()
}

// Path returns the directory the store was opened at.
func Path() string { return dbPath }
