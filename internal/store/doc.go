// Package store provides SQLite-backed storage for the launcher content
// store and for the remote key/value backup set.
//
// A launcher database holds placed items (favorites) and workspace screens;
// the backup engine enumerates them as its data source, and a restore target
// receives decoded records through ApplyRestoredRecord. A remote database
// holds backup entities keyed by encoded record key, written as the backup
// stream and read back on restore.
//
// Every database runs in WAL mode with a five second busy timeout, and its
// schema version is tracked in user_version.
//
// Entity reads are ordered by key so that restores and listings are
// deterministic.
package store
