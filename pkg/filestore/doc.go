// Package filestore persists generated PDF documents under stable identities.
//
// A document is saved either under a fresh identity ("<uuid>.pdf" for full
// reports, "briefing-<uuid>.pdf" for briefings) or in place over an
// existing identity, so regenerating a report keeps its filename. Writes go
// to a hidden temporary file in the target directory, are fsynced and then
// renamed over the target; readers never observe a partial document.
//
// Save and Delete are serialized per identity through a Locker. KeyedMutex
// covers a single process; RedisLocker covers several instances sharing
// one storage directory.
package filestore
