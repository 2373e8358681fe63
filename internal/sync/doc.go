// Package sync implements change-log based synchronization for the
// category databases.
//
// Every synchronized table carries three SQL triggers that record the
// latest state of each row key in a per-database change log. The log
// keeps one entry per key: which device changed it last, when (epoch
// milliseconds) and whether the row still exists (UPSERT or DELETE).
//
// Patch files move that state between devices. CreatePatch copies every
// change newer than the local watermark into a standalone SQLite
// database and compresses it; ApplyPatch merges such a file into the
// local database with whole-row last-write-wins semantics, repairs
// foreign key fallout and adopts the winning log entries. Applying the
// same patch twice is a no-op, and devices that exchange their patches
// end up with identical tables regardless of application order.
//
// # Usage
//
//	def, _ := sync.Lookup(sync.CategoryBookmarks)
//	engine, err := sync.NewEngine(db, def, deviceID, patchDir)
//	patch, err := engine.CreatePatch(ctx)
package sync
