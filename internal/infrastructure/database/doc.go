// Package database provides the SQLite connection used by the SQLite buffer
// backend.
//
// This package manages:
//   - A single-connection SQLite handle in WAL mode
//   - Schema migrations loaded from an fs.FS supplied by the caller
//   - Transaction helpers
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "data/buffer.db", BusyTimeout: 5, Durable: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
