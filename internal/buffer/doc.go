// Package buffer provides the durable local queue that holds readings the
// remote store could not accept.
//
// Two backends implement Buffer:
//   - FileBuffer: newline-delimited versioned JSON records in a plain file
//   - SQLiteBuffer: rows in an embedded SQLite database
//
// Both validate their location when opened and return an error wrapping
// ErrConfiguration if it is a directory or cannot be written. Runtime read
// and write failures wrap ErrIO and are meant to stop the process.
//
// Drain semantics: the file backend removes the drained file only after it
// has been read completely, and the SQLite backend deletes the drained rows
// in the same transaction that selects them. Records handed back by DrainAll
// live only in memory until the caller writes or re-appends them.
package buffer
