// Package storage persists the bot's cursor state: a flat map of names to
// int64 values.
//
// Drivers:
//   - file:   one JSON object, replaced atomically on every save
//   - sqlite: a cursors table, saved in a single transaction
//   - memory: process-local, for tests and dry runs
package storage
