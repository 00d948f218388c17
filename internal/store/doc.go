// Package store persists fetched subscriber snapshots and batch run output
// in SQLite.
//
// Tables:
//   - orders, assets: the records a batch validates, upserted per
//     (subscriber, id)
//   - runs: one row per batch with its summary counts
//   - results: one row per subscriber result, keyed by (run_id, seq)
//
// Reads are ordered explicitly and return empty slices, never nil. Field
// maps are stored as canonical JSON so equal records produce equal rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
