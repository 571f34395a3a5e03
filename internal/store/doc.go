// Package store provides SQLite-backed history of analysis runs.
//
// Each saved run records:
//   - Runs: encounter metadata, fingerprints and the canonical report JSON
//   - Findings: the visible suggestions of the report, one row each
//   - Module statuses: every module's outcome, so withheld findings can be
//     told apart from clean modules
//
// # Critical Patterns
//
// Content-Level Idempotency
//   - UNIQUE(stream_fingerprint, report_fingerprint) on runs
//   - Saving the same analysis of the same stream twice returns the
//     existing run id
//
// Deterministic Query Results
//   - Child rows carry a seq column holding their position in the report
//   - Queries order by created_at, then id COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints are computed by internal/analysis over RFC 8785 style
// canonical JSON with domain-separated SHA-256.
package store
