// Package store is the consent ledger: a current-state table and an
// append-only history table kept mutually consistent under one transaction.
//
// Error Contract:
//   - Set writes exactly one history row and upserts exactly one current row,
//     atomically; on failure neither write is visible
//   - ListCurrent returns rows ordered by type ascending (byte order,
//     locale-independent)
//   - ListHistory returns rows ordered by updated_at descending
//   - Infrastructure failures are returned wrapped with context, original
//     identity preserved
package store
