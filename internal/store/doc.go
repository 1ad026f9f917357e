// Package store provides SQLite-backed durable storage for migration state.
//
// The store holds:
//   - Authority: the single Pending/Finalized handoff row
//   - Holder state: per-holder accumulated amount and tier
//   - Records: ledger entries with owner, strategy and params
//   - Legacy positions, redemption approvals and pending redemptions
//   - Custody balances per (account, asset)
//   - Events: the append-only audit log
//
// # Atomicity
//
// Every state-changing entry point runs in Store.Atomic. The connection
// pool holds exactly one connection, so transactions are serialized in a
// total order and an error anywhere rolls back the whole call.
//
// # Encoding
//
//   - Amounts are base-10 TEXT; uint256 does not fit INTEGER
//   - Addresses are EIP-55 hex TEXT
//   - Event payloads and record params are RFC 8785 canonical JSON
//   - Event ordering uses seq INTEGER (logical clock), never timestamps
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
