// Package ir provides the shared types of the migration system.
//
// This package contains type definitions, the error taxonomy and the
// canonical encoding used for event identity. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Amounts are *uint256.Int, never floats, and are encoded as decimal strings
//   - Addresses are go-ethereum common.Address; the zero address means "none"
//   - Times are unix seconds (uint64) so record params stay integer-only
//   - All JSON tags use snake_case
package ir
