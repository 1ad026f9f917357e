// Package testutil holds helpers shared by package tests: a manual wall
// clock, fixed flow tokens, deterministic addresses and temp-dir stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/store"
)

// Addr returns a deterministic address whose last byte is n.
func Addr(n byte) common.Address {
	return common.BytesToAddress([]byte{n})
}

// NewStore opens a store in a fresh temp directory, closed on cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
