package ir

import "github.com/ethereum/go-ethereum/common"

// AuthorityState is the migration handoff state. It is exactly one of
// Pending or Finalized; the interface is sealed so a type switch over the
// two is exhaustive.
type AuthorityState interface {
	authorityState()
}

// Pending is the state before the handoff: only Controller may finalize and
// every migration entry point is closed.
type Pending struct {
	Controller common.Address
}

// Finalized is the absorbing state: Registry receives all issuance and the
// migration entry points are open to any caller.
type Finalized struct {
	Registry common.Address
	At       uint64
}

func (Pending) authorityState()   {}
func (Finalized) authorityState() {}

// Authority binds the migrated asset to its handoff state.
type Authority struct {
	Asset common.Address
	State AuthorityState
}

// IsFinalized reports whether the handoff happened.
func (a Authority) IsFinalized() bool {
	_, ok := a.State.(Finalized)
	return ok
}

// Controller is the address allowed to finalize, or the zero address once
// the handoff is done.
func (a Authority) Controller() common.Address {
	if p, ok := a.State.(Pending); ok {
		return p.Controller
	}
	return common.Address{}
}

// Registry is the finalized registry, or the zero address while pending.
func (a Authority) Registry() common.Address {
	if f, ok := a.State.(Finalized); ok {
		return f.Registry
	}
	return common.Address{}
}
