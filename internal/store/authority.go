package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tiermigrate/internal/ir"
)

const (
	authorityPending   = "pending"
	authorityFinalized = "finalized"
)

// Authority reads the migration authority. ok is false before init.
func (t *Tx) Authority() (auth ir.Authority, ok bool, err error) {
	var (
		asset, state, controller, registry string
		finalizedAt                        int64
	)
	err = t.queryRow(`
		SELECT asset, state, controller, registry, finalized_at
		FROM authority WHERE id = 1
	`).Scan(&asset, &state, &controller, &registry, &finalizedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Authority{}, false, nil
	}
	if err != nil {
		return ir.Authority{}, false, fmt.Errorf("read authority: %w", err)
	}

	auth.Asset, err = unmarshalAddress(asset)
	if err != nil {
		return ir.Authority{}, false, fmt.Errorf("read authority: %w", err)
	}

	switch state {
	case authorityPending:
		c, err := unmarshalAddress(controller)
		if err != nil {
			return ir.Authority{}, false, fmt.Errorf("read authority: %w", err)
		}
		auth.State = ir.Pending{Controller: c}
	case authorityFinalized:
		r, err := unmarshalAddress(registry)
		if err != nil {
			return ir.Authority{}, false, fmt.Errorf("read authority: %w", err)
		}
		auth.State = ir.Finalized{Registry: r, At: uint64(finalizedAt)}
	default:
		return ir.Authority{}, false, fmt.Errorf("read authority: unknown state %q", state)
	}
	return auth, true, nil
}

// PutAuthority writes the migration authority row.
func (t *Tx) PutAuthority(auth ir.Authority) error {
	var (
		state       string
		controller  = auth.Controller()
		registry    = auth.Registry()
		finalizedAt uint64
	)
	switch s := auth.State.(type) {
	case ir.Pending:
		state = authorityPending
	case ir.Finalized:
		state = authorityFinalized
		finalizedAt = s.At
	default:
		return fmt.Errorf("write authority: unknown state %T", auth.State)
	}

	_, err := t.exec(`
		INSERT INTO authority (id, asset, state, controller, registry, finalized_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			asset = excluded.asset,
			state = excluded.state,
			controller = excluded.controller,
			registry = excluded.registry,
			finalized_at = excluded.finalized_at
	`,
		marshalAddress(auth.Asset),
		state,
		marshalAddress(controller),
		marshalAddress(registry),
		int64(finalizedAt),
	)
	if err != nil {
		return fmt.Errorf("write authority: %w", err)
	}
	return nil
}
