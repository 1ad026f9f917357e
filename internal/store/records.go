package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// NextRecordID returns the id the next minted record will get.
// Records are never deleted, so ids stay dense and monotonic.
func (t *Tx) NextRecordID() (ir.RecordID, error) {
	var next int64
	if err := t.queryRow(`SELECT COALESCE(MAX(id) + 1, 0) FROM records`).Scan(&next); err != nil {
		return 0, fmt.Errorf("next record id: %w", err)
	}
	return ir.RecordID(next), nil
}

// InsertRecord stores a newly minted record.
func (t *Tx) InsertRecord(rec ir.Record) error {
	params, err := marshalParams(rec.Params)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	_, err = t.exec(`
		INSERT INTO records (id, owner, strategy, params, issuer, asset, minted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		int64(rec.ID),
		marshalAddress(rec.Owner),
		string(rec.Strategy),
		params,
		marshalAddress(rec.Issuer),
		marshalAddress(rec.Asset),
		int64(rec.MintedAt),
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", rec.ID, err)
	}
	return nil
}

// Record reads one record. Unknown ids fail with ir.ErrNotFound.
func (t *Tx) Record(id ir.RecordID) (ir.Record, error) {
	row := t.queryRow(`
		SELECT id, owner, strategy, params, issuer, asset, minted_at
		FROM records WHERE id = ?
	`, int64(id))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, ir.ErrNotFound.With("record not found", "record_id", strconv.FormatUint(uint64(id), 10))
	}
	if err != nil {
		return ir.Record{}, fmt.Errorf("read record %d: %w", id, err)
	}
	return rec, nil
}

// SetRecordOwner moves a record to a new owner.
func (t *Tx) SetRecordOwner(id ir.RecordID, owner common.Address) error {
	return t.updateRecord(id, `UPDATE records SET owner = ? WHERE id = ?`, marshalAddress(owner))
}

// SetRecordParams replaces a record's params.
func (t *Tx) SetRecordParams(id ir.RecordID, params []*uint256.Int) error {
	data, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	return t.updateRecord(id, `UPDATE records SET params = ? WHERE id = ?`, data)
}

func (t *Tx) updateRecord(id ir.RecordID, stmt string, value any) error {
	res, err := t.exec(stmt, value, int64(id))
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	if n == 0 {
		return ir.ErrNotFound.With("record not found", "record_id", strconv.FormatUint(uint64(id), 10))
	}
	return nil
}

// RecordIDsByOwner lists the records owned by owner in ascending id order.
func (t *Tx) RecordIDsByOwner(owner common.Address) ([]ir.RecordID, error) {
	return t.recordIDs(`SELECT id FROM records WHERE owner = ? ORDER BY id ASC`, marshalAddress(owner))
}

// RecordIDsByIssuerOwner lists the records minted by issuer and currently
// owned by owner, in ascending id order.
func (t *Tx) RecordIDsByIssuerOwner(issuer, owner common.Address) ([]ir.RecordID, error) {
	return t.recordIDs(`
		SELECT id FROM records WHERE issuer = ? AND owner = ? ORDER BY id ASC
	`, marshalAddress(issuer), marshalAddress(owner))
}

func (t *Tx) recordIDs(query string, args ...any) ([]ir.RecordID, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	defer rows.Close()

	var ids []ir.RecordID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, ir.RecordID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record ids: %w", err)
	}
	return ids, nil
}

// Records lists every record in ascending id order.
func (t *Tx) Records() ([]ir.Record, error) {
	rows, err := t.query(`
		SELECT id, owner, strategy, params, issuer, asset, minted_at
		FROM records ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []ir.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// RecordCount returns the number of records ever minted.
func (t *Tx) RecordCount() (uint64, error) {
	var n int64
	if err := t.queryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return uint64(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ir.Record, error) {
	var (
		id, mintedAt                           int64
		owner, strategy, params, issuer, asset string
	)
	if err := row.Scan(&id, &owner, &strategy, &params, &issuer, &asset, &mintedAt); err != nil {
		return ir.Record{}, err
	}

	rec := ir.Record{
		ID:       ir.RecordID(id),
		Strategy: ir.StrategyID(strategy),
		MintedAt: uint64(mintedAt),
	}
	var err error
	if rec.Owner, err = unmarshalAddress(owner); err != nil {
		return ir.Record{}, err
	}
	if rec.Issuer, err = unmarshalAddress(issuer); err != nil {
		return ir.Record{}, err
	}
	if rec.Asset, err = unmarshalAddress(asset); err != nil {
		return ir.Record{}, err
	}
	if rec.Params, err = unmarshalParams(params); err != nil {
		return ir.Record{}, err
	}
	return rec, nil
}
