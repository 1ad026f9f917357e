package store

import (
	"fmt"

	"github.com/roach88/tiermigrate/internal/ir"
)

// AppendEvent writes an audit event. The seq must be greater than every
// stored seq; the engine takes it from LastSeq inside the same transaction.
func (t *Tx) AppendEvent(ev ir.Event) error {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = t.exec(`
		INSERT INTO events (seq, id, flow_token, kind, payload, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.Seq, ev.ID, ev.FlowToken, ev.Kind, payload, int64(ev.At))
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.Kind, err)
	}
	return nil
}

// LastSeq returns the highest event seq, or 0 for an empty log.
func (t *Tx) LastSeq() (int64, error) {
	var seq int64
	if err := t.queryRow(`SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Events reads the audit log in seq order. An empty flowToken reads all
// events.
func (t *Tx) Events(flowToken string) ([]ir.Event, error) {
	query := `SELECT seq, id, flow_token, kind, payload, at FROM events ORDER BY seq ASC`
	args := []any{}
	if flowToken != "" {
		query = `SELECT seq, id, flow_token, kind, payload, at FROM events WHERE flow_token = ? ORDER BY seq ASC`
		args = append(args, flowToken)
	}

	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []ir.Event
	for rows.Next() {
		var (
			ev      ir.Event
			payload string
			at      int64
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.FlowToken, &ev.Kind, &payload, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At = uint64(at)
		if ev.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, fmt.Errorf("scan event %d: %w", ev.Seq, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Emit queues an audit event. Queued events are written by FlushEvents, so
// they share the fate of the transaction.
func (t *Tx) Emit(kind string, payload map[string]any) {
	t.emitted = append(t.emitted, emitted{kind: kind, payload: payload})
}

// FlushEvents writes every queued event under flowToken, continuing the
// log's seq, and returns what it wrote.
func (t *Tx) FlushEvents(flowToken string, at uint64) ([]ir.Event, error) {
	if len(t.emitted) == 0 {
		return nil, nil
	}

	seq, err := t.LastSeq()
	if err != nil {
		return nil, err
	}

	out := make([]ir.Event, 0, len(t.emitted))
	for _, e := range t.emitted {
		seq++
		id, err := ir.EventID(flowToken, e.kind, e.payload, seq)
		if err != nil {
			return nil, fmt.Errorf("flush events: %w", err)
		}
		ev := ir.Event{
			ID:        id,
			Seq:       seq,
			FlowToken: flowToken,
			Kind:      e.kind,
			Payload:   e.payload,
			At:        at,
		}
		if err := t.AppendEvent(ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	t.emitted = nil
	return out, nil
}
