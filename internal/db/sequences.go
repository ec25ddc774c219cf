package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/transplant/internal/id"
)

// Sequence ties a friendly-ID table to the sqlite_sequence row its insert
// trigger draws from.
type Sequence struct {
	Name   string // sqlite_sequence name
	Table  string
	Type   id.Type
	Prefix string // e.g. "A-" for A-00001
}

// Drift reports a sequence that would hand out an ID already in use.
type Drift struct {
	Sequence
	Current int
	MaxID   int
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Sequences lists every friendly-ID sequence in the schema.
func Sequences() []Sequence {
	return []Sequence{
		{Name: "account_seq", Table: "accounts", Type: id.TypeAccount, Prefix: "A-"},
		{Name: "container_seq", Table: "containers", Type: id.TypeContainer, Prefix: "P-"},
		{Name: "task_seq", Table: "tasks", Type: id.TypeTask, Prefix: "T-"},
		{Name: "comment_seq", Table: "comments", Type: id.TypeComment, Prefix: "C-"},
		{Name: "attachment_seq", Table: "attachments", Type: id.TypeAttachment, Prefix: "ATT-"},
	}
}

// CheckSequences returns the sequences whose counter is behind the highest
// friendly ID in their table.
func CheckSequences(ctx context.Context, q queryer, seqs []Sequence) ([]Drift, error) {
	var drifts []Drift
	for _, s := range seqs {
		maxID, err := highestID(ctx, q, s)
		if err != nil {
			return nil, fmt.Errorf("failed to read highest %s id: %w", s.Table, err)
		}
		cur, err := sequenceValue(ctx, q, s.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence %s: %w", s.Name, err)
		}
		if cur < maxID {
			drifts = append(drifts, Drift{Sequence: s, Current: cur, MaxID: maxID})
		}
	}
	return drifts, nil
}

// RepairSequences advances every drifted counter to its table's highest ID
// in a single transaction and returns what it changed.
func (db *DB) RepairSequences(ctx context.Context, seqs []Sequence) ([]Drift, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	drifts, err := CheckSequences(ctx, tx, seqs)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts {
		if err := setSequence(ctx, tx, d.Name, d.MaxID); err != nil {
			return nil, fmt.Errorf("failed to advance sequence %s: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sequence repair: %w", err)
	}
	return drifts, nil
}

func highestID(ctx context.Context, q queryer, s Sequence) (int, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, ?) AS INTEGER)), 0) FROM %s WHERE id LIKE ?", s.Table)
	var n int
	err := q.QueryRowContext(ctx, query, len(s.Prefix)+1, s.Prefix+"%").Scan(&n)
	return n, err
}

func sequenceValue(ctx context.Context, q queryer, name string) (int, error) {
	var seq sql.NullInt64
	err := q.QueryRowContext(ctx, "SELECT seq FROM sqlite_sequence WHERE name = ?", name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(seq.Int64), nil
}

func setSequence(ctx context.Context, q queryer, name string, value int) error {
	res, err := q.ExecContext(ctx, "UPDATE sqlite_sequence SET seq = ? WHERE name = ?", value, name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = q.ExecContext(ctx, "INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", name, value)
	return err
}
