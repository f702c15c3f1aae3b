package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/histlog/internal/canonical"
	"github.com/roach88/histlog/internal/transport"
)

// FormatVersion is stored beside every payload. The flat form itself carries no
// version.
const FormatVersion = 1

// Replication is one received replication.
type Replication struct {
	Seq           int64
	ID            string
	Digest        string
	RiskModels    int
	Periods       int
	FormatVersion int
	Flat          transport.Flat
}

// NewReplication validates f and fills in the derived columns. The flat form
// must deserialize cleanly; a structurally broken payload is never stored.
func NewReplication(id string, f transport.Flat) (Replication, error) {
	snap, err := transport.Deserialize(f)
	if err != nil {
		return Replication{}, fmt.Errorf("new replication: %w", err)
	}
	digest, err := Digest(f)
	if err != nil {
		return Replication{}, fmt.Errorf("new replication: %w", err)
	}
	return Replication{
		ID:            id,
		Digest:        digest,
		RiskModels:    snap.Meta.RiskModels,
		Periods:       snap.Periods(),
		FormatVersion: FormatVersion,
		Flat:          f,
	}, nil
}

// Digest computes the content digest of a flat form.
func Digest(f transport.Flat) (string, error) {
	keys := make([]any, len(f.Keys))
	for i, k := range f.Keys {
		keys[i] = k
	}
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		values[i] = v
	}
	return canonical.Digest(canonical.DomainReplication, map[string]any{
		"keys":   keys,
		"values": values,
	})
}

// WriteReplication inserts a replication and reports whether a row was added.
// Uses ON CONFLICT DO NOTHING for idempotency - a second write of the same
// digest or id is silently ignored and returns inserted=false.
func (s *Store) WriteReplication(ctx context.Context, rep Replication) (bool, error) {
	payload, err := transport.Encode(rep.Flat)
	if err != nil {
		return false, fmt.Errorf("write replication: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO replications
		(id, digest, risk_models, periods, format_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rep.ID,
		rep.Digest,
		rep.RiskModels,
		rep.Periods,
		rep.FormatVersion,
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("write replication: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write replication: %w", err)
	}
	return n == 1, nil
}

// ReadReplication returns the replication with the given id.
// Returns sql.ErrNoRows (wrapped) if it does not exist.
func (s *Store) ReadReplication(ctx context.Context, id string) (Replication, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, digest, risk_models, periods, format_version, payload
		FROM replications
		WHERE id = ?
	`, id)

	rep, err := scanReplication(row)
	if err != nil {
		return Replication{}, fmt.Errorf("read replication %s: %w", id, err)
	}
	return rep, nil
}

// ListReplications returns stored replications ordered by seq ASC.
// riskModels filters to one bucket; zero lists every bucket.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListReplications(ctx context.Context, riskModels int) ([]Replication, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if riskModels == 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT seq, id, digest, risk_models, periods, format_version, payload
			FROM replications
			ORDER BY seq ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT seq, id, digest, risk_models, periods, format_version, payload
			FROM replications
			WHERE risk_models = ?
			ORDER BY seq ASC
		`, riskModels)
	}
	if err != nil {
		return nil, fmt.Errorf("query replications: %w", err)
	}
	defer rows.Close()

	reps := []Replication{}
	for rows.Next() {
		rep, err := scanReplication(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replications: %w", err)
	}
	return reps, nil
}

// CountReplications returns the number of stored replications.
func (s *Store) CountReplications(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replications").Scan(&n); err != nil {
		return 0, fmt.Errorf("count replications: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReplication(row scanner) (Replication, error) {
	var (
		rep     Replication
		payload []byte
	)
	err := row.Scan(
		&rep.Seq,
		&rep.ID,
		&rep.Digest,
		&rep.RiskModels,
		&rep.Periods,
		&rep.FormatVersion,
		&payload,
	)
	if err != nil {
		return Replication{}, fmt.Errorf("scan replication: %w", err)
	}

	f, err := transport.Decode(payload)
	if err != nil {
		return Replication{}, fmt.Errorf("scan replication %s: %w", rep.ID, err)
	}
	rep.Flat = f
	return rep, nil
}
