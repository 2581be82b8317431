package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/domain"
)

const decisionColumns = `id, request_id, subject, principal, method, resource, allowed, reason, rule, status, created_at`

// maxListLimit caps a single listing.
const maxListLimit = 500

type decisionsRepo struct {
	q dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *decisionsRepo) InsertDecision(ctx context.Context, rec domain.DecisionRecord) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO decisions (`+decisionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RequestID,
		rec.Subject,
		rec.Principal,
		rec.Method,
		rec.Resource,
		rec.Allowed,
		rec.Reason,
		rec.Rule,
		rec.Status,
		rec.CreatedAt.UnixMilli(),
	)
	return err
}

func (r *decisionsRepo) GetDecision(ctx context.Context, id string) (domain.DecisionRecord, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id)
	rec, err := scanDecision(row)
	if err != nil {
		return domain.DecisionRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *decisionsRepo) ListDecisions(ctx context.Context, f domain.DecisionFilter) ([]domain.DecisionRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if f.Allowed != nil {
		where = append(where, "allowed = ?")
		args = append(args, *f.Allowed)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	query := `SELECT ` + decisionColumns + ` FROM decisions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *decisionsRepo) DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanDecision(row rowScanner) (domain.DecisionRecord, error) {
	var (
		rec       domain.DecisionRecord
		createdAt int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Subject,
		&rec.Principal,
		&rec.Method,
		&rec.Resource,
		&rec.Allowed,
		&rec.Reason,
		&rec.Rule,
		&rec.Status,
		&createdAt,
	)
	if err != nil {
		return domain.DecisionRecord{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
