package db

import (
	"context"

	"github.com/lendfast/dealready/internal/deal/entity"
)

const insertSubmissionSQL = `
insert into submissions (id, deal_id, lender_name, status, notes, created_at)
values ($1, $2, $3, $4, $5, $6)`

func (s *DB) CreateSubmission(ctx context.Context, sub entity.Submission) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSubmission")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, insertSubmissionSQL,
		sub.ID, sub.DealID, sub.LenderName, sub.Status, sub.Notes, sub.CreatedAt)
	return s.mapError(err)
}

const selectSubmissionSQL = `
select id, deal_id, lender_name, status, notes, created_at
from submissions where id = $1`

func (s *DB) GetSubmissionByID(ctx context.Context, id int64) (_ *entity.Submission, err error) {
	ctx, span := s.startSpan(ctx, "GetSubmissionByID")
	defer func() { s.endSpan(span, err) }()

	var sub entity.Submission
	err = s.conn.QueryRow(ctx, selectSubmissionSQL, id).Scan(
		&sub.ID, &sub.DealID, &sub.LenderName, &sub.Status, &sub.Notes, &sub.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &sub, nil
}

const listSubmissionsByDealSQL = `
select id, deal_id, lender_name, status, notes, created_at,
       count(*) over() as total
from submissions where deal_id = $1
order by created_at desc
limit $2 offset $3`

func (s *DB) ListSubmissionsByDeal(ctx context.Context, dealID string, f entity.ListFilter) (_ []entity.Submission, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListSubmissionsByDeal")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listSubmissionsByDealSQL, dealID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

const listSubmissionsSQL = `
select id, deal_id, lender_name, status, notes, created_at,
       count(*) over() as total
from submissions
order by created_at desc
limit $1 offset $2`

func (s *DB) ListSubmissions(ctx context.Context, f entity.ListFilter) (_ []entity.Submission, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListSubmissions")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listSubmissionsSQL, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func scanSubmissions(rows dealRows) ([]entity.Submission, int64, error) {
	var (
		subs  []entity.Submission
		total int64
	)
	for rows.Next() {
		var sub entity.Submission
		if err := rows.Scan(
			&sub.ID, &sub.DealID, &sub.LenderName, &sub.Status, &sub.Notes, &sub.CreatedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}
