package db

import (
	"context"
	"strconv"

	"github.com/lendfast/dealready/internal/deal/entity"
)

const insertDealSQL = `
insert into deals (id, owner_id, name, borrower_name, stage, amount_cents, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, $7, $8)`

func (s *DB) CreateDeal(ctx context.Context, d entity.Deal) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeal")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, insertDealSQL,
		d.ID, d.OwnerID, d.Name, d.BorrowerName, d.Stage, d.AmountCents, d.CreatedAt, d.UpdatedAt)
	return s.mapError(err)
}

const selectDealSQL = `
select id, owner_id, name, borrower_name, stage, amount_cents, created_at, updated_at
from deals where id = $1`

func (s *DB) GetDealByID(ctx context.Context, id string) (_ *entity.Deal, err error) {
	ctx, span := s.startSpan(ctx, "GetDealByID")
	defer func() { s.endSpan(span, err) }()

	var d entity.Deal
	err = s.conn.QueryRow(ctx, selectDealSQL, id).Scan(
		&d.ID, &d.OwnerID, &d.Name, &d.BorrowerName, &d.Stage, &d.AmountCents, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &d, nil
}

const listDealsByOwnerSQL = `
select id, owner_id, name, borrower_name, stage, amount_cents, created_at, updated_at,
       count(*) over() as total
from deals where owner_id = $1
order by created_at desc
limit $2 offset $3`

func (s *DB) ListDealsByOwner(ctx context.Context, ownerID string, f entity.ListFilter) (_ []entity.Deal, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListDealsByOwner")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listDealsByOwnerSQL, ownerID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

const listDealsSQL = `
select id, owner_id, name, borrower_name, stage, amount_cents, created_at, updated_at,
       count(*) over() as total
from deals
order by created_at desc
limit $1 offset $2`

func (s *DB) ListDeals(ctx context.Context, f entity.ListFilter) (_ []entity.Deal, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListDeals")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listDealsSQL, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

func (s *DB) UpdateDeal(ctx context.Context, id string, patch entity.DealPatch) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDeal")
	defer func() { s.endSpan(span, err) }()

	set := "updated_at = now()"
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set += ", " + column + " = $" + strconv.Itoa(len(args))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.BorrowerName != nil {
		add("borrower_name", *patch.BorrowerName)
	}
	if patch.Stage != nil {
		add("stage", *patch.Stage)
	}
	if patch.AmountCents != nil {
		add("amount_cents", *patch.AmountCents)
	}

	_, err = s.conn.Exec(ctx, "update deals set "+set+" where id = $1", args...)
	return s.mapError(err)
}

type dealRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDeals(rows dealRows) ([]entity.Deal, int64, error) {
	var (
		deals []entity.Deal
		total int64
	)
	for rows.Next() {
		var d entity.Deal
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.Name, &d.BorrowerName, &d.Stage, &d.AmountCents,
			&d.CreatedAt, &d.UpdatedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		deals = append(deals, d)
	}
	return deals, total, rows.Err()
}
