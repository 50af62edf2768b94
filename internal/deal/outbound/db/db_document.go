package db

import (
	"context"

	"github.com/lendfast/dealready/internal/deal/entity"
)

const insertDocumentSQL = `
insert into documents (id, deal_id, file_name, content_type, size_bytes, storage_key, created_at)
values ($1, $2, $3, $4, $5, $6, $7)`

func (s *DB) CreateDocument(ctx context.Context, d entity.Document) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDocument")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, insertDocumentSQL,
		d.ID, d.DealID, d.FileName, d.ContentType, d.SizeBytes, d.StorageKey, d.CreatedAt)
	return s.mapError(err)
}

const selectDocumentSQL = `
select id, deal_id, file_name, content_type, size_bytes, storage_key, created_at
from documents where id = $1`

func (s *DB) GetDocumentByID(ctx context.Context, id int64) (_ *entity.Document, err error) {
	ctx, span := s.startSpan(ctx, "GetDocumentByID")
	defer func() { s.endSpan(span, err) }()

	var d entity.Document
	err = s.conn.QueryRow(ctx, selectDocumentSQL, id).Scan(
		&d.ID, &d.DealID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &d, nil
}

const listDocumentsByDealSQL = `
select id, deal_id, file_name, content_type, size_bytes, storage_key, created_at
from documents where deal_id = $1
order by created_at desc`

func (s *DB) ListDocumentsByDeal(ctx context.Context, dealID string) (_ []entity.Document, err error) {
	ctx, span := s.startSpan(ctx, "ListDocumentsByDeal")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listDocumentsByDealSQL, dealID)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var d entity.Document
		if err := rows.Scan(
			&d.ID, &d.DealID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
