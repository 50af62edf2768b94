package inbound

import (
	"time"

	"github.com/lendfast/dealready/internal/deal/entity"
)

type DealModel struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BorrowerName string    `json:"borrower_name,omitempty"`
	Stage        string    `json:"stage"`
	AmountCents  int64     `json:"amount_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newDealModel(d entity.Deal) DealModel {
	return DealModel{
		ID:           d.ID,
		Name:         d.Name,
		BorrowerName: d.BorrowerName,
		Stage:        d.Stage,
		AmountCents:  d.AmountCents,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type DealListResponse struct {
	Deals []DealModel `json:"deals"`
	Total int64       `json:"total"`
}

func newDealListResponse(deals []entity.Deal, total int64) DealListResponse {
	out := make([]DealModel, 0, len(deals))
	for _, d := range deals {
		out = append(out, newDealModel(d))
	}
	return DealListResponse{Deals: out, Total: total}
}

type DealCreateRequest struct {
	Name         string `json:"name"`
	BorrowerName string `json:"borrower_name"`
	Stage        string `json:"stage"`
	AmountCents  int64  `json:"amount_cents"`
}

type DealUpdateRequest struct {
	Name         *string `json:"name"`
	BorrowerName *string `json:"borrower_name"`
	Stage        *string `json:"stage"`
	AmountCents  *int64  `json:"amount_cents"`
}

type DealDetailResponse struct {
	Deal        DealModel         `json:"deal"`
	Submissions []SubmissionModel `json:"submissions"`
	Documents   []DocumentModel   `json:"documents"`
}

type SubmissionModel struct {
	ID         int64     `json:"id,string"`
	DealID     string    `json:"deal_id"`
	LenderName string    `json:"lender_name"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newSubmissionModel(s entity.Submission) SubmissionModel {
	return SubmissionModel{
		ID:         s.ID,
		DealID:     s.DealID,
		LenderName: s.LenderName,
		Status:     s.Status,
		Notes:      s.Notes,
		CreatedAt:  s.CreatedAt,
	}
}

func newSubmissionModels(subs []entity.Submission) []SubmissionModel {
	out := make([]SubmissionModel, 0, len(subs))
	for _, s := range subs {
		out = append(out, newSubmissionModel(s))
	}
	return out
}

type SubmissionListResponse struct {
	Submissions []SubmissionModel `json:"submissions"`
	Total       int64             `json:"total"`
}

func newSubmissionListResponse(subs []entity.Submission, total int64) SubmissionListResponse {
	return SubmissionListResponse{Submissions: newSubmissionModels(subs), Total: total}
}

type SubmissionCreateRequest struct {
	LenderName string `json:"lender_name"`
	Notes      string `json:"notes"`
}

type DocumentModel struct {
	ID          int64     `json:"id,string"`
	DealID      string    `json:"deal_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func newDocumentModel(d entity.Document) DocumentModel {
	return DocumentModel{
		ID:          d.ID,
		DealID:      d.DealID,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		CreatedAt:   d.CreatedAt,
	}
}

func newDocumentModels(docs []entity.Document) []DocumentModel {
	out := make([]DocumentModel, 0, len(docs))
	for _, d := range docs {
		out = append(out, newDocumentModel(d))
	}
	return out
}

type DocumentURLResponse struct {
	URL string `json:"url"`
}
