package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/deal/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/storage"
)

type DocumentUploadInput struct {
	DealID      string `validate:"required,uuid"`
	FileName    string `validate:"required,max=255"`
	ContentType string `validate:"max=255"`
	Body        io.Reader
}

type DocumentUploadOutput struct {
	Document entity.Document
}

// DocumentUpload streams a file into object storage under
// deals/<dealID>/<objectID> and records the reference. The file content is
// never inspected; storage and record are the whole job.
func (s *Usecase) DocumentUpload(ctx context.Context, in DocumentUploadInput) (*DocumentUploadOutput, error) {
	ctx, span := s.startSpan(ctx, "DocumentUpload")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.FileName = strings.TrimSpace(in.FileName)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.Body == nil {
		return nil, goerror.NewInvalidFormat("file content is required")
	}

	if _, err := s.ownedDeal(ctx, in.DealID, clm.UserID()); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("deal not found", goerror.CodeNotFound)
		}
		slog.ErrorContext(ctx, "failed to repo get deal", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	bucket := s.cfg.GetString("modules.deal.document_bucket")
	key := "deals/" + in.DealID + "/" + s.uuid.Generate()

	obj, err := s.storage.Upload(ctx, bucket, key, in.Body, storage.UploadOptions{
		ContentType: in.ContentType,
		Metadata:    map[string]string{"file_name": in.FileName, "owner_id": clm.UserID()},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to upload document", "deal_id", in.DealID, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	doc := entity.Document{
		ID:          s.uid.Generate(),
		DealID:      in.DealID,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		SizeBytes:   obj.Size,
		StorageKey:  key,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repoDB.CreateDocument(ctx, doc); err != nil {
		slog.ErrorContext(ctx, "failed to repo create document", "deal_id", in.DealID, "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DocumentUploadOutput{Document: doc}, nil
}

type DocumentURLInput struct {
	DealID     string `validate:"required,uuid"`
	DocumentID int64  `validate:"required"`
}

type DocumentURLOutput struct {
	URL string
}

// DocumentURL issues a time-limited signed download link.
func (s *Usecase) DocumentURL(ctx context.Context, in DocumentURLInput) (*DocumentURLOutput, error) {
	ctx, span := s.startSpan(ctx, "DocumentURL")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.ownedDeal(ctx, in.DealID, clm.UserID()); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("deal not found", goerror.CodeNotFound)
		}
		slog.ErrorContext(ctx, "failed to repo get deal", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	doc, err := s.repoDB.GetDocumentByID(ctx, in.DocumentID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("document not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get document", "document_id", in.DocumentID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if doc.DealID != in.DealID {
		return nil, goerror.NewBusiness("document not found", goerror.CodeNotFound)
	}

	bucket := s.cfg.GetString("modules.deal.document_bucket")
	ttl := s.cfg.GetMinute("modules.deal.document_url_ttl_minutes")

	url, err := s.storage.PresignGet(ctx, bucket, doc.StorageKey, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign document url", "document_id", in.DocumentID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DocumentURLOutput{URL: url}, nil
}
