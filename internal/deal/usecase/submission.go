package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/deal/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
)

type SubmissionCreateInput struct {
	DealID     string `validate:"required,uuid"`
	LenderName string `validate:"required,max=200"`
	Notes      string `validate:"max=2000"`
}

type SubmissionCreateOutput struct {
	Submission entity.Submission
}

func (s *Usecase) SubmissionCreate(ctx context.Context, in SubmissionCreateInput) (*SubmissionCreateOutput, error) {
	ctx, span := s.startSpan(ctx, "SubmissionCreate")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.LenderName = strings.TrimSpace(in.LenderName)
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

	sub := entity.Submission{
		ID:         s.uid.Generate(),
		DealID:     in.DealID,
		LenderName: in.LenderName,
		Status:     "submitted",
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repoDB.CreateSubmission(ctx, sub); err != nil {
		slog.ErrorContext(ctx, "failed to repo create submission", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SubmissionCreateOutput{Submission: sub}, nil
}

type SubmissionListInput struct {
	DealID string `validate:"required,uuid"`
	Limit  int32
	Offset int32
}

type SubmissionListOutput struct {
	Submissions []entity.Submission
	Total       int64
}

func (s *Usecase) SubmissionList(ctx context.Context, in SubmissionListInput) (*SubmissionListOutput, error) {
	ctx, span := s.startSpan(ctx, "SubmissionList")
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

	filter := entity.ListFilter{Limit: in.Limit, Offset: in.Offset}.Normalize()
	subs, total, err := s.repoDB.ListSubmissionsByDeal(ctx, in.DealID, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list submissions", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SubmissionListOutput{Submissions: subs, Total: total}, nil
}

type SubmissionDetailInput struct {
	DealID       string `validate:"required,uuid"`
	SubmissionID int64  `validate:"required"`
}

type SubmissionDetailOutput struct {
	Submission entity.Submission
}

func (s *Usecase) SubmissionDetail(ctx context.Context, in SubmissionDetailInput) (*SubmissionDetailOutput, error) {
	ctx, span := s.startSpan(ctx, "SubmissionDetail")
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

	sub, err := s.repoDB.GetSubmissionByID(ctx, in.SubmissionID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("submission not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get submission", "submission_id", in.SubmissionID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if sub.DealID != in.DealID {
		return nil, goerror.NewBusiness("submission not found", goerror.CodeNotFound)
	}

	return &SubmissionDetailOutput{Submission: *sub}, nil
}

type AdminSubmissionListInput struct {
	Limit  int32
	Offset int32
}

func (s *Usecase) AdminSubmissionList(ctx context.Context, in AdminSubmissionListInput) (*SubmissionListOutput, error) {
	ctx, span := s.startSpan(ctx, "AdminSubmissionList")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	filter := entity.ListFilter{Limit: in.Limit, Offset: in.Offset}.Normalize()
	subs, total, err := s.repoDB.ListSubmissions(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list all submissions", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SubmissionListOutput{Submissions: subs, Total: total}, nil
}
