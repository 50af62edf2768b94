package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/deal/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
)

type DealCreateInput struct {
	Name         string `validate:"required,max=200"`
	BorrowerName string `validate:"max=200"`
	Stage        string `validate:"max=50"`
	AmountCents  int64  `validate:"min=0"`
}

type DealCreateOutput struct {
	Deal entity.Deal
}

func (s *Usecase) DealCreate(ctx context.Context, in DealCreateInput) (*DealCreateOutput, error) {
	ctx, span := s.startSpan(ctx, "DealCreate")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	stage := in.Stage
	if stage == "" {
		stage = "draft"
	}

	now := s.clock.Now()
	d := entity.Deal{
		ID:           s.uuid.Generate(),
		OwnerID:      clm.UserID(),
		Name:         in.Name,
		BorrowerName: strings.TrimSpace(in.BorrowerName),
		Stage:        stage,
		AmountCents:  in.AmountCents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repoDB.CreateDeal(ctx, d); err != nil {
		slog.ErrorContext(ctx, "failed to repo create deal", "owner_id", d.OwnerID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DealCreateOutput{Deal: d}, nil
}

type DealListInput struct {
	Limit  int32
	Offset int32
}

type DealListOutput struct {
	Deals []entity.Deal
	Total int64
}

func (s *Usecase) DealList(ctx context.Context, in DealListInput) (*DealListOutput, error) {
	ctx, span := s.startSpan(ctx, "DealList")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	filter := entity.ListFilter{Limit: in.Limit, Offset: in.Offset}.Normalize()
	deals, total, err := s.repoDB.ListDealsByOwner(ctx, clm.UserID(), filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list deals", "owner_id", clm.UserID(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DealListOutput{Deals: deals, Total: total}, nil
}

type DealDetailInput struct {
	DealID string `validate:"required,uuid"`
}

type DealDetailOutput struct {
	Deal        entity.Deal
	Submissions []entity.Submission
	Documents   []entity.Document
}

func (s *Usecase) DealDetail(ctx context.Context, in DealDetailInput) (*DealDetailOutput, error) {
	ctx, span := s.startSpan(ctx, "DealDetail")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	d, err := s.ownedDeal(ctx, in.DealID, clm.UserID())
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("deal not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get deal", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	subs, _, err := s.repoDB.ListSubmissionsByDeal(ctx, d.ID, entity.ListFilter{}.Normalize())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list deal submissions", "deal_id", d.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	docs, err := s.repoDB.ListDocumentsByDeal(ctx, d.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list deal documents", "deal_id", d.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DealDetailOutput{Deal: *d, Submissions: subs, Documents: docs}, nil
}

type DealUpdateInput struct {
	DealID       string  `validate:"required,uuid"`
	Name         *string `validate:"omitempty,max=200"`
	BorrowerName *string `validate:"omitempty,max=200"`
	Stage        *string `validate:"omitempty,max=50"`
	AmountCents  *int64  `validate:"omitempty,min=0"`
}

type DealUpdateOutput struct {
	Deal entity.Deal
}

func (s *Usecase) DealUpdate(ctx context.Context, in DealUpdateInput) (*DealUpdateOutput, error) {
	ctx, span := s.startSpan(ctx, "DealUpdate")
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

	patch := entity.DealPatch{
		Name:         in.Name,
		BorrowerName: in.BorrowerName,
		Stage:        in.Stage,
		AmountCents:  in.AmountCents,
	}
	if err := s.repoDB.UpdateDeal(ctx, in.DealID, patch); err != nil {
		slog.ErrorContext(ctx, "failed to repo update deal", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	d, err := s.repoDB.GetDealByID(ctx, in.DealID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo reload deal", "deal_id", in.DealID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DealUpdateOutput{Deal: *d}, nil
}

type AdminDealListInput struct {
	Limit  int32
	Offset int32
}

// AdminDealList lists every deal. Admin access is decided by the gate
// before the request reaches this operation.
func (s *Usecase) AdminDealList(ctx context.Context, in AdminDealListInput) (*DealListOutput, error) {
	ctx, span := s.startSpan(ctx, "AdminDealList")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	filter := entity.ListFilter{Limit: in.Limit, Offset: in.Offset}.Normalize()
	deals, total, err := s.repoDB.ListDeals(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list all deals", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DealListOutput{Deals: deals, Total: total}, nil
}
