package usecase

import (
	"context"

	"github.com/lendfast/dealready/internal/deal/entity"
	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/storage"
	"github.com/lendfast/dealready/internal/pkg/uid"
	"github.com/lendfast/dealready/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateDeal(ctx context.Context, d entity.Deal) error
	GetDealByID(ctx context.Context, id string) (*entity.Deal, error)
	ListDealsByOwner(ctx context.Context, ownerID string, f entity.ListFilter) ([]entity.Deal, int64, error)
	ListDeals(ctx context.Context, f entity.ListFilter) ([]entity.Deal, int64, error)
	UpdateDeal(ctx context.Context, id string, patch entity.DealPatch) error

	CreateSubmission(ctx context.Context, s entity.Submission) error
	GetSubmissionByID(ctx context.Context, id int64) (*entity.Submission, error)
	ListSubmissionsByDeal(ctx context.Context, dealID string, f entity.ListFilter) ([]entity.Submission, int64, error)
	ListSubmissions(ctx context.Context, f entity.ListFilter) ([]entity.Submission, int64, error)

	CreateDocument(ctx context.Context, d entity.Document) error
	GetDocumentByID(ctx context.Context, id int64) (*entity.Document, error)
	ListDocumentsByDeal(ctx context.Context, dealID string) ([]entity.Document, error)
}

type Usecase struct {
	repoDB    repoDB
	storage   storage.Store
	validator validator.Validator
	cfg       config.Config
	uuid      uid.StringID
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	Storage    storage.Store
	Validator  validator.Validator
	Config     config.Config
	UUID       uid.StringID
	UID        uid.NumberID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		storage:   dep.Storage,
		validator: dep.Validator,
		cfg:       dep.Config,
		uuid:      dep.UUID,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("deal.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

// ownedDeal loads a deal and checks it belongs to the caller. A deal owned
// by someone else reads as not found, so existence is never leaked.
func (s *Usecase) ownedDeal(ctx context.Context, dealID, ownerID string) (*entity.Deal, error) {
	d, err := s.repoDB.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, goerror.ErrNotFound
	}
	return d, nil
}
