package inbound

import (
	"context"

	"github.com/lendfast/dealready/internal/deal/usecase"
	"github.com/lendfast/dealready/internal/pkg/router"
)

type uc interface {
	DealCreate(ctx context.Context, in usecase.DealCreateInput) (*usecase.DealCreateOutput, error)
	DealList(ctx context.Context, in usecase.DealListInput) (*usecase.DealListOutput, error)
	DealDetail(ctx context.Context, in usecase.DealDetailInput) (*usecase.DealDetailOutput, error)
	DealUpdate(ctx context.Context, in usecase.DealUpdateInput) (*usecase.DealUpdateOutput, error)

	SubmissionCreate(ctx context.Context, in usecase.SubmissionCreateInput) (*usecase.SubmissionCreateOutput, error)
	SubmissionList(ctx context.Context, in usecase.SubmissionListInput) (*usecase.SubmissionListOutput, error)
	SubmissionDetail(ctx context.Context, in usecase.SubmissionDetailInput) (*usecase.SubmissionDetailOutput, error)

	DocumentUpload(ctx context.Context, in usecase.DocumentUploadInput) (*usecase.DocumentUploadOutput, error)
	DocumentURL(ctx context.Context, in usecase.DocumentURLInput) (*usecase.DocumentURLOutput, error)

	AdminDealList(ctx context.Context, in usecase.AdminDealListInput) (*usecase.DealListOutput, error)
	AdminSubmissionList(ctx context.Context, in usecase.AdminSubmissionListInput) (*usecase.SubmissionListOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Broker workspace
	r.GET("/app", end.Home)
	r.GET("/app/deals", end.DealList)
	r.POST("/app/deals", end.DealCreate)
	r.GET("/app/deals/:id", end.DealDetail)
	r.PATCH("/app/deals/:id", end.DealUpdate)

	r.GET("/app/deals/:id/submissions", end.SubmissionList)
	r.POST("/app/deals/:id/submissions", end.SubmissionCreate)
	r.GET("/app/deals/:id/submissions/:sid", end.SubmissionDetail)

	r.POST("/app/deals/:id/documents", end.DocumentUpload)
	r.GET("/app/deals/:id/documents/:did/url", end.DocumentURL)

	// Admin review (gate enforces the admin check)
	r.GET("/admin", end.AdminHome)
	r.GET("/admin/deals", end.AdminDealList)
	r.GET("/admin/submissions", end.AdminSubmissionList)
}
