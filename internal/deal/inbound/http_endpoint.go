package inbound

import (
	"github.com/lendfast/dealready/internal/deal/usecase"
	"github.com/lendfast/dealready/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the broker deal workspace and the
// admin review pages.
type HTTPEndpoint struct {
	uc uc
}

// Home is the broker landing page: the caller's most recent deals.
// @Summary Broker home
// @Tags Deal
// @Produce json
// @Success 200 {object} router.successResponse{data=DealListResponse} "Recent deals"
// @Router /app [get]
func (h *HTTPEndpoint) Home(r *router.Request) (any, error) {
	resp, err := h.uc.DealList(r.Context(), usecase.DealListInput{Limit: 10})
	if err != nil {
		return nil, err
	}
	return newDealListResponse(resp.Deals, resp.Total), nil
}

// DealList lists the caller's deals.
// @Summary List deals
// @Tags Deal
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} router.successResponse{data=DealListResponse} "Deals"
// @Router /app/deals [get]
func (h *HTTPEndpoint) DealList(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.DealList(r.Context(), usecase.DealListInput{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return newDealListResponse(resp.Deals, resp.Total), nil
}

// DealCreate creates a deal owned by the caller.
// @Summary Create deal
// @Tags Deal
// @Accept json
// @Produce json
// @Param request body DealCreateRequest true "Deal payload"
// @Success 200 {object} router.successResponse{data=DealModel} "Created deal"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /app/deals [post]
func (h *HTTPEndpoint) DealCreate(r *router.Request) (any, error) {
	var req DealCreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.DealCreate(r.Context(), usecase.DealCreateInput{
		Name:         req.Name,
		BorrowerName: req.BorrowerName,
		Stage:        req.Stage,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		return nil, err
	}
	return newDealModel(resp.Deal), nil
}

// DealDetail returns a deal with its submissions and documents.
// @Summary Deal detail
// @Tags Deal
// @Produce json
// @Param id path string true "Deal id"
// @Success 200 {object} router.successResponse{data=DealDetailResponse} "Deal"
// @Failure 404 {object} router.errorResponse "Deal not found"
// @Router /app/deals/{id} [get]
func (h *HTTPEndpoint) DealDetail(r *router.Request) (any, error) {
	resp, err := h.uc.DealDetail(r.Context(), usecase.DealDetailInput{DealID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return DealDetailResponse{
		Deal:        newDealModel(resp.Deal),
		Submissions: newSubmissionModels(resp.Submissions),
		Documents:   newDocumentModels(resp.Documents),
	}, nil
}

// DealUpdate patches a deal's mutable fields.
// @Summary Update deal
// @Tags Deal
// @Accept json
// @Produce json
// @Param id path string true "Deal id"
// @Param request body DealUpdateRequest true "Fields to change"
// @Success 200 {object} router.successResponse{data=DealModel} "Updated deal"
// @Failure 404 {object} router.errorResponse "Deal not found"
// @Router /app/deals/{id} [patch]
func (h *HTTPEndpoint) DealUpdate(r *router.Request) (any, error) {
	var req DealUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.DealUpdate(r.Context(), usecase.DealUpdateInput{
		DealID:       r.GetParam("id"),
		Name:         req.Name,
		BorrowerName: req.BorrowerName,
		Stage:        req.Stage,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		return nil, err
	}
	return newDealModel(resp.Deal), nil
}

// SubmissionList lists submissions for a deal.
// @Summary List submissions
// @Tags Deal, Submission
// @Produce json
// @Param id path string true "Deal id"
// @Success 200 {object} router.successResponse{data=SubmissionListResponse} "Submissions"
// @Router /app/deals/{id}/submissions [get]
func (h *HTTPEndpoint) SubmissionList(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SubmissionList(r.Context(), usecase.SubmissionListInput{
		DealID: r.GetParam("id"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return newSubmissionListResponse(resp.Submissions, resp.Total), nil
}

// SubmissionCreate records a deal being sent to a lender.
// @Summary Create submission
// @Tags Deal, Submission
// @Accept json
// @Produce json
// @Param id path string true "Deal id"
// @Param request body SubmissionCreateRequest true "Submission payload"
// @Success 200 {object} router.successResponse{data=SubmissionModel} "Created submission"
// @Failure 404 {object} router.errorResponse "Deal not found"
// @Router /app/deals/{id}/submissions [post]
func (h *HTTPEndpoint) SubmissionCreate(r *router.Request) (any, error) {
	var req SubmissionCreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SubmissionCreate(r.Context(), usecase.SubmissionCreateInput{
		DealID:     r.GetParam("id"),
		LenderName: req.LenderName,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return newSubmissionModel(resp.Submission), nil
}

// SubmissionDetail returns a single submission.
// @Summary Submission detail
// @Tags Deal, Submission
// @Produce json
// @Param id path string true "Deal id"
// @Param sid path int true "Submission id"
// @Success 200 {object} router.successResponse{data=SubmissionModel} "Submission"
// @Failure 404 {object} router.errorResponse "Submission not found"
// @Router /app/deals/{id}/submissions/{sid} [get]
func (h *HTTPEndpoint) SubmissionDetail(r *router.Request) (any, error) {
	sid, err := r.GetParamInt64("sid")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SubmissionDetail(r.Context(), usecase.SubmissionDetailInput{
		DealID:       r.GetParam("id"),
		SubmissionID: sid,
	})
	if err != nil {
		return nil, err
	}
	return newSubmissionModel(resp.Submission), nil
}

// DocumentUpload streams a multipart file into object storage.
// @Summary Upload document
// @Tags Deal, Document
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Deal id"
// @Param file formData file true "Document file"
// @Success 200 {object} router.successResponse{data=DocumentModel} "Stored document"
// @Failure 404 {object} router.errorResponse "Deal not found"
// @Router /app/deals/{id}/documents [post]
func (h *HTTPEndpoint) DocumentUpload(r *router.Request) (any, error) {
	file, err := r.StreamSingleFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	resp, err := h.uc.DocumentUpload(r.Context(), usecase.DocumentUploadInput{
		DealID:      r.GetParam("id"),
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Body:        file,
	})
	if err != nil {
		return nil, err
	}
	return newDocumentModel(resp.Document), nil
}

// DocumentURL issues a time-limited signed download link.
// @Summary Document download link
// @Tags Deal, Document
// @Produce json
// @Param id path string true "Deal id"
// @Param did path int true "Document id"
// @Success 200 {object} router.successResponse{data=DocumentURLResponse} "Signed URL"
// @Failure 404 {object} router.errorResponse "Document not found"
// @Router /app/deals/{id}/documents/{did}/url [get]
func (h *HTTPEndpoint) DocumentURL(r *router.Request) (any, error) {
	did, err := r.GetParamInt64("did")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.DocumentURL(r.Context(), usecase.DocumentURLInput{
		DealID:     r.GetParam("id"),
		DocumentID: did,
	})
	if err != nil {
		return nil, err
	}
	return DocumentURLResponse{URL: resp.URL}, nil
}

// AdminHome is the admin landing page: newest deals across all brokers.
// @Summary Admin home
// @Tags Admin
// @Produce json
// @Success 200 {object} router.successResponse{data=DealListResponse} "Recent deals"
// @Router /admin [get]
func (h *HTTPEndpoint) AdminHome(r *router.Request) (any, error) {
	resp, err := h.uc.AdminDealList(r.Context(), usecase.AdminDealListInput{Limit: 10})
	if err != nil {
		return nil, err
	}
	return newDealListResponse(resp.Deals, resp.Total), nil
}

// AdminDealList lists every deal.
// @Summary List all deals
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} router.successResponse{data=DealListResponse} "Deals"
// @Router /admin/deals [get]
func (h *HTTPEndpoint) AdminDealList(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.AdminDealList(r.Context(), usecase.AdminDealListInput{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return newDealListResponse(resp.Deals, resp.Total), nil
}

// AdminSubmissionList lists every submission.
// @Summary List all submissions
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} router.successResponse{data=SubmissionListResponse} "Submissions"
// @Router /admin/submissions [get]
func (h *HTTPEndpoint) AdminSubmissionList(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.AdminSubmissionList(r.Context(), usecase.AdminSubmissionListInput{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return newSubmissionListResponse(resp.Submissions, resp.Total), nil
}
