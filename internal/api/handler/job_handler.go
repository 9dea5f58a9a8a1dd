package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-dispatch/internal/api/dto"
	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

type jobOp func(ctx context.Context, actor booking.Actor, jobID int64) (*booking.Result, error)

// runJobOp handles the routes that only need the actor and the :job_id
func (h *JobHandler) runJobOp(c *gin.Context, name string, op jobOp) {
	actor, err := actorFrom(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}
	jobID, ok := idParam(c, "job_id")
	if !ok {
		return
	}

	h.logger.Debug(name+" called",
		slog.Int64("job_id", jobID),
		slog.Int64("user_id", actor.UserID),
		slog.String("role", string(actor.Role)),
	)

	res, err := op(c.Request.Context(), actor, jobID)
	if err != nil {
		h.respondError(c, name, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), actor, req.ToBooking())
	if err != nil {
		h.respondError(c, "CreateJob", err)
		return
	}
	respondResult(c, http.StatusCreated, res)
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	h.runJobOp(c, "GetJob", h.service.Show)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Response{Status: dto.StatusFail, Message: "Invalid query parameters"})
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Response{Status: dto.StatusFail, Message: "Invalid cursor", FieldName: "cursor"})
		return
	}

	pageSize := req.PageSize
	switch {
	case pageSize <= 0:
		pageSize = booking.DefaultPageSize
	case pageSize > booking.MaxPageSize:
		pageSize = booking.MaxPageSize
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), actor, booking.JobFilter{
		CustomerID: req.CustomerID,
		Status:     booking.Status(req.Status),
		PageSize:   pageSize,
		Cursor:     cursor,
	})
	if err != nil {
		h.respondError(c, "ListJobs", err)
		return
	}

	// a full page may have a successor
	var nextCursor string
	if len(jobs) == pageSize {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&booking.JobCursor{JobID: last.ID})
	}
	if jobs == nil {
		jobs = []*booking.Job{}
	}

	c.JSON(http.StatusOK, dto.Response{
		Status: dto.StatusSuccess,
		Data:   dto.ListJobsResponse{Jobs: jobs, NextCursor: nextCursor},
	})
}

// AcceptJob handles POST /api/v1/jobs/:job_id/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	h.runJobOp(c, "AcceptJob", h.service.Accept)
}

// AcceptJobByID handles POST /api/v1/jobs/accept-by-id
func (h *JobHandler) AcceptJobByID(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	var req dto.AcceptByIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	res, err := h.service.AcceptByID(c.Request.Context(), actor, req.JobID)
	if err != nil {
		h.respondError(c, "AcceptJobByID", err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	h.runJobOp(c, "CancelJob", h.service.Cancel)
}

// StartSession handles POST /api/v1/jobs/:job_id/start
func (h *JobHandler) StartSession(c *gin.Context) {
	h.runJobOp(c, "StartSession", h.service.StartSession)
}

// EndSession handles POST /api/v1/jobs/:job_id/end
func (h *JobHandler) EndSession(c *gin.Context) {
	var req dto.EndSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	h.runJobOp(c, "EndSession", func(ctx context.Context, actor booking.Actor, jobID int64) (*booking.Result, error) {
		return h.service.EndSession(ctx, actor, jobID, booking.EndRequest{AdminComments: req.AdminComments})
	})
}

// CustomerNoCall handles POST /api/v1/jobs/:job_id/customer-not-call
func (h *JobHandler) CustomerNoCall(c *gin.Context) {
	h.runJobOp(c, "CustomerNoCall", h.service.CustomerNoCall)
}

// AdminEditJob handles PUT /api/v1/jobs/:job_id
func (h *JobHandler) AdminEditJob(c *gin.Context) {
	var req dto.AdminEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	h.runJobOp(c, "AdminEditJob", func(ctx context.Context, actor booking.Actor, jobID int64) (*booking.Result, error) {
		return h.service.AdminEdit(ctx, actor, jobID, req.ToBooking())
	})
}

// ReopenJob handles POST /api/v1/jobs/:job_id/reopen
func (h *JobHandler) ReopenJob(c *gin.Context) {
	h.runJobOp(c, "ReopenJob", h.service.Reopen)
}

// ResendNotifications handles POST /api/v1/jobs/:job_id/resend-notifications
func (h *JobHandler) ResendNotifications(c *gin.Context) {
	h.runJobOp(c, "ResendNotifications", h.service.ResendNotifications)
}

// ResendSMS handles POST /api/v1/jobs/:job_id/resend-sms
func (h *JobHandler) ResendSMS(c *gin.Context) {
	h.runJobOp(c, "ResendSMS", h.service.ResendSMS)
}

// PotentialJobs handles GET /api/v1/translators/:translator_id/potential-jobs
func (h *JobHandler) PotentialJobs(c *gin.Context) {
	if _, err := actorFrom(c); err != nil {
		respondUnauthorized(c)
		return
	}
	translatorID, ok := idParam(c, "translator_id")
	if !ok {
		return
	}

	jobs, err := h.service.PotentialJobs(c.Request.Context(), translatorID)
	if err != nil {
		h.respondError(c, "PotentialJobs", err)
		return
	}
	if jobs == nil {
		jobs = []*booking.Job{}
	}

	c.JSON(http.StatusOK, dto.Response{Status: dto.StatusSuccess, Data: jobs})
}
