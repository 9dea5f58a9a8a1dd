package dto

import (
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

type CreateJobRequest struct {
	FromLanguageID       int64    `json:"from_language_id"`
	Immediate            bool     `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	Duration             int      `json:"duration"`
	CustomerPhoneType    bool     `json:"customer_phone_type"`
	CustomerPhysicalType bool     `json:"customer_physical_type"`
	JobFor               []string `json:"job_for"`
	Town                 string   `json:"town"`
	City                 string   `json:"city"`
	UserEmail            string   `json:"user_email"`
	Reference            string   `json:"reference"`
	ByAdmin              bool     `json:"by_admin"`
}

func (r CreateJobRequest) ToBooking() booking.CreateJobRequest {
	return booking.CreateJobRequest{
		FromLanguageID:       r.FromLanguageID,
		Immediate:            r.Immediate,
		DueDate:              r.DueDate,
		DueTime:              r.DueTime,
		Duration:             r.Duration,
		CustomerPhoneType:    r.CustomerPhoneType,
		CustomerPhysicalType: r.CustomerPhysicalType,
		JobFor:               r.JobFor,
		Town:                 r.Town,
		City:                 r.City,
		UserEmail:            r.UserEmail,
		Reference:            r.Reference,
		ByAdmin:              r.ByAdmin,
	}
}

type ListJobsRequest struct {
	CustomerID int64  `form:"customer_id"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []*booking.Job `json:"jobs"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type AcceptByIDRequest struct {
	JobID int64 `json:"job_id" binding:"required"`
}

type EndSessionRequest struct {
	AdminComments string `json:"admin_comments"`
}

type AdminEditRequest struct {
	Status          string     `json:"status"`
	AdminComments   string     `json:"admin_comments"`
	SessionTime     string     `json:"session_time"`
	TranslatorID    int64      `json:"translator_id"`
	TranslatorEmail string     `json:"translator_email"`
	Due             *time.Time `json:"due"`
	FromLanguageID  int64      `json:"from_language_id"`
	Reference       *string    `json:"reference"`
}

func (r AdminEditRequest) ToBooking() booking.AdminEditRequest {
	return booking.AdminEditRequest{
		Status:          booking.Status(r.Status),
		AdminComments:   r.AdminComments,
		SessionTime:     r.SessionTime,
		TranslatorID:    r.TranslatorID,
		TranslatorEmail: r.TranslatorEmail,
		Due:             r.Due,
		FromLanguageID:  r.FromLanguageID,
		Reference:       r.Reference,
	}
}

// Response is the envelope of every booking endpoint
type Response struct {
	Status    string   `json:"status"`
	Message   string   `json:"message,omitempty"`
	FieldName string   `json:"field_name,omitempty"`
	Data      any      `json:"data,omitempty"`
	Notices   []string `json:"notices,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)
