package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-dispatch/internal/api/dto"
	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

// Actor headers set by the authenticating gateway
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

var errMissingActor = errors.New("missing or invalid actor headers")

func actorFrom(c *gin.Context) (booking.Actor, error) {
	id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
	if err != nil || id <= 0 {
		return booking.Actor{}, errMissingActor
	}

	role := booking.Role(c.GetHeader(HeaderUserRole))
	switch role {
	case booking.RoleCustomer, booking.RoleTranslator, booking.RoleAdmin, booking.RoleSuperAdmin:
	default:
		return booking.Actor{}, errMissingActor
	}

	return booking.Actor{UserID: id, Role: role}, nil
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.Response{
			Status:    dto.StatusFail,
			Message:   name + " must be a positive integer",
			FieldName: name,
		})
		return 0, false
	}
	return id, true
}

// statusFor maps a booking error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrAlreadyBooked),
		errors.Is(err, booking.ErrAlreadyAssigned),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrTooLateToCancel):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *JobHandler) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	resp := dto.Response{Status: dto.StatusFail}

	if status != http.StatusInternalServerError {
		resp.Message = err.Error()
		var be *booking.Error
		if errors.As(err, &be) && be.Message != "" {
			resp.Message = be.Message
			resp.FieldName = be.Field
		}
		h.logger.Info("Request rejected",
			slog.String("op", op),
			slog.Int("status", status),
			slog.String("reason", err.Error()),
		)
	} else {
		resp.Message = "Internal server error"
		h.logger.Error("Request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}

	c.JSON(status, resp)
}

func respondResult(c *gin.Context, status int, res *booking.Result) {
	resp := dto.Response{
		Status:  res.Status,
		Message: res.Message,
		Data:    res.Data,
	}
	for _, n := range res.Notices {
		resp.Notices = append(resp.Notices, n.Error())
	}
	c.JSON(status, resp)
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.Response{
		Status:  dto.StatusFail,
		Message: errMissingActor.Error(),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.Response{
		Status:  dto.StatusFail,
		Message: "Invalid request body: " + err.Error(),
	})
}
