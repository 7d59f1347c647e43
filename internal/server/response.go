package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/apperr"
	"mesa-system/internal/sideeffect"
)

const CorrelationIDKey = "correlation_id"

type APIResponse struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	Data          interface{}          `json:"data,omitempty"`
	Meta          interface{}          `json:"meta,omitempty"`
	Warnings      []sideeffect.Warning `json:"warnings,omitempty"`
	ErrorKind     string               `json:"error_kind,omitempty"`
	Detail        string               `json:"detail,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty"`
}

func OK(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, message, data, nil)
}

func Created(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusCreated, message, data, nil)
}

func Respond(c *gin.Context, status int, message string, data interface{}, warnings []sideeffect.Warning) {
	c.JSON(status, APIResponse{
		Success:       true,
		Message:       message,
		Data:          data,
		Warnings:      warnings,
		CorrelationID: c.GetString(CorrelationIDKey),
	})
}

func RespondWithMeta(c *gin.Context, status int, message string, data, meta interface{}) {
	c.JSON(status, APIResponse{
		Success:       true,
		Message:       message,
		Data:          data,
		Meta:          meta,
		CorrelationID: c.GetString(CorrelationIDKey),
	})
}

// Fail maps the error taxonomy onto HTTP statuses. Underlying error detail
// is only exposed outside release mode.
func Fail(c *gin.Context, err error) {
	resp := APIResponse{
		Success:       false,
		ErrorKind:     string(apperr.KindOf(err)),
		CorrelationID: c.GetString(CorrelationIDKey),
	}

	if ae, ok := err.(*apperr.Error); ok {
		resp.Message = ae.Message
		if ae.Err != nil && gin.Mode() != gin.ReleaseMode {
			resp.Detail = ae.Err.Error()
		}
	} else {
		resp.Message = "internal error"
		if gin.Mode() != gin.ReleaseMode {
			resp.Detail = err.Error()
		}
	}

	c.AbortWithStatusJSON(apperr.HTTPStatus(err), resp)
}
