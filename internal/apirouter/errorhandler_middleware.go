package apirouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
)

// ErrorHandlerMiddleware renders the last error attached by a handler as an
// ErrorResponse.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		var resp ErrorResponse
		resp.Parse(last.Err)
		if resp.Code == 0 {
			resp.Code = c.Writer.Status()
		}
		resp.Status = resp.Code
		c.JSON(resp.Code, resp)
	}
}

type ErrorResponse struct {
	Err     error       `json:"-"`
	Code    int         `json:"-"`
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e ErrorResponse) Error() string {
	return e.Message
}

func (e ErrorResponse) Unwrap() error {
	return e.Err
}

// Parse fills e from err. Request body failures map to 400 for malformed
// JSON and 422 for missing fields, with one line per field in Data.
func (e *ErrorResponse) Parse(err error) {
	if errors.As(err, e) {
		return
	}

	e.Err = err
	if fields := fieldErrors(err); fields != nil {
		e.Code = http.StatusUnprocessableEntity
		e.Message = "validation error"
		e.Data = fields
		return
	}
	if isMalformedBody(err) {
		e.Code = http.StatusBadRequest
		e.Message = "invalid JSON"
		return
	}
	e.Message = err.Error()
}

// fieldErrors lists failed request fields by their JSON name, e.g.
// "message is required".
func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			fields = append(fields, name+" is required")
			continue
		}
		fields = append(fields, fmt.Sprintf("%s is invalid (%s)", name, fe.Tag()))
	}
	return fields
}

func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

func AbortWithError(c *gin.Context, code int, err error) {
	c.Status(code)
	c.Error(err)
	c.Abort()
}

// AbortWithValidationError aborts with the status Parse picks for a binding
// error, 422 when it picks none.
func AbortWithValidationError(c *gin.Context, err error) {
	var resp ErrorResponse
	resp.Parse(err)
	if resp.Code == 0 {
		resp.Code = http.StatusUnprocessableEntity
	}
	AbortWithError(c, resp.Code, resp)
}

func newErrorResponse(code int, err error) ErrorResponse {
	return ErrorResponse{Err: err, Code: code, Message: err.Error()}
}

func NewErrInternalServer(err error) ErrorResponse {
	return ErrorResponse{
		Err:     pkgerrors.WithStack(err),
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
	}
}

// NewErrBadRequest is used for worker names the log sink refuses.
func NewErrBadRequest(err error) ErrorResponse {
	return newErrorResponse(http.StatusBadRequest, err)
}

// NewErrNotFound reports a missing worker or worker log.
func NewErrNotFound(resource string) ErrorResponse {
	return ErrorResponse{
		Code:    http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewErrUnprocessable is used for messages the router rejects, such as a
// blank message.
func NewErrUnprocessable(err error) ErrorResponse {
	return newErrorResponse(http.StatusUnprocessableEntity, err)
}
