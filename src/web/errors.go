package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/store"
)

// APIError 统一的错误响应体
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render 实现 render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError 创建错误响应
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// 错误码
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeDataNotFound     = "DATA_NOT_FOUND"
	CodeMalformedData    = "MALFORMED_DATA"
	CodeEmptyResult      = "EMPTY_RESULT"
	CodeInternal         = "INTERNAL_ERROR"
)

// fromError 把加载和计算错误映射为响应
func fromError(err error) *APIError {
	var unknown *processor.UnknownViewError
	switch {
	case errors.Is(err, store.ErrDataNotFound):
		return NewAPIError(http.StatusInternalServerError, CodeDataNotFound, err.Error())
	case errors.Is(err, store.ErrMalformedData):
		return NewAPIError(http.StatusInternalServerError, CodeMalformedData, err.Error())
	case errors.Is(err, processor.ErrEmptyResult):
		return NewAPIError(http.StatusUnprocessableEntity, CodeEmptyResult, err.Error())
	case errors.As(err, &unknown):
		return NewAPIError(http.StatusNotFound, CodeNotFound, err.Error())
	default:
		return NewAPIError(http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

func renderError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	_ = render.Render(w, r, apiErr)
}
