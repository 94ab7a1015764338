package api

import (
	"errors"
	"net/http"

	"rebalance/pkg/rebalance"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeSuccessWithMessage writes a successful response with data and message.
func writeSuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// writeErrorResponse writes an error response with proper HTTP status and error details.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	var rbErr *rebalance.Error
	if errors.As(err, &rbErr) {
		response.ErrorCode = string(rbErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(rbErr.Code)
		response.Code = httpStatus
	}

	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(response.Message)
	}

	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code rebalance.ErrorCode) int {
	switch code {
	case rebalance.ErrCodeInvalidInput, rebalance.ErrCodeValidation,
		rebalance.ErrCodeInvalidDecimal, rebalance.ErrCodeInvalidAmount,
		rebalance.ErrCodeUnbalancedTargets, rebalance.ErrCodeDivisionByZero:
		return http.StatusBadRequest
	case rebalance.ErrCodeNotFound:
		return http.StatusNotFound
	case rebalance.ErrCodeDuplicate:
		return http.StatusConflict
	case rebalance.ErrCodeDatabase, rebalance.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
