package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"dashboard/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (1 MB).
const maxRequestBodySize = 1 << 20

// APIErrorResponse is the body of every non-2xx response. Error is the HTTP
// status text; Code is the machine-readable category.
type APIErrorResponse struct {
	Error             string         `json:"error"`
	Code              string         `json:"code"`
	Message           string         `json:"message"`
	Details           map[string]any `json:"details,omitempty"`
	RetryAfterSeconds int            `json:"retryAfterSeconds,omitempty"`
	ProviderStatus    int            `json:"providerStatus,omitempty"`
	RequestID         string         `json:"requestId"`
}

// JSON writes data as a JSON response with the given status code. Bodies are
// flat; there is no data envelope. If marshalling fails, a 500 is written.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		types.LoggerFromContext(r.Context(), nil).Error("failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(newErrorResponse(r, http.StatusInternalServerError,
			types.ErrCodeInternal, "failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func newErrorResponse(r *http.Request, status int, code types.ErrorCode, message string) APIErrorResponse {
	return APIErrorResponse{
		Error:     http.StatusText(status),
		Code:      string(code),
		Message:   message,
		RequestID: types.GetRequestID(r.Context()),
	}
}

// Error writes an error response. An error that is (or wraps) a
// *types.AppError is rendered with its code, details and retry/provider
// fields. A bare context deadline becomes TIMEOUT. Anything else is a 500
// whose message is not exposed to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	logger := types.LoggerFromContext(r.Context(), nil)

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			appErr = types.NewAppError(types.ErrCodeTimeout, "request timed out", err)
		} else {
			logger.Error("unhandled error", "error", err)
			JSON(w, r, http.StatusInternalServerError, newErrorResponse(r,
				http.StatusInternalServerError, types.ErrCodeInternal, "an unexpected error occurred"))
			return
		}
	}

	status := appErr.HTTPStatus()
	resp := newErrorResponse(r, status, appErr.Code, appErr.Message)
	resp.Details = appErr.Details
	resp.ProviderStatus = appErr.ProviderStatus
	resp.RetryAfterSeconds = appErr.RetryAfterSeconds

	if status >= http.StatusInternalServerError {
		// The cause of an INTERNAL_ERROR stays in the log only.
		if appErr.Code == types.ErrCodeInternal {
			logger.Error("internal error", "error", err)
			resp.Message = "an unexpected error occurred"
		} else {
			logger.Warn("upstream error", "code", appErr.Code, "error", err)
		}
	}
	if appErr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds))
	}

	JSON(w, r, status, resp)
}

// DecodeJSON reads the request body into dst, enforcing a 1 MB limit,
// unknown-field rejection and a single JSON value. Failures are
// INVALID_REQUEST AppErrors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return types.NewAppError(types.ErrCodeInvalidRequest, "request body must contain a single JSON object", nil)
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for routes whose body may be empty. It
// reports whether a body was present.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return false, nil
	}
	if err := DecodeJSON(w, r, dst); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && errors.Is(appErr.Err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// mapDecodeError translates a json.Decoder error into an AppError.
func mapDecodeError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppError(types.ErrCodeInvalidRequest, "request body must not exceed 1MB", err)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return types.NewAppError(types.ErrCodeInvalidRequest, "malformed JSON in request body", err)
	}

	var unmarshalTypeErr *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeErr) {
		return types.NewAppErrorWithDetails(types.ErrCodeInvalidRequest, "invalid value for field", err,
			map[string]any{
				"field":    unmarshalTypeErr.Field,
				"expected": unmarshalTypeErr.Type.String(),
			})
	}

	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return types.NewAppError(types.ErrCodeInvalidRequest,
			"unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "), err)
	}

	if errors.Is(err, io.EOF) {
		return types.NewAppError(types.ErrCodeInvalidRequest, "request body must not be empty", err)
	}

	return types.NewAppError(types.ErrCodeInvalidRequest, "invalid JSON in request body", err)
}
