package core

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dashboard/internal/types"
)

// QueryInt parses an optional integer query parameter. A missing or empty
// parameter yields 0.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, "must be an integer", raw)
	}
	return v, nil
}

// QueryBool parses an optional boolean query parameter. Accepted values are
// those of strconv.ParseBool; a bare "?name" counts as true.
func QueryBool(r *http.Request, name string) (bool, error) {
	q := r.URL.Query()
	if !q.Has(name) {
		return false, nil
	}
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(name, "must be a boolean", raw)
	}
	return v, nil
}

// QueryTime parses an optional ISO-8601 timestamp query parameter. A missing
// parameter yields the zero time.
func QueryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := types.ParseISO(raw)
	if err != nil {
		return time.Time{}, invalidParam(name, "must be an ISO-8601 timestamp", raw)
	}
	return t, nil
}

func invalidParam(name, problem, value string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeInvalidRequest,
		fmt.Sprintf("%s %s", name, problem), nil,
		map[string]any{"validation_errors": []ValidationError{{
			Field:   name,
			Code:    "type",
			Message: fmt.Sprintf("%s %s (got %q)", name, problem, value),
		}}})
}
