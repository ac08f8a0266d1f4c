package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"groundops/internal/platform/apperror"
)

// DecodeJSON reads the request body into dst and reports malformed payloads
// as validation errors naming the offending field when json can tell.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperror.Invalid("request body is required")
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var (
		maxErr    *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperror.Invalid("request body is required")
	case errors.As(err, &maxErr):
		return apperror.Invalid("request body too large",
			apperror.FieldIssue{Field: "body", Reason: fmt.Sprintf("must be at most %d bytes", maxErr.Limit)})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperror.Invalid("invalid request payload",
			apperror.FieldIssue{Field: field, Reason: "must be a " + typeErr.Type.String()})
	case errors.As(err, &syntaxErr):
		return apperror.Invalid("invalid request payload",
			apperror.FieldIssue{Field: "body", Reason: fmt.Sprintf("malformed json at offset %d", syntaxErr.Offset)})
	default:
		return apperror.Invalid("invalid request payload", apperror.FieldIssue{Field: "body", Reason: err.Error()})
	}
}
