// Package httpx holds the JSON envelope shared by every handler: response
// writing, request decoding with validation, and error-to-status mapping.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
)

// ErrMalformedBody is returned by Decode when the body is not a JSON object.
var ErrMalformedBody = errors.New("malformed request body")

const maxBodyBytes = 1 << 20

// M is a shorthand for ad-hoc JSON objects.
type M map[string]any

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, M{"message": msg})
}

// Paginated writes {"data": [...], "meta": {...}}.
func Paginated[T any](w http.ResponseWriter, p page.Page[T]) {
	WriteJSON(w, http.StatusOK, M{"data": p.Items, "meta": p.Meta})
}

// Decode reads a JSON object into dst. An empty body leaves dst untouched
// so the service's required-field rules still report. Validation itself is
// the service's job.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// PathID parses the {id} path value. A malformed id cannot match any row, so
// it is reported as not found.
func PathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

// WriteError maps err onto the status codes and bodies clients rely on.
// Unexpected errors are logged and reported as a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusUnprocessableEntity, M{"message": summary(verr), "errors": verr.Fields})
	case errors.Is(err, apperr.ErrInvalidCredentials):
		const msg = "The provided credentials are incorrect."
		WriteJSON(w, http.StatusUnprocessableEntity, M{"message": msg, "errors": M{"email": []string{msg}}})
	case errors.Is(err, apperr.ErrUnauthenticated):
		Message(w, http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, apperr.ErrNotOwner):
		Message(w, http.StatusForbidden, "Access denied.")
	case errors.Is(err, apperr.ErrNotPostOwner):
		Message(w, http.StatusForbidden, "You can only edit your own posts.")
	case errors.Is(err, apperr.ErrCannotDeleteAdmin):
		Message(w, http.StatusForbidden, "Administrators cannot be deleted.")
	case errors.Is(err, apperr.ErrForbidden):
		Message(w, http.StatusForbidden, "This action is unauthorized.")
	case errors.Is(err, apperr.ErrCompanyNotOwned):
		Message(w, http.StatusUnprocessableEntity, "This company does not belong to you.")
	case errors.Is(err, apperr.ErrNotFound):
		Message(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrMalformedBody):
		logger.Debugw("malformed body", "path", r.URL.Path, "err", err)
		Message(w, http.StatusBadRequest, "Malformed JSON payload.")
	default:
		logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		Message(w, http.StatusInternalServerError, "Server Error.")
	}
}

// summary mirrors the usual "first message (and N more errors)" headline.
func summary(v *apperr.ValidationError) string {
	keys := make([]string, 0, len(v.Fields))
	total := 0
	for k, msgs := range v.Fields {
		keys = append(keys, k)
		total += len(msgs)
	}
	if total == 0 {
		return "The given data was invalid."
	}
	sort.Strings(keys)
	first := v.Fields[keys[0]][0]
	switch rest := total - 1; rest {
	case 0:
		return first
	case 1:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
}
