package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
	"github.com/ProConnect-Lab/proconnect-backend/internal/page"
)

func TestWriteError(t *testing.T) {
	verr := &apperr.ValidationError{}
	verr.Add("email", "The email field is required.")
	verr.Add("name", "The name field is required.")
	verr.Add("name", "The name field must be a string.")

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", verr, http.StatusUnprocessableEntity,
			`{"message":"The email field is required. (and 2 more errors)","errors":{"email":["The email field is required."],"name":["The name field is required.","The name field must be a string."]}}`},
		{"single validation", apperr.Invalid("email", "Taken."), http.StatusUnprocessableEntity,
			`{"message":"Taken.","errors":{"email":["Taken."]}}`},
		{"credentials", apperr.ErrInvalidCredentials, http.StatusUnprocessableEntity,
			`{"message":"The provided credentials are incorrect.","errors":{"email":["The provided credentials are incorrect."]}}`},
		{"unauthenticated", apperr.ErrUnauthenticated, http.StatusUnauthorized, `{"message":"Unauthenticated."}`},
		{"not owner", fmt.Errorf("update: %w", apperr.ErrNotOwner), http.StatusForbidden, `{"message":"Access denied."}`},
		{"not post owner", apperr.ErrNotPostOwner, http.StatusForbidden, `{"message":"You can only edit your own posts."}`},
		{"admin", apperr.ErrCannotDeleteAdmin, http.StatusForbidden, `{"message":"Administrators cannot be deleted."}`},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, `{"message":"This action is unauthorized."}`},
		{"company", apperr.ErrCompanyNotOwned, http.StatusUnprocessableEntity, `{"message":"This company does not belong to you."}`},
		{"not found", apperr.ErrNotFound, http.StatusNotFound, `{"message":"Not found."}`},
		{"malformed", fmt.Errorf("%w: eof", ErrMalformedBody), http.StatusBadRequest, `{"message":"Malformed JSON payload."}`},
		{"internal", errors.New("db down"), http.StatusInternalServerError, `{"message":"Server Error."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), zap.NewNop().Sugar(), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Nova"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "Nova", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.NoError(t, Decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, Decode(req, &dst), ErrMalformedBody)
}

func TestPathID(t *testing.T) {
	for raw, want := range map[string]int64{"42": 42, "0": 0, "-3": 0, "abc": 0} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetPathValue("id", raw)
		got, err := PathID(req)
		if want == 0 {
			assert.ErrorIs(t, err, apperr.ErrNotFound, raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, page.Of([]string{"a", "b"}, page.New(2, 2), 5))
	assert.JSONEq(t, `{"data":["a","b"],"meta":{"current_page":2,"per_page":2,"total":5,"last_page":3}}`, rec.Body.String())
}
