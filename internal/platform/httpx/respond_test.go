package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("dataset: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
	}
}

func TestRespondErrorKeepsDomainDetail(t *testing.T) {
	inactive := fmt.Errorf("account is inactive: %w", ErrForbidden)
	rr := httptest.NewRecorder()
	RespondError(rr, inactive)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "account is inactive")

	rr = httptest.NewRecorder()
	RespondError(rr, ErrUnauthorized)
	require.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = httptest.NewRecorder()
	RespondError(rr, ErrForbidden)
	require.Empty(t, rr.Header().Get("WWW-Authenticate"))
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: password authentication failed"))
	require.NotContains(t, rr.Body.String(), "password authentication")
}

func TestValidatorUsesJSONNames(t *testing.T) {
	type payload struct {
		UserName string `json:"username" validate:"required"`
		Page     int    `form:"page" validate:"min=0"`
	}
	err := NewValidator().Struct(payload{Page: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'username'")
	require.Contains(t, err.Error(), "'page'")
}

func TestValidatorMaxBytesCountsBytes(t *testing.T) {
	type payload struct {
		Secret string `json:"secret" validate:"max_bytes=4"`
	}
	v := NewValidator()
	require.NoError(t, v.Struct(payload{Secret: "abcd"}))
	require.NoError(t, v.Struct(payload{Secret: "éé"}))

	err := v.Struct(payload{Secret: "ééé"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_bytes")
}

func TestDecodeJSONLimitsBody(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var target map[string]string
	require.Error(t, DecodeJSON(httptest.NewRecorder(), req, &target))
}
