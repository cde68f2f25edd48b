package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exceptionRequest struct {
	RawRecordID1 int64  `json:"raw_record_id_1" validate:"required,gt=0"`
	RawRecordID2 int64  `json:"raw_record_id_2" validate:"required,gt=0"`
	Kind         string `json:"kind" validate:"required,oneof=automatic keep_together keep_separate"`
}

func newContext(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"raw_record_id_1": 1, "raw_record_id_2": 2, "kind": "keep_together"}`, false},
		{"missing id", `{"raw_record_id_1": 1, "kind": "keep_together"}`, true},
		{"unknown kind", `{"raw_record_id_1": 1, "raw_record_id_2": 2, "kind": "sometimes"}`, true},
		{"malformed", `{"raw_record_id_1": `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BindRequest[exceptionRequest](newContext(http.MethodPut, "/", tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "keep_together", req.Kind)
		})
	}
}

func TestParamID(t *testing.T) {
	c := newContext(http.MethodGet, "/", "")
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, err := ParamID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"abc", "0", "-3"} {
		c.SetParamValues(bad)
		_, err := ParamID(c, "id")
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err), bad)
	}
}

func TestQueryInt(t *testing.T) {
	n, err := QueryInt(newContext(http.MethodGet, "/?limit=7", ""), "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = QueryInt(newContext(http.MethodGet, "/", ""), "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(newContext(http.MethodGet, "/?limit=many", ""), "limit", 10)
	assert.Error(t, err)
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("display_name", "oneof=all display_name"))
	assert.Error(t, ValidateValue("photos", "oneof=all display_name"))
}
