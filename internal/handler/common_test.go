package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

func record(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, respondError(c, err))
	return rec
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", service.ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: nope", service.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: missing", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: taken", service.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: done", service.ErrAlreadyProcessed), http.StatusConflict},
		{fmt.Errorf("%w: lapsed", service.ErrGone), http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := record(t, tc.err)
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestRespondErrorConflictDetail(t *testing.T) {
	rec := record(t, &service.ConflictError{UnavailableSeatIDs: []uint64{7, 9}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable_seat_ids")
	assert.Contains(t, rec.Body.String(), "7")

	rec = record(t, &service.ConflictError{Section: "VIP", Requested: 5, Available: 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"section":"VIP"`)
	assert.Contains(t, rec.Body.String(), `"requested":5`)
	assert.Contains(t, rec.Body.String(), `"available":2`)
}

func TestPathID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	id, ok := pathID(c, "id")
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c.SetParamValues(bad)
		_, ok := pathID(c, "id")
		assert.False(t, ok, "value %q", bad)
	}
}

func TestGetUserIDShapes(t *testing.T) {
	e := echo.New()
	newCtx := func(v interface{}) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		return c
	}
	for _, v := range []interface{}{uint64(7), int(7), int64(7), float64(7), "7"} {
		id, err := getUserID(newCtx(v))
		require.NoError(t, err, "value %#v", v)
		assert.Equal(t, uint64(7), id)
	}
	_, err := getUserID(newCtx(nil))
	assert.Error(t, err)
	_, err = getUserID(newCtx("not-a-number"))
	assert.Error(t, err)
}
