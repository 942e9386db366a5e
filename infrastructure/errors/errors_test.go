package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerError_Error(t *testing.T) {
	withoutCause := New(KindNotFound, "test message", http.StatusNotFound)
	require.Equal(t, "[NOT_FOUND] test message", withoutCause.Error())

	withCause := Wrap(KindBackend, "test message", http.StatusServiceUnavailable, errors.New("underlying"))
	require.Equal(t, "[BACKEND] test message: underlying", withCause.Error())
}

func TestLedgerError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(KindBackend, "test", http.StatusServiceUnavailable, underlying)
	require.Equal(t, underlying, err.Unwrap())
	require.True(t, errors.Is(err, err))
}

func TestLedgerError_WithDetail(t *testing.T) {
	err := New(KindParse, "test", http.StatusBadRequest)
	err.WithDetail("field", "ticket_number").WithDetail("reason", "missing")

	require.Len(t, err.Details, 2)
	require.Equal(t, "ticket_number", err.Details["field"])
	require.Equal(t, "missing", err.Details["reason"])
}

func TestParse(t *testing.T) {
	err := Parse("PSS", "malformed csv row")
	require.Equal(t, KindParse, err.Kind)
	require.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	require.Equal(t, "PSS", err.Details["source"])
	require.Equal(t, "malformed csv row", err.Details["reason"])
}

func TestConflict(t *testing.T) {
	err := Conflict("0123456789012")
	require.Equal(t, KindConflict, err.Kind)
	require.Equal(t, http.StatusConflict, err.HTTPStatus)
	require.Equal(t, "0123456789012", err.Details["ticket_number"])
}

func TestNotFound(t *testing.T) {
	err := NotFound("break", "b-1")
	require.Equal(t, KindNotFound, err.Kind)
	require.Equal(t, http.StatusNotFound, err.HTTPStatus)
	require.Equal(t, "break", err.Details["resource"])
	require.Equal(t, "b-1", err.Details["id"])
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("confirmed", "submit")
	require.Equal(t, KindInvalidTransition, err.Kind)
	require.Equal(t, http.StatusConflict, err.HTTPStatus)
	require.Equal(t, "confirmed", err.Details["from_status"])
	require.Equal(t, "submit", err.Details["action"])
}

func TestCycle(t *testing.T) {
	err := Cycle("reconciliation")
	require.Equal(t, KindCycle, err.Kind)
	require.Equal(t, "reconciliation", err.Details["task"])
}

func TestConfig(t *testing.T) {
	err := Config("missing BUS_BACKEND")
	require.Equal(t, KindConfig, err.Kind)
	require.Equal(t, "missing BUS_BACKEND", err.Message)
}

func TestBackend(t *testing.T) {
	underlying := errors.New("connection refused")
	err := Backend("insert_event", underlying)
	require.Equal(t, KindBackend, err.Kind)
	require.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	require.Equal(t, "insert_event", err.Details["operation"])
	require.Equal(t, underlying, err.Err)
}

func TestIs(t *testing.T) {
	require.True(t, Is(NotFound("break", "b-1"), KindNotFound))
	require.False(t, Is(NotFound("break", "b-1"), KindConflict))
	require.False(t, Is(errors.New("plain"), KindNotFound))
	require.False(t, Is(nil, KindNotFound))
}

func TestAs(t *testing.T) {
	le := Conflict("t-1")
	require.Same(t, le, As(le))
	require.Nil(t, As(errors.New("plain")))
	require.Nil(t, As(nil))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("break", "b-1")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(nil))
}
