package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTooEarly = Conflict("TOO_EARLY", "Not ready yet")

func TestIsSurvivesDetails(t *testing.T) {
	err := fmt.Errorf("harvest: %w", errTooEarly.WithDetails(map[string]any{"remainingSeconds": 12}))

	require.ErrorIs(t, err, errTooEarly)
	require.NotErrorIs(t, err, Conflict("OTHER", "x"))

	e := From(err)
	require.Equal(t, 12, e.Details["remainingSeconds"])
	require.Nil(t, errTooEarly.Details, "sentinel must not be mutated")
}

func TestStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, Status(Validation("BAD", "bad")))
	require.Equal(t, http.StatusBadRequest, Status(errTooEarly))
	require.Equal(t, http.StatusNotFound, Status(NotFound("NF", "nf")))
	require.Equal(t, http.StatusUnauthorized, Status(Unauthorized("U", "u")))
	require.Equal(t, http.StatusForbidden, Status(Forbidden("F", "f")))
	require.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection reset")
	e := From(cause)
	require.Equal(t, KindInternal, e.Kind)
	require.Equal(t, "internal error", e.Message)
	require.ErrorIs(t, e, cause)
}
