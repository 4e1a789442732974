package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithRole(t *testing.T, role any, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, RequireRole(allowed...)(next)(c))
	return rec
}

func TestRequireRole(t *testing.T) {
	t.Run("allowed role passes", func(t *testing.T) {
		rec := runWithRole(t, "organization", "organization", "admin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		rec := runWithRole(t, "admin", "organization", "admin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("learner rejected on admin surface", func(t *testing.T) {
		rec := runWithRole(t, "learner", "organization", "admin")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing role rejected", func(t *testing.T) {
		rec := runWithRole(t, nil, "organization", "admin")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("non-string role rejected", func(t *testing.T) {
		rec := runWithRole(t, 42, "organization", "admin")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
