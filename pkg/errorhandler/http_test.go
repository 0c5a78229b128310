package errorhandler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	type testcase struct {
		err      error
		expected int
	}
	testcases := []testcase{
		{err: errors.Wrap(errs.NotFound, "sale 1"), expected: http.StatusNotFound},
		{err: errors.WithStack(errs.Unauthorized), expected: http.StatusForbidden},
		{err: errors.WithStack(errs.SaleNotActive), expected: http.StatusConflict},
		{err: errors.WithStack(errs.TierSoldOut), expected: http.StatusUnprocessableEntity},
		{err: errors.WithStack(errs.OverflowUint128), expected: http.StatusInternalServerError},
		{err: errors.Wrap(&pgconn.PgError{Code: "40001"}, "failed to commit transaction"), expected: http.StatusConflict},
		{err: errors.New("boom"), expected: http.StatusInternalServerError},
	}
	for _, tc := range testcases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusOf(tc.err))
		})
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: NewHTTPErrorHandler()})
	app.Get("/public", func(c *fiber.Ctx) error {
		return errs.WithPublicKind(errors.Wrap(errs.ExceedsTierCap, "you cannot buy more tokens with current tier"))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return errors.New("database is down")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var res common.HttpResponse[any]
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotNil(t, res.Code)
	assert.Equal(t, "EXCEEDS_TIER_CAP", *res.Code)
	assert.Contains(t, *res.Error, "current tier")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "database")
}
