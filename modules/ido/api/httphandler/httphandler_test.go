package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/usecase"
	"github.com/gaze-network/ido-ledger/modules/ido/repository/memory"
	"github.com/gaze-network/ido-ledger/pkg/errorhandler"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ungraded puts every participant in the lowest tier of a five tier ladder.
type ungraded struct{}

func (ungraded) TierOf(context.Context, string) (uint8, error) { return 5, nil }
func (ungraded) MinTier(context.Context) (uint8, error)        { return 5, nil }

func newTestApp(t *testing.T) (*fiber.App, *simulated.Chain) {
	t.Helper()
	chain := simulated.New("")
	chain.Fund("alice", types.NewCoin(simulated.DefaultBondDenom, uint128.From64(10_000)))
	require.NoError(t, chain.RegisterToken(contracts.TokenInfo{Contract: "sale-token", Symbol: "SALE", Decimals: 6}))
	require.NoError(t, chain.MintToken("sale-token", "owner", uint128.From64(100_000)))
	require.NoError(t, chain.IncreaseAllowance("sale-token", "owner", "registry", uint128.From64(100_000)))

	uc := usecase.New(memory.NewRepository(), ungraded{}, chain, usecase.Options{Address: "registry"})
	_, err := uc.Init(context.Background(), usecase.InitParams{
		Admin:       "admin",
		MaxPayments: []uint128.Uint128{uint128.From64(1000), uint128.From64(2000), uint128.From64(3000), uint128.From64(5000), uint128.From64(10000)},
		LockPeriods: []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour, 4 * time.Hour, 5 * time.Hour},
	})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()})
	app.Use(requestcontext.New(requestcontext.WithSender(nil)))
	require.NoError(t, New(uc).Mount(app))
	return app, chain
}

func call(t *testing.T, app *fiber.App, method, path, sender, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if sender != "" {
		req.Header.Set(requestcontext.SenderHeader, sender)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func startSale(t *testing.T, app *fiber.App, mode string, whitelist string) uint64 {
	t.Helper()
	now := time.Now()
	body := fmt.Sprintf(`{"startTime":%d,"endTime":%d,"price":"10","payment":{"kind":"native"},"tokenContract":"sale-token","total":"10000","whitelistMode":%q,"whitelist":%s}`,
		now.Add(-time.Minute).Unix(), now.Add(time.Hour).Unix(), mode, whitelist)
	status, data := call(t, app, http.MethodPost, "/ido/v1/sales", "owner", body)
	require.Equal(t, http.StatusOK, status, string(data))
	var resp common.HttpResponse[startSaleResult]
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotNil(t, resp.Result)
	return resp.Result.SaleID
}

func TestSaleEndpoints(t *testing.T) {
	app, chain := newTestApp(t)
	id := startSale(t, app, "open", "[]")
	assert.Equal(t, uint128.From64(10_000), chain.TokenBalance("sale-token", "registry"))

	status, data := call(t, app, http.MethodPost, fmt.Sprintf("/ido/v1/sales/%d/buy", id), "alice", `{"funds":["500uscrt"]}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var bought common.HttpResponse[buyResult]
	require.NoError(t, json.Unmarshal(data, &bought))
	require.NotNil(t, bought.Result)
	assert.Equal(t, uint8(5), bought.Result.Tier)
	assert.Equal(t, uint128.From64(50), bought.Result.Tokens)
	assert.Equal(t, uint128.From64(500), chain.Balance("owner", simulated.DefaultBondDenom))

	status, data = call(t, app, http.MethodGet, fmt.Sprintf("/ido/v1/sales/%d", id), "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var info common.HttpResponse[sale]
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, uint128.From64(50), info.Result.Sold)
	assert.Equal(t, uint64(1), info.Result.Participants)

	status, data = call(t, app, http.MethodGet, "/ido/v1/users/alice", "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var user common.HttpResponse[userInfo]
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, uint128.From64(50), user.Result.Pending)
	assert.Equal(t, []uint64{id}, user.Result.ActiveSales)

	status, data = call(t, app, http.MethodGet, fmt.Sprintf("/ido/v1/users/alice/sales/%d/purchases", id), "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var purchases common.HttpResponse[common.Page[purchase]]
	require.NoError(t, json.Unmarshal(data, &purchases))
	assert.Equal(t, uint64(1), purchases.Result.Total)

	status, data = call(t, app, http.MethodGet, "/ido/v1/owners/owner/sales", "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var owned common.HttpResponse[common.Page[sale]]
	require.NoError(t, json.Unmarshal(data, &owned))
	require.Len(t, owned.Result.List, 1)
	assert.Equal(t, id, owned.Result.List[0].ID)

	status, data = call(t, app, http.MethodGet, "/ido/v1/config", "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var config common.HttpResponse[getConfigResult]
	require.NoError(t, json.Unmarshal(data, &config))
	require.Len(t, config.Result.Tiers, 5)
	assert.Equal(t, uint128.From64(10000), config.Result.Tiers[0].MaxPayment)
	assert.Equal(t, int64(5*time.Hour/time.Second), config.Result.Tiers[0].LockPeriod)
}

func TestWhitelistEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	id := startSale(t, app, "private", `["bob"]`)

	status, data := call(t, app, http.MethodPost, fmt.Sprintf("/ido/v1/sales/%d/whitelist/add", id), "owner", `{"addresses":["alice"]}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var size common.HttpResponse[whitelistResult]
	require.NoError(t, json.Unmarshal(data, &size))
	assert.Equal(t, uint64(2), size.Result.WhitelistSize)

	status, data = call(t, app, http.MethodGet, fmt.Sprintf("/ido/v1/sales/%d/whitelist", id), "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var list common.HttpResponse[common.Page[string]]
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, []string{"alice", "bob"}, list.Result.List)

	status, data = call(t, app, http.MethodGet, fmt.Sprintf("/ido/v1/sales/%d/eligibility/carol", id), "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	var eligibility common.HttpResponse[getEligibilityResult]
	require.NoError(t, json.Unmarshal(data, &eligibility))
	assert.False(t, eligibility.Result.Eligible)

	status, data = call(t, app, http.MethodPost, "/ido/v1/admin/whitelist/add", "admin", `{"addresses":["carol"]}`)
	require.Equal(t, http.StatusOK, status, string(data))
	status, data = call(t, app, http.MethodGet, "/ido/v1/whitelist", "", "")
	require.Equal(t, http.StatusOK, status, string(data))
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, []string{"carol"}, list.Result.List)
}

func TestEndpointRejections(t *testing.T) {
	app, _ := newTestApp(t)
	id := startSale(t, app, "private", "[]")
	sales := fmt.Sprintf("/ido/v1/sales/%d", id)

	type testcase struct {
		name   string
		method string
		path   string
		sender string
		body   string
		status int
		code   string
	}
	testcases := []testcase{
		{name: "unknown sale", method: http.MethodGet, path: "/ido/v1/sales/99", status: http.StatusNotFound, code: errs.NotFound.Code()},
		{name: "not whitelisted", method: http.MethodPost, path: sales + "/buy", sender: "alice", body: `{"funds":["100uscrt"]}`, status: http.StatusUnprocessableEntity, code: errs.NotWhitelisted.Code()},
		{name: "bad amount", method: http.MethodPost, path: sales + "/buy", sender: "alice", body: `{"amount":"-1"}`, status: http.StatusBadRequest, code: errs.InvalidArgument.Code()},
		{name: "sale not finished", method: http.MethodPost, path: sales + "/withdraw", sender: "owner", status: http.StatusConflict, code: errs.SaleNotFinished.Code()},
		{name: "not owner", method: http.MethodPost, path: sales + "/whitelist/add", sender: "alice", body: `{"addresses":["alice"]}`, status: http.StatusForbidden, code: errs.Unauthorized.Code()},
		{name: "shared list needs admin", method: http.MethodPost, path: "/ido/v1/admin/whitelist/add", sender: "owner", body: `{"addresses":["alice"]}`, status: http.StatusForbidden, code: errs.Unauthorized.Code()},
		{name: "nothing to receive", method: http.MethodPost, path: sales + "/recv", sender: "alice", status: http.StatusUnprocessableEntity, code: errs.NothingToReceive.Code()},
		{name: "missing sender", method: http.MethodPost, path: sales + "/withdraw", status: http.StatusBadRequest, code: errs.Unauthorized.Code()},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, tc.method, tc.path, tc.sender, tc.body)
			assert.Equal(t, tc.status, status, string(body))
			var resp common.HttpResponse[any]
			require.NoError(t, json.Unmarshal(body, &resp))
			require.NotNil(t, resp.Error)
			require.NotNil(t, resp.Code)
			assert.Equal(t, tc.code, *resp.Code)
		})
	}
}
