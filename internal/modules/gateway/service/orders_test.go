package service

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/config"
	healthsvc "orb_bot/internal/modules/health/service"
)

// bridgeStub поднимает httptest-мост и возвращает клиента, нацеленного на него.
type bridgeStub struct {
	srv    *httptest.Server
	client *Client

	paths  []string
	bodies [][]byte
	status int
	reply  string
}

func newBridgeStub(t *testing.T) *bridgeStub {
	t.Helper()
	b := &bridgeStub{status: http.StatusOK, reply: "{}"}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.paths = append(b.paths, r.URL.Path)
		b.bodies = append(b.bodies, body)
		w.WriteHeader(b.status)
		_, _ = w.Write([]byte(b.reply))
	}))
	t.Cleanup(b.srv.Close)

	u, err := url.Parse(b.srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Bridge.Host = host
	cfg.Bridge.HTTPPort = port
	b.client = NewClient(cfg, healthsvc.NewState())
	return b
}

func TestNextOrderID(t *testing.T) {
	b := newBridgeStub(t)
	b.reply = `{"nextOrderId":42}`

	id, err := b.client.NextOrderID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, []string{"/v1/nextOrderId"}, b.paths)
}

func TestNextOrderIDBadPayload(t *testing.T) {
	b := newBridgeStub(t)
	b.reply = `{"nextOrderId":0}`

	_, err := b.client.NextOrderID(context.Background())
	assert.Error(t, err)
}

func TestSubscribeSendsContracts(t *testing.T) {
	b := newBridgeStub(t)

	err := b.client.Subscribe(context.Background(), []models.InstrumentConfig{
		{Symbol: "RRGB", PositionSize: 700},
		{Symbol: "TSM", PositionSize: 300},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"/v1/marketData"}, b.paths)
	contracts := gjson.GetBytes(b.bodies[0], "contracts")
	require.Equal(t, int64(2), contracts.Get("#").Int())
	first := contracts.Get("0")
	assert.Equal(t, "RRGB", first.Get("symbol").String())
	assert.Equal(t, "STK", first.Get("secType").String())
	assert.Equal(t, "SMART", first.Get("exchange").String())
	assert.Equal(t, "USD", first.Get("currency").String())
}

func TestSubmitOrderWireFields(t *testing.T) {
	b := newBridgeStub(t)
	ctx := context.Background()

	require.NoError(t, b.client.SubmitOrder(ctx, models.OrderRequest{
		OrderID: 1, Symbol: "RRGB", Action: models.SideBuy,
		Kind: models.OrderMarket, Quantity: 58,
	}))
	require.NoError(t, b.client.SubmitOrder(ctx, models.OrderRequest{
		OrderID: 2, ParentID: 1, Symbol: "RRGB", Action: models.SideSell,
		Kind: models.OrderLimit, Quantity: 58, LimitPrice: 12.60,
	}))
	require.NoError(t, b.client.SubmitOrder(ctx, models.OrderRequest{
		OrderID: 3, ParentID: 1, Symbol: "RRGB", Action: models.SideSell,
		Kind: models.OrderStop, Quantity: 58, TriggerPrice: 11.40, Transmit: true,
	}))

	require.Len(t, b.bodies, 3)

	parent := gjson.ParseBytes(b.bodies[0])
	assert.Equal(t, "MKT", parent.Get("orderType").String())
	assert.Equal(t, "BUY", parent.Get("action").String())
	assert.Equal(t, int64(58), parent.Get("totalQuantity").Int())
	assert.False(t, parent.Get("parentId").Exists()) // у родителя parentId нет
	assert.False(t, parent.Get("transmit").Bool())

	tp := gjson.ParseBytes(b.bodies[1])
	assert.Equal(t, "LMT", tp.Get("orderType").String())
	assert.Equal(t, int64(1), tp.Get("parentId").Int())
	assert.Equal(t, 12.60, tp.Get("lmtPrice").Float())
	assert.False(t, tp.Get("auxPrice").Exists())

	sl := gjson.ParseBytes(b.bodies[2])
	assert.Equal(t, "STP", sl.Get("orderType").String())
	assert.Equal(t, 11.40, sl.Get("auxPrice").Float())
	assert.False(t, sl.Get("lmtPrice").Exists())
	assert.True(t, sl.Get("transmit").Bool())
}

func TestSubmitOrderBridgeError(t *testing.T) {
	b := newBridgeStub(t)
	b.reply = `{"error":"duplicate order id"}`

	err := b.client.SubmitOrder(context.Background(), models.OrderRequest{
		OrderID: 1, Symbol: "RRGB", Action: models.SideBuy, Kind: models.OrderMarket, Quantity: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate order id")
}
