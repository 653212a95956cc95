package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/config"
	healthsvc "orb_bot/internal/modules/health/service"
)

// Client — клиент локального TWS-моста: HTTP для handshake и ордеров,
// WebSocket для пуш-стрима тиков. Сам мост (коннект к брокеру, авторизация,
// ретраи доставки) — внешний коллаборатор.
type Client struct {
	cfg      *config.Config
	http     *http.Client
	wsDialer *websocket.Dialer
	state    *healthsvc.State
}

func NewClient(cfg *config.Config, state *healthsvc.State) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		state:    state,
	}
}

func (c *Client) httpBase() string {
	return fmt.Sprintf("http://%s:%d", c.cfg.Bridge.Host, c.cfg.Bridge.HTTPPort)
}

func (c *Client) wsURL() string {
	return fmt.Sprintf("ws://%s:%d/v1/ticks?clientId=%d",
		c.cfg.Bridge.Host, c.cfg.Bridge.WSPort, c.cfg.Bridge.ClientID)
}

// NextOrderID — session-start handshake: брокер отдаёт начальный seed
// для ордер-айди, локально id не придумываем.
func (c *Client) NextOrderID(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpBase()+"/v1/nextOrderId", nil)
	if err != nil {
		return 0, errors.Wrap(err, "next order id: new request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "next order id: do")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, errors.Errorf("next order id: http %d: %s", resp.StatusCode, string(body))
	}

	id := gjson.GetBytes(body, "nextOrderId")
	if !id.Exists() || id.Int() <= 0 {
		return 0, errors.Errorf("next order id: bad payload %s", string(body))
	}
	return id.Int(), nil
}

// Subscribe — одна подписка маркет-даты на инструмент, один раз на старте
// сессии. Контракты — американские акции, SMART-роутинг, USD.
func (c *Client) Subscribe(ctx context.Context, instruments []models.InstrumentConfig) error {
	type contract struct {
		Symbol   string `json:"symbol"`
		SecType  string `json:"secType"`
		Exchange string `json:"exchange"`
		Currency string `json:"currency"`
	}

	list := make([]contract, 0, len(instruments))
	for _, ic := range instruments {
		list = append(list, contract{
			Symbol:   ic.Symbol,
			SecType:  "STK",
			Exchange: "SMART",
			Currency: "USD",
		})
	}

	payload, err := sonic.Marshal(map[string]any{"contracts": list})
	if err != nil {
		return errors.Wrap(err, "subscribe: marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.httpBase()+"/v1/marketData", bytesReader(payload))
	if err != nil {
		return errors.Wrap(err, "subscribe: new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "subscribe: do")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("subscribe: http %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
