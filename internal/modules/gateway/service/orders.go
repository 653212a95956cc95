package service

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"orb_bot/internal/models"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// SubmitOrder — POST одного ордера в мост. Поля один в один брокерские:
// lmtPrice у лимитника, auxPrice у стопа, parentId связывает детей брекета.
func (c *Client) SubmitOrder(ctx context.Context, req models.OrderRequest) error {
	body := map[string]any{
		"orderId":       req.OrderID,
		"symbol":        req.Symbol,
		"action":        string(req.Action),
		"orderType":     string(req.Kind),
		"totalQuantity": req.Quantity,
		"transmit":      req.Transmit,
	}
	if req.ParentID != 0 {
		body["parentId"] = req.ParentID
	}
	if req.Kind == models.OrderLimit {
		body["lmtPrice"] = req.LimitPrice
	}
	if req.Kind == models.OrderStop {
		body["auxPrice"] = req.TriggerPrice
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "submit order: marshal")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.httpBase()+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "submit order: new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "submit order: do")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("submit order: http %d: %s", resp.StatusCode, string(data))
	}
	if msg := gjson.GetBytes(data, "error"); msg.Exists() {
		return errors.Errorf("submit order rejected: %s", msg.String())
	}
	return nil
}
